package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
# notifier
TWILIO_PHONE_NUMBER=+15550000001
OWNER_PHONE_NUMBER=+15550000002
TWILIO_CALL_URL=https://studio.example.com/v2/Flows/FWcall/Executions
TWILIO_SMS_URL=https://studio.example.com/v2/Flows/FWsms/Executions
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitor_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.SpO2Min)
	assert.Equal(t, 100, cfg.SpO2Max)
	assert.Equal(t, 60, cfg.HeartRateMin)
	assert.Equal(t, 180, cfg.HeartRateMax)
	assert.InDelta(t, 0.3, cfg.MotionMin, 1e-9)
	assert.InDelta(t, 5.0, cfg.MotionMax, 1e-9)
	assert.Equal(t, 2, cfg.AbnormalTrigger)

	assert.Equal(t, 3*time.Second, cfg.ReadInterval())
	assert.Equal(t, 300*time.Second, cfg.CooldownDuration())
	assert.Equal(t, 5*time.Second, cfg.GPSInterval())
	assert.Equal(t, 2*time.Second, cfg.GPSPollTimeout())
	assert.Equal(t, 5*time.Second, cfg.RecoveryPauseDuration())

	assert.True(t, cfg.UseMultiplexer)
	assert.Equal(t, uint16(0x70), cfg.MuxAddress)
	assert.True(t, cfg.SendLocationSMS)
	assert.True(t, cfg.IncludeMapsLink)
	assert.False(t, cfg.SimulateSensors)
	assert.Equal(t, "", cfg.MQTTBroker)
}

func TestLoad_OverridesValues(t *testing.T) {
	body := minimalConfig + `
SPO2_MIN_THRESHOLD=92
HEART_RATE_MAX=200
MOTION_MIN_THRESHOLD=0.5
TCA9548A_ADDRESS=0x71
MAX30102_CHANNEL=3
USE_GPS=false
SIMULATE_SENSORS=true
LOG_LEVEL=DEBUG
MQTT_BROKER=tcp://localhost:1883
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, 92, cfg.SpO2Min)
	assert.Equal(t, 200, cfg.HeartRateMax)
	assert.InDelta(t, 0.5, cfg.MotionMin, 1e-9)
	assert.Equal(t, uint16(0x71), cfg.MuxAddress)
	assert.Equal(t, 3, cfg.MAX30102Channel)
	assert.False(t, cfg.UseGPS)
	assert.True(t, cfg.SimulateSensors)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
}

func TestLoad_EnvironmentCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "ACenv")
	t.Setenv("TWILIO_AUTH_TOKEN", "token-env")

	cfg, err := Load(writeConfig(t, minimalConfig+"TWILIO_AUTH_TOKEN=token-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "ACenv", cfg.TwilioAccountSID)
	assert.Equal(t, "token-env", cfg.TwilioAuthToken)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown key":        minimalConfig + "NOPE=1\n",
		"missing equals":     minimalConfig + "USE_GPS\n",
		"bad int":            minimalConfig + "HEART_RATE_MIN=fast\n",
		"bad channel":        minimalConfig + "MPU6050_CHANNEL=8\n",
		"inverted hr band":   minimalConfig + "HEART_RATE_MIN=200\n",
		"inverted motion":    minimalConfig + "MOTION_MAX_THRESHOLD=0.1\n",
		"zero trigger":       minimalConfig + "ABNORMAL_COUNT_THRESHOLD=0\n",
		"bad log level":      minimalConfig + "LOG_LEVEL=chatty\n",
		"gps without serial": minimalConfig + "GPS_SERIAL_PORT=\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_WithoutNotifierKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, "WEB_SERVER_PORT=8081\n"))
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.WebServerPort)
	assert.Error(t, cfg.ValidateNotifier())
}

func TestValidateNotifier(t *testing.T) {
	cases := map[string]struct {
		body    string
		wantErr string
	}{
		"complete":        {body: minimalConfig},
		"missing owner":   {body: "TWILIO_PHONE_NUMBER=+1\nTWILIO_CALL_URL=https://x\nTWILIO_SMS_URL=https://y\n", wantErr: "OWNER_PHONE_NUMBER"},
		"missing sender":  {body: "OWNER_PHONE_NUMBER=+2\nTWILIO_CALL_URL=https://x\nTWILIO_SMS_URL=https://y\n", wantErr: "TWILIO_PHONE_NUMBER"},
		"missing call":    {body: "TWILIO_PHONE_NUMBER=+1\nOWNER_PHONE_NUMBER=+2\nTWILIO_SMS_URL=https://y\n", wantErr: "TWILIO_CALL_URL"},
		"sms without url": {body: "TWILIO_PHONE_NUMBER=+1\nOWNER_PHONE_NUMBER=+2\nTWILIO_CALL_URL=https://x\n", wantErr: "TWILIO_SMS_URL"},
		"sms disabled":    {body: "TWILIO_PHONE_NUMBER=+1\nOWNER_PHONE_NUMBER=+2\nTWILIO_CALL_URL=https://x\nSEND_LOCATION_VIA_SMS=false\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tc.body))
			require.NoError(t, err)
			err = cfg.ValidateNotifier()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}
