package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT telemetry (optional: empty broker disables publishing)
	MQTTBroker          string
	MQTTClientIDMonitor string
	MQTTClientIDWeb     string
	MQTTClientIDConsole string

	// Topics
	TopicVitals string
	TopicGPS    string
	TopicAlert  string

	// I2C bus and multiplexer
	I2CBus          string
	UseMultiplexer  bool
	MuxAddress      uint16 `validate:"gte=3,lte=119"`
	MPU6050Channel  int    `validate:"gte=0,lte=7"`
	MAX30102Channel int    `validate:"gte=0,lte=7"`
	MPU6050Address  uint16 `validate:"gte=3,lte=119"`
	MAX30102Address uint16 `validate:"gte=3,lte=119"`

	// Status display (SSD1306 at 0x3C)
	DisplayEnabled bool
	DisplayChannel int `validate:"gte=0,lte=7"`

	// Health thresholds
	SpO2Min         int     `validate:"gte=0,lte=100"`
	SpO2Max         int     `validate:"gtefield=SpO2Min,lte=100"`
	HeartRateMin    int     `validate:"gte=0"`
	HeartRateMax    int     `validate:"gtfield=HeartRateMin"`
	MotionMin       float64 `validate:"gte=0"`
	MotionMax       float64 `validate:"gtfield=MotionMin"`
	AbnormalTrigger int     `validate:"gte=1"`

	// Timing
	SensorReadInterval int `validate:"gte=1"` // seconds
	AlertCooldown      int `validate:"gte=0"` // seconds
	RecoveryPause      int `validate:"gte=1"` // seconds
	ReclaimEvery       int `validate:"gte=0"` // iterations, 0 = never

	// GPS
	UseGPS            bool
	GPSSerialPort     string
	GPSBaudRate       int `validate:"gt=0"`
	GPSUpdateInterval int `validate:"gte=1"`   // seconds
	GPSTimeout        int `validate:"gte=100"` // milliseconds

	// Notifier
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	OwnerPhoneNumber  string
	TwilioCallURL     string
	TwilioSMSURL      string
	TwilioAPIBase     string
	TwiMLURL          string
	NotifyTimeout     int `validate:"gte=1"` // seconds

	// Features
	SendLocationSMS bool
	IncludeMapsLink bool
	SimulateSensors bool

	// Logging
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	// Web Server
	WebServerPort int `validate:"gt=0,lte=65535"`
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through Get().
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access; writers only during initialization.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the collar's factory settings. Load applies the file on top of these.
func Default() *Config {
	return &Config{
		MQTTClientIDMonitor: "pet-monitor",
		MQTTClientIDWeb:     "pet-monitor-web",
		MQTTClientIDConsole: "pet-monitor-console",
		TopicVitals:         "petmon/vitals",
		TopicGPS:            "petmon/gps",
		TopicAlert:          "petmon/alert",

		I2CBus:          "1",
		UseMultiplexer:  true,
		MuxAddress:      0x70,
		MPU6050Channel:  0,
		MAX30102Channel: 1,
		MPU6050Address:  0x68,
		MAX30102Address: 0x57,
		DisplayChannel:  2,

		SpO2Min:         90,
		SpO2Max:         100,
		HeartRateMin:    60,
		HeartRateMax:    180,
		MotionMin:       0.3,
		MotionMax:       5.0,
		AbnormalTrigger: 2,

		SensorReadInterval: 3,
		AlertCooldown:      300,
		RecoveryPause:      5,

		UseGPS:            true,
		GPSSerialPort:     "/dev/serial0",
		GPSBaudRate:       9600,
		GPSUpdateInterval: 5,
		GPSTimeout:        2000,

		TwilioAPIBase: "https://api.twilio.com/2010-04-01",
		TwiMLURL:      "http://twimlets.com/message?Message=Alert",
		NotifyTimeout: 15,

		SendLocationSMS: true,
		IncludeMapsLink: true,

		LogLevel:      "info",
		LogFormat:     "json",
		WebServerPort: 8080,
	}
}

// Load reads the configuration file on top of Default and returns the result.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv lets credentials stay out of the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		c.TwilioAccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		c.TwilioAuthToken = v
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_MONITOR":
		c.MQTTClientIDMonitor = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_VITALS":
		c.TopicVitals = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_ALERT":
		c.TopicAlert = value

	// I2C bus and multiplexer
	case "I2C_BUS":
		c.I2CBus = value
	case "USE_MULTIPLEXER":
		c.UseMultiplexer, err = parseBool(key, value)
	case "TCA9548A_ADDRESS":
		c.MuxAddress, err = parseAddr(key, value)
	case "MPU6050_CHANNEL":
		c.MPU6050Channel, err = parseChannel(key, value)
	case "MAX30102_CHANNEL":
		c.MAX30102Channel, err = parseChannel(key, value)
	case "MPU6050_ADDRESS":
		c.MPU6050Address, err = parseAddr(key, value)
	case "MAX30102_ADDRESS":
		c.MAX30102Address, err = parseAddr(key, value)

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)
	case "DISPLAY_CHANNEL":
		c.DisplayChannel, err = parseChannel(key, value)

	// Health thresholds
	case "SPO2_MIN_THRESHOLD":
		c.SpO2Min, err = parseInt(key, value)
	case "SPO2_MAX_THRESHOLD":
		c.SpO2Max, err = parseInt(key, value)
	case "HEART_RATE_MIN":
		c.HeartRateMin, err = parseInt(key, value)
	case "HEART_RATE_MAX":
		c.HeartRateMax, err = parseInt(key, value)
	case "MOTION_MIN_THRESHOLD":
		c.MotionMin, err = parseFloat(key, value)
	case "MOTION_MAX_THRESHOLD":
		c.MotionMax, err = parseFloat(key, value)
	case "ABNORMAL_COUNT_THRESHOLD":
		c.AbnormalTrigger, err = parseInt(key, value)

	// Timing
	case "SENSOR_READ_INTERVAL":
		c.SensorReadInterval, err = parseInt(key, value)
	case "ALERT_COOLDOWN":
		c.AlertCooldown, err = parseInt(key, value)
	case "RECOVERY_PAUSE":
		c.RecoveryPause, err = parseInt(key, value)
	case "MEMORY_RECLAIM_EVERY":
		c.ReclaimEvery, err = parseInt(key, value)

	// GPS
	case "USE_GPS":
		c.UseGPS, err = parseBool(key, value)
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value)
	case "GPS_UPDATE_INTERVAL":
		c.GPSUpdateInterval, err = parseInt(key, value)
	case "GPS_TIMEOUT":
		c.GPSTimeout, err = parseInt(key, value)

	// Notifier
	case "TWILIO_ACCOUNT_SID":
		c.TwilioAccountSID = value
	case "TWILIO_AUTH_TOKEN":
		c.TwilioAuthToken = value
	case "TWILIO_PHONE_NUMBER":
		c.TwilioPhoneNumber = value
	case "OWNER_PHONE_NUMBER":
		c.OwnerPhoneNumber = value
	case "TWILIO_CALL_URL":
		c.TwilioCallURL = value
	case "TWILIO_SMS_URL":
		c.TwilioSMSURL = value
	case "TWILIO_API_BASE":
		c.TwilioAPIBase = value
	case "TWIML_URL":
		c.TwiMLURL = value
	case "NOTIFY_TIMEOUT":
		c.NotifyTimeout, err = parseInt(key, value)

	// Features
	case "SEND_LOCATION_VIA_SMS":
		c.SendLocationSMS, err = parseBool(key, value)
	case "INCLUDE_MAPS_LINK":
		c.IncludeMapsLink, err = parseBool(key, value)
	case "SIMULATE_SENSORS":
		c.SimulateSensors, err = parseBool(key, value)

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)
	case "LOG_FORMAT":
		c.LogFormat = strings.ToLower(value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks ranges and the fields each enabled feature needs.
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.UseGPS && c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required when USE_GPS is enabled")
	}
	if c.MQTTBroker != "" && c.MQTTClientIDMonitor == "" {
		return fmt.Errorf("MQTT_CLIENT_ID_MONITOR is required when MQTT_BROKER is set")
	}
	return nil
}

// ValidateNotifier checks the keys the alert path needs. Only the monitor
// places calls, so the other binaries load without them.
func (c *Config) ValidateNotifier() error {
	if c.OwnerPhoneNumber == "" {
		return fmt.Errorf("OWNER_PHONE_NUMBER is required")
	}
	if c.TwilioPhoneNumber == "" {
		return fmt.Errorf("TWILIO_PHONE_NUMBER is required")
	}
	if c.TwilioCallURL == "" {
		return fmt.Errorf("TWILIO_CALL_URL is required")
	}
	if c.SendLocationSMS && c.TwilioSMSURL == "" {
		return fmt.Errorf("TWILIO_SMS_URL is required when SEND_LOCATION_VIA_SMS is enabled")
	}
	return nil
}

func (c *Config) ReadInterval() time.Duration {
	return time.Duration(c.SensorReadInterval) * time.Second
}

func (c *Config) CooldownDuration() time.Duration {
	return time.Duration(c.AlertCooldown) * time.Second
}

func (c *Config) RecoveryPauseDuration() time.Duration {
	return time.Duration(c.RecoveryPause) * time.Second
}

func (c *Config) GPSInterval() time.Duration {
	return time.Duration(c.GPSUpdateInterval) * time.Second
}

func (c *Config) GPSPollTimeout() time.Duration {
	return time.Duration(c.GPSTimeout) * time.Millisecond
}

func (c *Config) NotifyTimeoutDuration() time.Duration {
	return time.Duration(c.NotifyTimeout) * time.Second
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// parseAddr accepts decimal or 0x-prefixed I2C addresses.
func parseAddr(key, value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return uint16(addr), nil
}

func parseChannel(key, value string) (int, error) {
	ch, err := parseInt(key, value)
	if err != nil {
		return 0, err
	}
	if ch < 0 || ch > 7 {
		return 0, fmt.Errorf("%s must be 0-7, got %d", key, ch)
	}
	return ch, nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
