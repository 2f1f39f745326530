package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/relabs-tech/pet_monitor/internal/config"
	"github.com/relabs-tech/pet_monitor/internal/gps"
)

// RunConsoleMQTT prints every monitor message to out until SIGINT or SIGTERM.
func RunConsoleMQTT(cfg *config.Config, log *zap.Logger, out io.Writer) error {
	client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Info("console: connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))

	printer := func(format func([]byte) (string, error)) func([]byte) error {
		return func(payload []byte) error {
			line, err := format(payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, line)
			return nil
		}
	}

	if err := subscribeJSON(client, cfg.TopicVitals, printer(formatVitalsPayload), log); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicGPS, printer(formatFixPayload), log); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicAlert, printer(formatAlertPayload), log); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatVitalsPayload(payload []byte) (string, error) {
	var v VitalsMessage
	if err := json.Unmarshal(payload, &v); err != nil {
		return "", err
	}
	return formatVitalsLine(v), nil
}

func formatFixPayload(payload []byte) (string, error) {
	var f gps.PositionFix
	if err := json.Unmarshal(payload, &f); err != nil {
		return "", err
	}
	return formatFixLine(f), nil
}

func formatAlertPayload(payload []byte) (string, error) {
	var a AlertMessage
	if err := json.Unmarshal(payload, &a); err != nil {
		return "", err
	}
	return formatAlertLine(a), nil
}

func formatVitalsLine(v VitalsMessage) string {
	line := fmt.Sprintf("[VITALS] SpO2=%3d%%  HR=%3d  MOTION=%5.2f  ROLL=%6.1f  PITCH=%6.1f",
		v.SpO2, v.HeartRate, v.Motion, v.Pose.Roll, v.Pose.Pitch)
	if v.AbnormalCount > 0 {
		line += fmt.Sprintf("  ABNORMAL(%d): %s", v.AbnormalCount, strings.Join(v.Issues, "; "))
	}
	return line
}

func formatFixLine(f gps.PositionFix) string {
	if !f.HasFix {
		return fmt.Sprintf("[GPS   ] no fix  sats=%d  quality=%d", f.Satellites, f.FixQuality)
	}
	line := fmt.Sprintf("[GPS   ] %s  sats=%d", f.CoordinatesString(), f.Satellites)
	if f.Altitude != nil {
		line += fmt.Sprintf("  alt=%.1fm", *f.Altitude)
	}
	if f.SpeedKmh != nil {
		line += fmt.Sprintf("  speed=%.1fkm/h", *f.SpeedKmh)
	}
	return line
}

func formatAlertLine(a AlertMessage) string {
	return fmt.Sprintf("[ALERT ] %s  %s  (%s)",
		a.Time.Local().Format("15:04:05"), strings.Join(a.Issues, "; "), a.Summary)
}
