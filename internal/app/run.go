package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/relabs-tech/pet_monitor/internal/alert"
	"github.com/relabs-tech/pet_monitor/internal/config"
	"github.com/relabs-tech/pet_monitor/internal/gps"
	"github.com/relabs-tech/pet_monitor/internal/health"
	"github.com/relabs-tech/pet_monitor/internal/notify"
)

func thresholdsFrom(cfg *config.Config) health.Thresholds {
	return health.Thresholds{
		SpO2Min:      cfg.SpO2Min,
		SpO2Max:      cfg.SpO2Max,
		HeartRateMin: cfg.HeartRateMin,
		HeartRateMax: cfg.HeartRateMax,
		MotionMin:    cfg.MotionMin,
		MotionMax:    cfg.MotionMax,
	}
}

func monitorOptionsFrom(cfg *config.Config) MonitorOptions {
	return MonitorOptions{
		Thresholds:    thresholdsFrom(cfg),
		Trigger:       cfg.AbnormalTrigger,
		ReadInterval:  cfg.ReadInterval(),
		GPSInterval:   cfg.GPSInterval(),
		GPSTimeout:    cfg.GPSPollTimeout(),
		RecoveryPause: cfg.RecoveryPauseDuration(),
		ReclaimEvery:  cfg.ReclaimEvery,
	}
}

func newNotifier(cfg *config.Config, log *zap.Logger) *notify.Client {
	return notify.NewClient(notify.ClientConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioPhoneNumber,
		CallURL:    cfg.TwilioCallURL,
		MessageURL: cfg.TwilioSMSURL,
		APIBase:    cfg.TwilioAPIBase,
		Timeout:    cfg.NotifyTimeoutDuration(),
	}, log)
}

// RunMonitor brings up the collar and runs the monitor loop until SIGINT or
// SIGTERM. Only the alert path is mandatory; sensors, GPS, telemetry and the
// display are each disabled with a log line when they fail to start.
func RunMonitor(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.ValidateNotifier(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := newNotifier(cfg, log.Named("notify"))
	if err := notifier.TestConnection(ctx); err != nil {
		log.Warn("monitor: notifier check failed, alerts may not be delivered", zap.Error(err))
	} else {
		log.Info("monitor: notifier credentials verified")
	}

	dispatcher := alert.NewDispatcher(notifier, alert.NewState(cfg.CooldownDuration()), alert.Options{
		OwnerNumber: cfg.OwnerPhoneNumber,
		CallbackURL: cfg.TwiMLURL,
		LocationSMS: cfg.SendLocationSMS,
		MapsLink:    cfg.IncludeMapsLink,
	}, log.Named("alert"))

	deps := MonitorDeps{Alerter: dispatcher}

	c := openCollar(cfg, log.Named("sensors"))
	defer c.Close()
	deps.Vitals = c.vitals
	deps.Motion = c.motion

	if cfg.UseGPS {
		port, err := gps.OpenSerial(cfg.GPSSerialPort, cfg.GPSBaudRate)
		if err != nil {
			log.Error("monitor: GPS disabled", zap.Error(err))
		} else {
			receiver := gps.NewReceiver(port, &gps.PositionFix{}, log.Named("gps"))
			defer receiver.Close()
			deps.GPS = receiver
			deps.Fix = receiver.Fix()
			log.Info("monitor: GPS enabled",
				zap.String("port", cfg.GPSSerialPort),
				zap.Int("baud", cfg.GPSBaudRate))
		}
	}

	if cfg.MQTTBroker != "" {
		client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDMonitor)
		if err != nil {
			log.Error("monitor: telemetry disabled", zap.Error(err))
		} else {
			defer client.Disconnect(250)
			deps.Publisher = NewTelemetry(client, TelemetryTopics{
				Vitals: cfg.TopicVitals,
				GPS:    cfg.TopicGPS,
				Alert:  cfg.TopicAlert,
			}, log.Named("telemetry"))
			log.Info("monitor: publishing telemetry", zap.String("broker", cfg.MQTTBroker))
		}
	}

	if cfg.DisplayEnabled && c.hasBus() {
		display, err := OpenStatusDisplay(c.channel(cfg.DisplayChannel))
		if err != nil {
			log.Error("monitor: display disabled", zap.Error(err))
		} else {
			defer display.Close()
			deps.Display = display
		}
	}

	return NewMonitor(monitorOptionsFrom(cfg), deps, log.Named("monitor")).Run(ctx)
}
