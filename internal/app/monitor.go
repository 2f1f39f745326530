package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/pet_monitor/internal/alert"
	"github.com/relabs-tech/pet_monitor/internal/gps"
	"github.com/relabs-tech/pet_monitor/internal/health"
	"github.com/relabs-tech/pet_monitor/internal/imu"
	"github.com/relabs-tech/pet_monitor/internal/orientation"
	"github.com/relabs-tech/pet_monitor/internal/sensors"
	"github.com/relabs-tech/pet_monitor/internal/vitals"
)

// FixPoller reads the GPS receiver for up to timeout.
type FixPoller interface {
	Poll(timeout time.Duration) (bool, error)
}

type Alerter interface {
	MaybeAlert(ctx context.Context, issues []string, fix *gps.PositionFix, now time.Time) alert.Outcome
}

// Publisher receives everything the loop produces. Implementations must not block.
type Publisher interface {
	PublishReading(r Reading, a health.AbnormalReading)
	PublishFix(fix gps.PositionFix)
	PublishAlert(o alert.Outcome)
}

type Display interface {
	Show(s Status) error
}

// Reading is what one iteration measured. A failed sensor leaves its
// values at zero and its error set.
type Reading struct {
	At     time.Time
	Vitals vitals.Sample
	Motion imu.Sample
	Pose   orientation.Pose

	VitalsErr error
	MotionErr error
}

// MotionMagnitude is the figure fed to the health rules.
func (r Reading) MotionMagnitude() float64 {
	return r.Motion.Magnitude()
}

// Status is what the display shows after each iteration.
type Status struct {
	Reading   Reading
	Analysis  health.AbnormalReading
	Fix       *gps.PositionFix
	LastAlert *alert.Outcome
}

type MonitorOptions struct {
	Thresholds    health.Thresholds
	Trigger       int
	ReadInterval  time.Duration
	GPSInterval   time.Duration
	GPSTimeout    time.Duration
	RecoveryPause time.Duration
	ReclaimEvery  int // iterations between debug.FreeOSMemory calls, 0 = never
}

// MonitorDeps are the loop's collaborators. Nil sources count as sensors
// that failed bring-up; nil GPS, Publisher and Display are skipped.
type MonitorDeps struct {
	Vitals    vitals.Source
	Motion    imu.Source
	GPS       FixPoller
	Fix       *gps.PositionFix
	Alerter   Alerter
	Publisher Publisher
	Display   Display
}

// Monitor is the single-threaded acquisition, analysis and alert loop.
type Monitor struct {
	opts MonitorOptions
	deps MonitorDeps
	log  *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	lastGPSPoll time.Time
	gpsPolled   bool
	iterations  int
	lastAlert   *alert.Outcome
}

func NewMonitor(opts MonitorOptions, deps MonitorDeps, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		opts:  opts,
		deps:  deps,
		log:   log,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Run loops until ctx is done. Errors and panics inside an iteration are
// logged and followed by the recovery pause; they never end the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("monitor: starting loop",
		zap.Duration("read_interval", m.opts.ReadInterval),
		zap.Int("alert_trigger", m.opts.Trigger),
		zap.Bool("gps", m.deps.GPS != nil),
		zap.Duration("gps_interval", m.opts.GPSInterval))

	for {
		pause := m.opts.ReadInterval
		if err := m.safeStep(ctx); err != nil {
			m.log.Error("monitor: iteration failed", zap.Error(err), zap.Duration("pause", m.opts.RecoveryPause))
			pause = m.opts.RecoveryPause
		}
		if err := m.sleep(ctx, pause); err != nil {
			m.log.Info("monitor: stopped")
			return nil
		}
	}
}

func (m *Monitor) safeStep(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	_, _, _ = m.Step(ctx)
	return nil
}

// Step runs one iteration: read sensors, poll GPS when due, analyze,
// alert when the trigger is met, then publish and refresh the display.
// The outcome is nil when no alert was attempted.
func (m *Monitor) Step(ctx context.Context) (Reading, health.AbnormalReading, *alert.Outcome) {
	r := m.readSensors()

	if m.gpsDue(r.At) {
		m.pollGPS()
		m.lastGPSPoll = r.At
		m.gpsPolled = true
	}

	analysis := health.Analyze(r.Vitals.SpO2, r.Vitals.HeartRate, r.MotionMagnitude(), m.opts.Thresholds)
	m.log.Debug("monitor: reading",
		zap.Int("spo2", r.Vitals.SpO2),
		zap.Int("heart_rate", r.Vitals.HeartRate),
		zap.Float64("motion", r.MotionMagnitude()),
		zap.Int("abnormal", analysis.Count),
		zap.Strings("issues", analysis.Issues))

	var outcome *alert.Outcome
	if analysis.Abnormal(m.opts.Trigger) && m.deps.Alerter != nil {
		o := m.deps.Alerter.MaybeAlert(ctx, analysis.Issues, m.fixSnapshot(), r.At)
		outcome = &o
		if !o.Suppressed {
			m.lastAlert = outcome
			if m.deps.Publisher != nil {
				m.deps.Publisher.PublishAlert(o)
			}
		}
	}

	if m.deps.Publisher != nil {
		m.deps.Publisher.PublishReading(r, analysis)
	}
	if m.deps.Display != nil {
		if err := m.deps.Display.Show(Status{Reading: r, Analysis: analysis, Fix: m.fixSnapshot(), LastAlert: m.lastAlert}); err != nil {
			m.log.Debug("monitor: display update failed", zap.Error(err))
		}
	}

	m.iterations++
	if m.opts.ReclaimEvery > 0 && m.iterations%m.opts.ReclaimEvery == 0 {
		debug.FreeOSMemory()
	}
	return r, analysis, outcome
}

// readSensors reads each sensor on its own so one failure only zeroes
// that sensor's values.
func (m *Monitor) readSensors() Reading {
	r := Reading{At: m.now()}

	if m.deps.Vitals == nil {
		r.VitalsErr = errSensorMissing
	} else if s, err := m.deps.Vitals.Read(); err != nil {
		r.VitalsErr = err
		m.logSensorError("max30102", err)
	} else {
		r.Vitals = s
	}

	if m.deps.Motion == nil {
		r.MotionErr = errSensorMissing
	} else if s, err := m.deps.Motion.Read(); err != nil {
		r.MotionErr = err
		m.logSensorError("mpu6050", err)
	} else {
		r.Motion = s
		r.Pose = orientation.FromSample(s)
	}
	return r
}

var errSensorMissing = errors.New("sensor not initialized")

func (m *Monitor) logSensorError(sensor string, err error) {
	if errors.Is(err, sensors.ErrNoData) {
		m.log.Debug("monitor: no sensor data", zap.String("sensor", sensor))
		return
	}
	m.log.Warn("monitor: sensor read failed", zap.String("sensor", sensor), zap.Error(err))
}

func (m *Monitor) gpsDue(now time.Time) bool {
	if m.deps.GPS == nil {
		return false
	}
	return !m.gpsPolled || now.Sub(m.lastGPSPoll) >= m.opts.GPSInterval
}

func (m *Monitor) pollGPS() {
	updated, err := m.deps.GPS.Poll(m.opts.GPSTimeout)
	if err != nil {
		m.log.Warn("monitor: gps read failed", zap.Error(err))
	}
	if m.deps.Fix == nil {
		return
	}
	fix := *m.deps.Fix
	if fix.HasFix {
		m.log.Debug("monitor: gps fix",
			zap.String("position", fix.CoordinatesString()),
			zap.Int("satellites", fix.Satellites),
			zap.Bool("updated", updated))
	} else {
		m.log.Debug("monitor: gps searching for fix", zap.Int("satellites", fix.Satellites))
	}
	if m.deps.Publisher != nil {
		m.deps.Publisher.PublishFix(fix)
	}
}

// fixSnapshot copies the fix so later decoding cannot change what the
// caller sees.
func (m *Monitor) fixSnapshot() *gps.PositionFix {
	if m.deps.Fix == nil {
		return nil
	}
	snap := *m.deps.Fix
	return &snap
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
