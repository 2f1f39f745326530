package gps

import (
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

// Receiver owns the serial line and folds its sentences into a PositionFix.
type Receiver struct {
	reader *SentenceReader
	closer io.Closer
	fix    *PositionFix
	log    *zap.Logger

	now func() time.Time
}

// NewReceiver decodes sentences from src into fix. If src is an io.Closer,
// Close closes it.
func NewReceiver(src io.Reader, fix *PositionFix, log *zap.Logger) *Receiver {
	if log == nil {
		log = zap.NewNop()
	}
	c, _ := src.(io.Closer)
	return &Receiver{
		reader: NewSentenceReader(src),
		closer: c,
		fix:    fix,
		log:    log,
		now:    time.Now,
	}
}

// Fix returns the fix the receiver writes to.
func (rc *Receiver) Fix() *PositionFix {
	return rc.fix
}

// Poll reads sentences until timeout elapses and reports whether any of
// them updated the position. Bad sentences are skipped; only a failing
// serial port is returned as an error, and the partial line read before
// the failure is dropped.
func (rc *Receiver) Poll(timeout time.Duration) (bool, error) {
	deadline := rc.now().Add(timeout)
	updated := false
	for {
		remaining := deadline.Sub(rc.now())
		if remaining <= 0 {
			return updated, nil
		}
		lines, err := rc.reader.Read(remaining)
		for _, line := range lines {
			res, perr := Apply(rc.fix, line, rc.now())
			switch {
			case perr == nil:
				updated = updated || res.Updated
			case errors.Is(perr, ErrUnsupported), errors.Is(perr, ErrNotSentence):
				// other talkers and sentence types
			default:
				rc.log.Debug("gps: sentence dropped", zap.String("line", line), zap.Error(perr))
			}
		}
		if err != nil {
			rc.reader.Reset()
			return updated, err
		}
	}
}

func (rc *Receiver) Close() error {
	if rc.closer == nil {
		return nil
	}
	return rc.closer.Close()
}
