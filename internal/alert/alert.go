// Package alert decides when abnormal readings reach the owner and how.
package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relabs-tech/pet_monitor/internal/gps"
	"github.com/relabs-tech/pet_monitor/internal/notify"
)

// State is the cooldown bookkeeping. A zero LastAlert means no alert yet.
type State struct {
	LastAlert time.Time
	Cooldown  time.Duration
}

func NewState(cooldown time.Duration) *State {
	return &State{Cooldown: cooldown}
}

// Remaining is how much cooldown is left at now, zero when none.
func (s *State) Remaining(now time.Time) time.Duration {
	if s.LastAlert.IsZero() {
		return 0
	}
	if left := s.Cooldown - now.Sub(s.LastAlert); left > 0 {
		return left
	}
	return 0
}

type Options struct {
	OwnerNumber string
	CallbackURL string // instructions played on the call
	LocationSMS bool   // also send a text message
	MapsLink    bool   // add a map link to location messages
}

type MessageKind string

const (
	MessageNone     MessageKind = ""
	MessageLocation MessageKind = "location"
	MessageBasic    MessageKind = "basic"
)

// Outcome records what one MaybeAlert call did.
type Outcome struct {
	ID         uuid.UUID     `json:"id"`
	At         time.Time     `json:"at"`
	Issues     []string      `json:"issues"`
	Suppressed bool          `json:"suppressed"`
	Remaining  time.Duration `json:"remaining,omitempty"`

	CallOK  bool   `json:"call_ok"`
	CallSID string `json:"call_sid,omitempty"`
	CallErr error  `json:"-"`

	Message    MessageKind `json:"message,omitempty"`
	MessageOK  bool        `json:"message_ok"`
	MessageSID string      `json:"message_sid,omitempty"`
	MessageErr error       `json:"-"`

	CooldownReset bool `json:"cooldown_reset"`
}

func (o Outcome) String() string {
	if o.Suppressed {
		return fmt.Sprintf("in cooldown, %.0f seconds remaining", o.Remaining.Seconds())
	}
	var b strings.Builder
	if o.CallOK {
		b.WriteString("call placed")
	} else {
		b.WriteString("call failed")
	}
	switch {
	case o.Message == MessageNone:
	case o.MessageOK:
		fmt.Fprintf(&b, ", %s message sent", o.Message)
	default:
		fmt.Fprintf(&b, ", %s message failed", o.Message)
	}
	if o.CooldownReset {
		b.WriteString(", cooldown armed")
	}
	return b.String()
}

// ShouldResetCooldown re-arms the cooldown when the call went through or the
// message feature is on, whether or not the message itself was delivered.
func ShouldResetCooldown(callOK, smsEnabled bool) bool {
	return callOK || smsEnabled
}

// Dispatcher escalates to the owner, at most once per cooldown.
type Dispatcher struct {
	notifier notify.Notifier
	state    *State
	opts     Options
	log      *zap.Logger

	newID func() uuid.UUID
}

func NewDispatcher(n notify.Notifier, state *State, opts Options, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		notifier: n,
		state:    state,
		opts:     opts,
		log:      log,
		newID:    uuid.New,
	}
}

// MaybeAlert calls the owner and, when enabled, sends a text message,
// unless the previous alert is still cooling down. fix may be nil.
func (d *Dispatcher) MaybeAlert(ctx context.Context, issues []string, fix *gps.PositionFix, now time.Time) Outcome {
	out := Outcome{ID: d.newID(), At: now, Issues: issues}

	if left := d.state.Remaining(now); left > 0 {
		out.Suppressed = true
		out.Remaining = left
		d.log.Info("alert: suppressed", zap.String("reason", out.String()))
		return out
	}

	d.log.Warn("alert: emergency detected",
		zap.String("alert_id", out.ID.String()),
		zap.Strings("issues", issues),
		zap.String("location", fix.CoordinatesString()))

	call, err := d.notifier.Call(ctx, d.opts.OwnerNumber, d.opts.CallbackURL)
	if err != nil {
		out.CallErr = err
		d.log.Error("alert: voice call failed", zap.Error(err))
	} else {
		out.CallOK = true
		out.CallSID = call.SID
	}

	if d.opts.LocationSMS {
		var body string
		if fix != nil && fix.HasFix && fix.HasCoordinates() {
			out.Message = MessageLocation
			body = LocationMessage(issues, fix, d.opts.MapsLink)
		} else {
			out.Message = MessageBasic
			body = BasicMessage(issues)
		}
		msg, err := d.notifier.SendMessage(ctx, d.opts.OwnerNumber, body)
		if err != nil {
			out.MessageErr = err
			d.log.Error("alert: message failed", zap.String("kind", string(out.Message)), zap.Error(err))
		} else {
			out.MessageOK = true
			out.MessageSID = msg.SID
		}
	}

	if ShouldResetCooldown(out.CallOK, d.opts.LocationSMS) {
		d.state.LastAlert = now
		out.CooldownReset = true
	}

	d.log.Info("alert: dispatched", zap.String("alert_id", out.ID.String()), zap.String("result", out.String()))
	return out
}
