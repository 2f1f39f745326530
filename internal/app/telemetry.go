package app

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/pet_monitor/internal/alert"
	"github.com/relabs-tech/pet_monitor/internal/gps"
	"github.com/relabs-tech/pet_monitor/internal/health"
	"github.com/relabs-tech/pet_monitor/internal/orientation"
)

// VitalsMessage is the payload on the vitals topic.
type VitalsMessage struct {
	Time      time.Time `json:"time"`
	SpO2      int       `json:"spo2"`
	HeartRate int       `json:"heart_rate"`
	Motion    float64   `json:"motion"`
	TempC     float64   `json:"temp_c"`

	Pose  orientation.Pose `json:"pose"`
	Lying bool             `json:"lying"`

	AbnormalCount int      `json:"abnormal_count"`
	Issues        []string `json:"issues"`

	VitalsSource string `json:"vitals_source,omitempty"`
	MotionSource string `json:"motion_source,omitempty"`
	VitalsError  string `json:"vitals_error,omitempty"`
	MotionError  string `json:"motion_error,omitempty"`
}

func NewVitalsMessage(r Reading, a health.AbnormalReading) VitalsMessage {
	msg := VitalsMessage{
		Time:          r.At,
		SpO2:          r.Vitals.SpO2,
		HeartRate:     r.Vitals.HeartRate,
		Motion:        r.MotionMagnitude(),
		TempC:         r.Motion.TempC,
		Pose:          r.Pose,
		Lying:         r.MotionErr == nil && r.Pose.Lying(),
		AbnormalCount: a.Count,
		Issues:        a.Issues,
		VitalsSource:  r.Vitals.Source,
		MotionSource:  r.Motion.Source,
	}
	if msg.Issues == nil {
		msg.Issues = []string{}
	}
	if r.VitalsErr != nil {
		msg.VitalsError = r.VitalsErr.Error()
	}
	if r.MotionErr != nil {
		msg.MotionError = r.MotionErr.Error()
	}
	return msg
}

// AlertMessage is the payload on the alert topic.
type AlertMessage struct {
	ID            string    `json:"id"`
	Time          time.Time `json:"time"`
	Issues        []string  `json:"issues"`
	CallOK        bool      `json:"call_ok"`
	CallError     string    `json:"call_error,omitempty"`
	Message       string    `json:"message,omitempty"`
	MessageOK     bool      `json:"message_ok"`
	MessageError  string    `json:"message_error,omitempty"`
	CooldownReset bool      `json:"cooldown_reset"`
	Summary       string    `json:"summary"`
}

func NewAlertMessage(o alert.Outcome) AlertMessage {
	msg := AlertMessage{
		ID:            o.ID.String(),
		Time:          o.At,
		Issues:        o.Issues,
		CallOK:        o.CallOK,
		Message:       string(o.Message),
		MessageOK:     o.MessageOK,
		CooldownReset: o.CooldownReset,
		Summary:       o.String(),
	}
	if o.CallErr != nil {
		msg.CallError = o.CallErr.Error()
	}
	if o.MessageErr != nil {
		msg.MessageError = o.MessageErr.Error()
	}
	return msg
}

// TelemetryTopics are the MQTT topics the monitor publishes to.
type TelemetryTopics struct {
	Vitals string
	GPS    string
	Alert  string
}

// tokenPublisher is the part of mqtt.Client telemetry uses.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Telemetry publishes monitor output as retained JSON messages. Publishing
// errors are logged and dropped so the loop never stalls on the broker.
type Telemetry struct {
	client  tokenPublisher
	topics  TelemetryTopics
	log     *zap.Logger
	timeout time.Duration
}

func NewTelemetry(client tokenPublisher, topics TelemetryTopics, log *zap.Logger) *Telemetry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Telemetry{client: client, topics: topics, log: log, timeout: 2 * time.Second}
}

func (t *Telemetry) PublishReading(r Reading, a health.AbnormalReading) {
	t.publish(t.topics.Vitals, NewVitalsMessage(r, a))
}

func (t *Telemetry) PublishFix(fix gps.PositionFix) {
	t.publish(t.topics.GPS, fix)
}

func (t *Telemetry) PublishAlert(o alert.Outcome) {
	t.publish(t.topics.Alert, NewAlertMessage(o))
}

func (t *Telemetry) publish(topic string, v any) {
	if topic == "" {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		t.log.Error("telemetry: marshal failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	token := t.client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(t.timeout) {
		t.log.Warn("telemetry: publish timed out", zap.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		t.log.Warn("telemetry: publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

// ConnectMQTT connects a client to broker with the given client ID.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return client, nil
}
