package metrics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilianp07/cellage/core/battery"
	coremetrics "github.com/kilianp07/cellage/core/metrics"
	coremqtt "github.com/kilianp07/cellage/core/mqtt"
)

// MQTTSink publishes check-ups and run results as JSON messages.
type MQTTSink struct {
	pub    coremqtt.Publisher
	prefix string
}

// NewMQTTSink publishes below prefix using pub.
func NewMQTTSink(pub coremqtt.Publisher, prefix string) *MQTTSink {
	if prefix == "" {
		prefix = "cellage"
	}
	return &MQTTSink{pub: pub, prefix: prefix}
}

type checkupMessage struct {
	RunID        string             `json:"run_id"`
	Condition    string             `json:"condition"`
	AgeType      string             `json:"age_type"`
	Index        int                `json:"index"`
	Time         time.Time          `json:"time"`
	CapRemaining float64            `json:"cap_remaining"`
	MeasuredAh   float64            `json:"measured_ah"`
	Aging        battery.AgingState `json:"aging"`
}

type statusMessage struct {
	RunID        string    `json:"run_id"`
	Condition    string    `json:"condition"`
	AgeType      string    `json:"age_type"`
	Status       string    `json:"status"`
	Checkups     int       `json:"checkups"`
	CapRemaining float64   `json:"cap_remaining"`
	SimulatedS   float64   `json:"simulated_s"`
	WallS        float64   `json:"wall_s"`
	Error        string    `json:"error,omitempty"`
	Time         time.Time `json:"time"`
}

// RecordCheckup publishes to <prefix>/runs/<run>/checkup.
func (s *MQTTSink) RecordCheckup(ev coremetrics.CheckupEvent) error {
	return s.publish(coremqtt.CheckupTopic(s.prefix, ev.RunID), checkupMessage{
		RunID:        ev.RunID,
		Condition:    ev.Condition,
		AgeType:      ev.AgeType,
		Index:        ev.Index,
		Time:         ev.Time,
		CapRemaining: ev.CapRemaining,
		MeasuredAh:   ev.MeasuredAh,
		Aging:        ev.Aging,
	})
}

// RecordRun publishes to <prefix>/runs/<run>/status.
func (s *MQTTSink) RecordRun(ev coremetrics.RunEvent) error {
	return s.publish(coremqtt.StatusTopic(s.prefix, ev.RunID), statusMessage{
		RunID:        ev.RunID,
		Condition:    ev.Condition,
		AgeType:      ev.AgeType,
		Status:       ev.Status,
		Checkups:     ev.Checkups,
		CapRemaining: ev.CapRemaining,
		SimulatedS:   ev.Simulated.Seconds(),
		WallS:        ev.Wall.Seconds(),
		Error:        ev.Error,
		Time:         ev.Time,
	})
}

func (s *MQTTSink) publish(topic string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	return s.pub.Publish(topic, b)
}

// Close disconnects the publisher.
func (s *MQTTSink) Close() { s.pub.Disconnect() }
