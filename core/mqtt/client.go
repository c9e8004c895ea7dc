package mqtt

import "fmt"

// Publisher sends experiment events to a broker.
type Publisher interface {
	// Publish sends payload to topic, retrying transient failures.
	Publish(topic string, payload []byte) error
	Disconnect()
}

// Command is a control message received on the control topic.
type Command struct {
	Command string `json:"command"`
	// RunID targets a single run. Empty means all runs.
	RunID string `json:"run_id,omitempty"`
}

// CommandCancel stops the targeted runs.
const CommandCancel = "cancel"

// ControlHandler is invoked for every decoded control message.
type ControlHandler func(Command)

// CheckupTopic is where check-up records of a run are published.
func CheckupTopic(prefix, runID string) string {
	return fmt.Sprintf("%s/runs/%s/checkup", prefix, runID)
}

// StatusTopic is where the final status of a run is published.
func StatusTopic(prefix, runID string) string {
	return fmt.Sprintf("%s/runs/%s/status", prefix, runID)
}
