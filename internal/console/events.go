package console

// Event topics published by console sessions for every action that reaches
// the backend.
const (
	TopicMachineCreated       = "console.machine.created"
	TopicMachineUpdated       = "console.machine.updated"
	TopicMachineDeleted       = "console.machine.deleted"
	TopicMachineHealthChecked = "console.machine.health_checked"
)

// Outcomes carried by ActionEvent.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// ActionEvent is the payload for every console topic.
type ActionEvent struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
	MachineID string `json:"machine_id,omitempty"`
	MachineIP string `json:"machine_ip,omitempty"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
}
