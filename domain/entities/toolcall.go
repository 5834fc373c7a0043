package entities

import "time"

// ToolStatus represents the lifecycle state of a tool invocation.
type ToolStatus string

const (
	ToolStatusRunning   ToolStatus = "running"
	ToolStatusCompleted ToolStatus = "completed"
	ToolStatusError     ToolStatus = "error"
)

// ToolCall tracks one backend tool invocation from start to terminal state.
// The wire protocol carries no stable invocation id, so Key is derived from
// the tool name plus a per-name activation sequence.
type ToolCall struct {
	Key       string     `json:"key"`
	Name      string     `json:"name"`
	Status    ToolStatus `json:"status"`
	Progress  int        `json:"progress"`
	Payload   string     `json:"payload,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	ElapsedMs int64      `json:"elapsed_ms"`
}

// Terminal reports whether the call has reached a terminal status.
func (t *ToolCall) Terminal() bool {
	return t.Status == ToolStatusCompleted || t.Status == ToolStatusError
}
