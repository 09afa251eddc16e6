package observe

import "time"

type Kind string

type Status string

const (
	KindInvocation Kind = "invocation"
	KindProvider   Kind = "provider"
	KindTool       Kind = "tool"
	KindCustom     Kind = "custom"
)

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event is one operational record in a flow invocation's lifecycle:
// the invocation itself, a provider round-trip, or a tool dispatch.
type Event struct {
	ID           string         `json:"id,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	InvocationID string         `json:"invocationId,omitempty"`
	Flow         string         `json:"flow,omitempty"`
	Kind         Kind           `json:"kind"`
	Status       Status         `json:"status,omitempty"`
	Provider     string         `json:"provider,omitempty"`
	ToolName     string         `json:"toolName,omitempty"`
	Message      string         `json:"message,omitempty"`
	Error        string         `json:"error,omitempty"`
	DurationMs   int64          `json:"durationMs,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Kind == "" {
		e.Kind = KindCustom
	}
	if e.Attributes == nil {
		e.Attributes = map[string]any{}
	}
}
