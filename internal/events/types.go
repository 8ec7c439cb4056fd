package events

// Event type constants for kelindar/event.
const (
	TypeFormatSwitched uint32 = iota + 1
	TypeFormatSwitchRejected
	TypeStreamStarted
	TypeStreamStopped
	TypeFrameDropped
	TypeSinkActivity
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// FormatSwitchedEvent is published after a format switch commits.
type FormatSwitchedEvent struct {
	Index     int      `json:"index" example:"1" doc:"New active format index"`
	Width     uint32   `json:"width" example:"1280" doc:"Active format width"`
	Height    uint32   `json:"height" example:"720" doc:"Active format height"`
	Durations []string `json:"durations" doc:"Negotiated frame durations"`
	Timestamp string   `json:"timestamp" example:"2026-08-26T10:30:00Z" doc:"Commit timestamp"`
}

// Type returns the event type identifier for FormatSwitchedEvent.
func (e FormatSwitchedEvent) Type() uint32 { return TypeFormatSwitched }

// FormatSwitchRejectedEvent is published when a switch request is refused.
type FormatSwitchRejectedEvent struct {
	Requested int    `json:"requested" example:"9" doc:"Requested format index"`
	Reason    string `json:"reason" example:"index out of range" doc:"Rejection reason"`
	Timestamp string `json:"timestamp" example:"2026-08-26T10:30:00Z" doc:"Rejection timestamp"`
}

// Type returns the event type identifier for FormatSwitchRejectedEvent.
func (e FormatSwitchRejectedEvent) Type() uint32 { return TypeFormatSwitchRejected }

// StreamStartedEvent is published when a direction goes from zero clients
// to at least one.
type StreamStartedEvent struct {
	StreamID  string `json:"stream_id" doc:"Stream identifier"`
	Direction string `json:"direction" example:"source" doc:"Stream direction"`
	Timestamp string `json:"timestamp" example:"2026-08-26T10:30:00Z" doc:"Start timestamp"`
}

// Type returns the event type identifier for StreamStartedEvent.
func (e StreamStartedEvent) Type() uint32 { return TypeStreamStarted }

// StreamStoppedEvent is published when a direction's client count returns
// to zero.
type StreamStoppedEvent struct {
	StreamID  string `json:"stream_id" doc:"Stream identifier"`
	Direction string `json:"direction" example:"sink" doc:"Stream direction"`
	Timestamp string `json:"timestamp" example:"2026-08-26T10:30:00Z" doc:"Stop timestamp"`
}

// Type returns the event type identifier for StreamStoppedEvent.
func (e StreamStoppedEvent) Type() uint32 { return TypeStreamStopped }

// FrameDroppedEvent is published (rate-limited at the source) when a frame
// could not be produced or delivered.
type FrameDroppedEvent struct {
	Origin    string `json:"origin" example:"placeholder" doc:"Frame origin: placeholder or sink"`
	Reason    string `json:"reason" example:"pool_exhausted" doc:"Drop reason"`
	Timestamp string `json:"timestamp" example:"2026-08-26T10:30:00Z" doc:"Drop timestamp"`
}

// Type returns the event type identifier for FrameDroppedEvent.
func (e FrameDroppedEvent) Type() uint32 { return TypeFrameDropped }

// SinkActivityEvent is published when the sink direction goes live or idle.
type SinkActivityEvent struct {
	Live      bool   `json:"live" doc:"Whether a producer is actively streaming"`
	Timestamp string `json:"timestamp" example:"2026-08-26T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for SinkActivityEvent.
func (e SinkActivityEvent) Type() uint32 { return TypeSinkActivity }

// LogEntryEvent carries one structured log line to SSE subscribers.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2026-08-26T10:30:00.123456789Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"camera" doc:"Originating module"`
	Message    string         `json:"message" example:"Format switched" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
