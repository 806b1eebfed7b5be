package events

// Event type constants for kelindar/event.
const (
	TypeDeviceDiscovered uint32 = iota + 1
	TypePipelineStateChanged
	TypePipelineError
	TypeSessionShutdown
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DeviceDiscoveredEvent is published once per device seen during discovery.
type DeviceDiscoveredEvent struct {
	Device    string `json:"device"`
	Accepted  bool   `json:"accepted"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for DeviceDiscoveredEvent.
func (e DeviceDiscoveredEvent) Type() uint32 { return TypeDeviceDiscovered }

// PipelineStateChangedEvent is published on every pipeline lifecycle transition.
type PipelineStateChangedEvent struct {
	PipelineID string `json:"pipeline_id"`
	Device     string `json:"device"`
	From       string `json:"from"`
	To         string `json:"to"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for PipelineStateChangedEvent.
func (e PipelineStateChangedEvent) Type() uint32 { return TypePipelineStateChanged }

// PipelineErrorEvent is published when a pipeline posts an error on its bus.
type PipelineErrorEvent struct {
	PipelineID string `json:"pipeline_id"`
	Domain     string `json:"domain,omitempty"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Debug      string `json:"debug,omitempty"`
	// Benign is set for the window-closed error a display sink posts.
	Benign    bool   `json:"benign"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for PipelineErrorEvent.
func (e PipelineErrorEvent) Type() uint32 { return TypePipelineError }

// SessionShutdownEvent is published once when the control loop starts
// shutting down.
type SessionShutdownEvent struct {
	Reason     string `json:"reason"`
	PipelineID string `json:"pipeline_id,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for SessionShutdownEvent.
func (e SessionShutdownEvent) Type() uint32 { return TypeSessionShutdown }
