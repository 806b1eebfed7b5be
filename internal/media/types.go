package media

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Properties is the string metadata a provider attaches to a device.
type Properties map[string]string

// Lookup returns the value for key and whether it was present.
func (p Properties) Lookup(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p[key]
	return v, ok
}

// Equals reports whether key is present and equal to want.
// A missing key never matches.
func (p Properties) Equals(key, want string) bool {
	v, ok := p.Lookup(key)
	return ok && v == want
}

// Capability is one entry of a device's capability list, e.g. video/x-raw.
type Capability struct {
	Kind   string
	Fields map[string]string

	// Raw is the framework's own serialization, used for diagnostics.
	Raw string
}

// String returns Raw when set, otherwise a "kind, key=value, ..." rendering
// with keys in sorted order.
func (c Capability) String() string {
	if c.Raw != "" {
		return c.Raw
	}
	var b strings.Builder
	b.WriteString(c.Kind)
	for _, k := range slices.Sorted(maps.Keys(c.Fields)) {
		fmt.Fprintf(&b, ", %s=%s", k, c.Fields[k])
	}
	return b.String()
}

// MessageType identifies a bus message.
type MessageType int

// Bus message types the orchestrator reacts to.
const (
	MessageError MessageType = iota + 1
	MessageEOS
	MessageStateChanged
)

func (t MessageType) String() string {
	switch t {
	case MessageError:
		return "error"
	case MessageEOS:
		return "eos"
	case MessageStateChanged:
		return "state-changed"
	default:
		return "unknown"
	}
}

// Message is a bus notification posted by a running pipeline.
type Message struct {
	Type MessageType

	// Source is the name of the posting object.
	Source string

	// Err is set for MessageError.
	Err *StreamError

	// OldState and NewState are set for MessageStateChanged.
	OldState State
	NewState State
}

// StreamError is an error posted on a pipeline bus.
type StreamError struct {
	// Domain is the error quark name, e.g. gst-resource-error-quark.
	// Empty when the backend cannot report it.
	Domain  string
	Code    int
	Message string
	Debug   string
}

// Error renders like a GLib error: "domain: message (code)".
func (e *StreamError) Error() string {
	if e.Domain == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s (%d)", e.Domain, e.Message, e.Code)
}

// Resource error domain and the code a video sink posts when its window is
// closed by the user.
const (
	ResourceErrorDomain   = "gst-resource-error-quark"
	ResourceErrorNotFound = 3
	WindowClosedMessage   = "Output window was closed"
)

// IsWindowClosed reports whether err is the expected error a display sink
// posts when the user closes its window. Backends that cannot report the
// domain and code are matched on the message alone.
func IsWindowClosed(err *StreamError) bool {
	if err == nil || err.Message != WindowClosedMessage {
		return false
	}
	if err.Domain == "" {
		return true
	}
	return err.Domain == ResourceErrorDomain && err.Code == ResourceErrorNotFound
}
