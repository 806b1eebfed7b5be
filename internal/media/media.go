// Package media defines the boundary between the camera orchestrator and the
// media framework that actually owns devices, elements and pipelines.
//
// The orchestrator only ever talks to these interfaces. The GStreamer backend
// lives in internal/gstreamer; tests use the fakes in internal/media/mediatest.
package media

import (
	"errors"
	"fmt"
)

// ErrProviderNotFound is returned by Framework.LookupProvider when no device
// provider with the requested name is registered.
var ErrProviderNotFound = errors.New("device provider not found")

// State is a framework pipeline state.
type State int

// Framework pipeline states, in the order the framework walks through them.
const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Framework creates providers, elements and pipelines.
type Framework interface {
	// LookupProvider returns the device provider registered under name,
	// or ErrProviderNotFound.
	LookupProvider(name string) (Provider, error)

	// NewElement instantiates a generic element from a factory name.
	NewElement(factory string) (Element, error)

	// NewPipeline allocates an empty pipeline container.
	NewPipeline(name string) (Pipeline, error)
}

// Provider is a device registry that must be started before it can list devices.
type Provider interface {
	Start() error
	Stop()
	Devices() ([]Device, error)
}

// Device is one unit reported by a Provider.
type Device interface {
	DisplayName() string
	Properties() Properties
	Capabilities() []Capability

	// CreateSource creates the source element bound to this device.
	CreateSource(name string) (Element, error)
}

// Element is an opaque processing stage.
type Element interface {
	Name() string
}

// Pipeline is a framework pipeline container.
type Pipeline interface {
	Name() string
	Add(elements ...Element) error
	Link(elements ...Element) error
	SetState(state State) error

	// Subscribe starts delivering bus messages into a channel with the given
	// capacity. The returned function stops delivery and closes the channel.
	Subscribe(buffer int) (<-chan Message, func())
}
