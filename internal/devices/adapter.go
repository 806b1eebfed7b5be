// Package devices discovers capture devices through a media device provider
// and classifies them into capture sources.
package devices

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/smazurov/ouvrt-cameras/internal/logging"
	"github.com/smazurov/ouvrt-cameras/internal/media"
)

// DefaultProviderName is the GStreamer PipeWire device provider factory.
const DefaultProviderName = "pipewiredeviceprovider"

var (
	// ErrProviderNotFound means the device provider capability is not available.
	ErrProviderNotFound = media.ErrProviderNotFound
	// ErrProviderStartFailed means the device registry could not be activated.
	ErrProviderStartFailed = errors.New("failed to start device provider")
	// ErrProviderNotStarted is returned when listing devices before Start.
	ErrProviderNotStarted = errors.New("device provider not started")
)

// Descriptor is a snapshot of one device reported by the provider.
type Descriptor struct {
	DisplayName  string
	Properties   media.Properties
	Capabilities []media.Capability

	device media.Device
}

// NewDescriptor snapshots d.
func NewDescriptor(d media.Device) Descriptor {
	var caps []media.Capability
	for _, c := range d.Capabilities() {
		c.Fields = maps.Clone(c.Fields)
		caps = append(caps, c)
	}
	return Descriptor{
		DisplayName:  d.DisplayName(),
		Properties:   maps.Clone(d.Properties()),
		Capabilities: slices.Clip(caps),
		device:       d,
	}
}

// Adapter wraps a media.Provider with the start/list/stop contract.
type Adapter struct {
	name     string
	provider media.Provider
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
}

// Lookup finds the named provider. It fails with ErrProviderNotFound before
// anything is started.
func Lookup(fw media.Framework, name string) (*Adapter, error) {
	p, err := fw.LookupProvider(name)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderNotFound, err)
	}
	return &Adapter{
		name:     name,
		provider: p,
		logger:   logging.GetLogger("devices").With("provider", name),
	}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return a.name
}

// Start activates the device registry.
func (a *Adapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}
	if err := a.provider.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrProviderStartFailed, err)
	}
	a.started = true
	a.logger.Debug("Device provider started")
	return nil
}

// ListDevices snapshots the devices currently known to the provider.
func (a *Adapter) ListDevices() ([]Descriptor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil, ErrProviderNotStarted
	}

	devs, err := a.provider.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	descs := make([]Descriptor, 0, len(devs))
	for _, d := range devs {
		descs = append(descs, NewDescriptor(d))
	}
	a.logger.Debug("Listed devices", "count", len(descs))
	return descs, nil
}

// Stop deactivates the provider. Safe to call any number of times.
func (a *Adapter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return
	}
	a.provider.Stop()
	a.started = false
	a.logger.Debug("Device provider stopped")
}

// Discover runs Start, ListDevices and Stop in order. Stop is called exactly
// once after a successful Start, whatever ListDevices returns.
func (a *Adapter) Discover() ([]Descriptor, error) {
	if err := a.Start(); err != nil {
		return nil, err
	}
	defer a.Stop()
	return a.ListDevices()
}
