// Package mediatest provides in-memory fakes of the media boundary for tests.
package mediatest

import (
	"fmt"
	"sync"

	"github.com/smazurov/ouvrt-cameras/internal/media"
)

// Framework is a fake media.Framework.
type Framework struct {
	mu          sync.Mutex
	providers   map[string]*Provider
	elementErrs map[string]error
	pipelines   []*Pipeline
	lookups     int
}

// NewFramework creates an empty fake framework.
func NewFramework() *Framework {
	return &Framework{
		providers:   make(map[string]*Provider),
		elementErrs: make(map[string]error),
	}
}

// AddProvider registers p under name.
func (f *Framework) AddProvider(name string, p *Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers[name] = p
}

// FailElement makes NewElement(factory) fail with err.
func (f *Framework) FailElement(factory string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elementErrs[factory] = err
}

// Pipelines returns every pipeline allocated so far.
func (f *Framework) Pipelines() []*Pipeline {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Pipeline, len(f.pipelines))
	copy(out, f.pipelines)
	return out
}

// Lookups returns how many provider lookups were made.
func (f *Framework) Lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

// LookupProvider implements media.Framework.
func (f *Framework) LookupProvider(name string) (media.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	p, ok := f.providers[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, media.ErrProviderNotFound)
	}
	return p, nil
}

// NewElement implements media.Framework.
func (f *Framework) NewElement(factory string) (media.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.elementErrs[factory]; err != nil {
		return nil, err
	}
	return &Element{name: factory, Factory: factory}, nil
}

// NewPipeline implements media.Framework.
func (f *Framework) NewPipeline(name string) (media.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &Pipeline{name: name, stateErrs: make(map[media.State]error)}
	f.pipelines = append(f.pipelines, p)
	return p, nil
}

// Provider is a fake media.Provider.
type Provider struct {
	StartErr   error
	DeviceList []*Device

	mu      sync.Mutex
	started bool
	starts  int
	stops   int
}

// NewProvider creates a provider reporting devices.
func NewProvider(devices ...*Device) *Provider {
	return &Provider{DeviceList: devices}
}

// Start implements media.Provider.
func (p *Provider) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts++
	if p.StartErr != nil {
		return p.StartErr
	}
	p.started = true
	return nil
}

// Stop implements media.Provider.
func (p *Provider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	p.started = false
}

// Devices implements media.Provider.
func (p *Provider) Devices() ([]media.Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil, fmt.Errorf("provider not started")
	}
	out := make([]media.Device, len(p.DeviceList))
	for i, d := range p.DeviceList {
		out[i] = d
	}
	return out, nil
}

// Calls returns the number of Start and Stop calls.
func (p *Provider) Calls() (starts, stops int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts, p.stops
}

// Device is a fake media.Device.
type Device struct {
	Name      string
	Props     media.Properties
	Caps      []media.Capability
	SourceErr error

	mu      sync.Mutex
	sources int
}

// NewCamera returns a device that passes every classifier predicate.
func NewCamera(name string) *Device {
	return &Device{
		Name: name,
		Props: media.Properties{
			"media.name":        "ouvrt-camera",
			"pipewire.category": "Capture",
		},
		Caps: []media.Capability{{
			Kind:   "video/x-raw",
			Fields: map[string]string{"format": "GRAY8", "width": "1280", "height": "960"},
		}},
	}
}

// DisplayName implements media.Device.
func (d *Device) DisplayName() string { return d.Name }

// Properties implements media.Device.
func (d *Device) Properties() media.Properties { return d.Props }

// Capabilities implements media.Device.
func (d *Device) Capabilities() []media.Capability { return d.Caps }

// CreateSource implements media.Device.
func (d *Device) CreateSource(name string) (media.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SourceErr != nil {
		return nil, d.SourceErr
	}
	d.sources++
	return &Element{name: fmt.Sprintf("%s-%s", name, d.Name), Factory: name}, nil
}

// Sources returns how many source elements were created from d.
func (d *Device) Sources() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sources
}

// Element is a fake media.Element.
type Element struct {
	name    string
	Factory string
}

// Name implements media.Element.
func (e *Element) Name() string { return e.name }

// Pipeline is a fake media.Pipeline that records what was done to it.
type Pipeline struct {
	name string

	mu          sync.Mutex
	elements    []media.Element
	links       []string
	states      []media.State
	stateErrs   map[media.State]error
	messages    chan media.Message
	subscribed  bool
	unsubscribe sync.Once
}

// Name implements media.Pipeline.
func (p *Pipeline) Name() string { return p.name }

// Add implements media.Pipeline.
func (p *Pipeline) Add(elements ...media.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements = append(p.elements, elements...)
	return nil
}

// Link implements media.Pipeline.
func (p *Pipeline) Link(elements ...media.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i+1 < len(elements); i++ {
		p.links = append(p.links, elements[i].Name()+"->"+elements[i+1].Name())
	}
	return nil
}

// FailState makes SetState(state) fail with err.
func (p *Pipeline) FailState(state media.State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stateErrs[state] = err
}

// SetState implements media.Pipeline.
func (p *Pipeline) SetState(state media.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, state)
	return p.stateErrs[state]
}

// Subscribe implements media.Pipeline.
func (p *Pipeline) Subscribe(buffer int) (<-chan media.Message, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = make(chan media.Message, buffer)
	p.subscribed = true
	return p.messages, func() {
		p.unsubscribe.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.subscribed = false
			close(p.messages)
		})
	}
}

// Post delivers msg to the subscriber. It reports false when nobody is
// subscribed or the buffer is full.
func (p *Pipeline) Post(msg media.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.subscribed {
		return false
	}
	if msg.Source == "" {
		msg.Source = p.name
	}
	select {
	case p.messages <- msg:
		return true
	default:
		return false
	}
}

// Subscribed reports whether a subscriber is currently attached.
func (p *Pipeline) Subscribed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscribed
}

// Elements returns the names of the added elements in order.
func (p *Pipeline) Elements() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.elements))
	for i, e := range p.elements {
		names[i] = e.Name()
	}
	return names
}

// Links returns the links made, as "src->dst".
func (p *Pipeline) Links() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.links))
	copy(out, p.links)
	return out
}

// States returns every state requested through SetState.
func (p *Pipeline) States() []media.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]media.State, len(p.states))
	copy(out, p.states)
	return out
}
