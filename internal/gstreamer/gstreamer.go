// Package gstreamer implements the media boundary on top of GStreamer via
// go-gst.
package gstreamer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/smazurov/ouvrt-cameras/internal/logging"
	"github.com/smazurov/ouvrt-cameras/internal/media"
)

// busPollInterval bounds how long an unsubscribe waits for the bus reader.
const busPollInterval = 50 * time.Millisecond

var initOnce sync.Once

// Framework is a media.Framework backed by the GStreamer registry.
type Framework struct{}

// New initializes GStreamer (once per process) and returns the framework.
func New() *Framework {
	initOnce.Do(func() {
		gst.Init(nil)
	})
	return &Framework{}
}

// LookupProvider implements media.Framework.
func (f *Framework) LookupProvider(name string) (media.Provider, error) {
	p := findDeviceProvider(name)
	if p == nil {
		return nil, fmt.Errorf("%s: %w", name, media.ErrProviderNotFound)
	}
	return &provider{name: name, p: p}, nil
}

// NewElement implements media.Framework.
func (f *Framework) NewElement(factory string) (media.Element, error) {
	e, err := gst.NewElement(factory)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", factory, err)
	}
	return &element{e: e}, nil
}

// NewPipeline implements media.Framework.
func (f *Framework) NewPipeline(name string) (media.Pipeline, error) {
	p, err := gst.NewPipeline(name)
	if err != nil {
		return nil, fmt.Errorf("create pipeline %s: %w", name, err)
	}
	return &pipeline{
		p:      p,
		logger: logging.GetLogger("gstreamer").With("pipeline", name),
	}, nil
}

type provider struct {
	name string
	p    *deviceProvider
}

func (p *provider) Start() error {
	if !p.p.start() {
		return fmt.Errorf("%s refused to start", p.name)
	}
	return nil
}

func (p *provider) Stop() {
	p.p.stop()
}

func (p *provider) Devices() ([]media.Device, error) {
	devs := p.p.devices()
	out := make([]media.Device, 0, len(devs))
	for _, d := range devs {
		out = append(out, newDevice(d))
	}
	return out, nil
}

type device struct {
	d     *gst.Device
	name  string
	props media.Properties
	caps  []media.Capability
}

// newDevice reads everything the classifier needs up front, so later
// lookups do not go back into the provider.
func newDevice(d *gst.Device) *device {
	dev := &device{d: d, name: d.GetDisplayName()}

	if s := d.GetProperties(); s != nil {
		dev.props = media.Properties(structureFields(s))
	}

	if caps := d.GetCaps(); caps != nil {
		for i := 0; i < caps.GetSize(); i++ {
			if s := caps.GetStructureAt(i); s != nil {
				dev.caps = append(dev.caps, capability(s))
			}
		}
	}
	return dev
}

// capability copies one caps structure. Raw keeps the serialized form for
// the diagnostic line.
func capability(s *gst.Structure) media.Capability {
	return media.Capability{
		Kind:   s.Name(),
		Fields: structureFields(s),
		Raw:    s.String(),
	}
}

func structureFields(s *gst.Structure) map[string]string {
	values := s.Values()
	fields := make(map[string]string, len(values))
	for k, v := range values {
		if str, ok := v.(string); ok {
			fields[k] = str
			continue
		}
		fields[k] = fmt.Sprint(v)
	}
	return fields
}

func (d *device) DisplayName() string { return d.name }

func (d *device) Properties() media.Properties { return d.props }

func (d *device) Capabilities() []media.Capability { return d.caps }

func (d *device) CreateSource(factory string) (media.Element, error) {
	// The device picks the source factory itself; factory names the element.
	e := d.d.CreateElement(factory)
	if e == nil {
		return nil, fmt.Errorf("%s: device did not create a %s element", d.name, factory)
	}
	return &element{e: e}, nil
}

type element struct {
	e *gst.Element
}

func (e *element) Name() string { return e.e.GetName() }

type pipeline struct {
	p      *gst.Pipeline
	logger logging.Logger
}

func (p *pipeline) Name() string { return p.p.GetName() }

func (p *pipeline) Add(elements ...media.Element) error {
	es, err := unwrap(elements)
	if err != nil {
		return err
	}
	return p.p.AddMany(es...)
}

func (p *pipeline) Link(elements ...media.Element) error {
	es, err := unwrap(elements)
	if err != nil {
		return err
	}
	return gst.ElementLinkMany(es...)
}

func (p *pipeline) SetState(state media.State) error {
	return p.p.SetState(toGstState(state))
}

// Subscribe starts a reader that pops the pipeline bus into a channel of
// capacity buffer. The returned function stops the reader and closes the
// channel; it blocks for at most one poll interval.
func (p *pipeline) Subscribe(buffer int) (<-chan media.Message, func()) {
	out := make(chan media.Message, buffer)
	stop := make(chan struct{})
	done := make(chan struct{})
	bus := p.p.GetPipelineBus()
	name := p.p.GetName()

	go func() {
		defer close(done)
		defer close(out)
		for {
			select {
			case <-stop:
				return
			default:
			}

			msg := bus.TimedPop(busPollInterval)
			if msg == nil {
				continue
			}
			m, ok := convertMessage(msg, name)
			if !ok {
				continue
			}
			select {
			case out <- m:
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(stop)
			<-done
			p.logger.Debug("Bus reader stopped")
		})
	}
}

func unwrap(elements []media.Element) ([]*gst.Element, error) {
	out := make([]*gst.Element, 0, len(elements))
	for _, e := range elements {
		ge, ok := e.(*element)
		if !ok {
			return nil, errors.New("element does not belong to the gstreamer backend")
		}
		out = append(out, ge.e)
	}
	return out, nil
}

// convertMessage maps the bus messages the session reacts to. State changes
// of child elements are dropped; only the pipeline's own are kept.
func convertMessage(msg *gst.Message, pipelineName string) (media.Message, bool) {
	switch msg.Type() {
	case gst.MessageError:
		serr := convertError(msg.ParseError())
		serr.Domain, serr.Code = parseErrorOrigin(msg)
		return media.Message{
			Type:   media.MessageError,
			Source: msg.Source(),
			Err:    serr,
		}, true
	case gst.MessageEOS:
		return media.Message{Type: media.MessageEOS, Source: msg.Source()}, true
	case gst.MessageStateChanged:
		if msg.Source() != pipelineName {
			return media.Message{}, false
		}
		oldState, newState := msg.ParseStateChanged()
		return media.Message{
			Type:     media.MessageStateChanged,
			Source:   msg.Source(),
			OldState: fromGstState(oldState),
			NewState: fromGstState(newState),
		}, true
	default:
		return media.Message{}, false
	}
}

// convertError copies the message and debug text of a bus error.
func convertError(gerr *gst.GError) *media.StreamError {
	if gerr == nil {
		return &media.StreamError{Message: "unknown error"}
	}
	return &media.StreamError{
		Message: gerr.Error(),
		Debug:   gerr.DebugString(),
	}
}

func toGstState(s media.State) gst.State {
	switch s {
	case media.StateReady:
		return gst.StateReady
	case media.StatePaused:
		return gst.StatePaused
	case media.StatePlaying:
		return gst.StatePlaying
	default:
		return gst.StateNull
	}
}

func fromGstState(s gst.State) media.State {
	switch s {
	case gst.StateReady:
		return media.StateReady
	case gst.StatePaused:
		return media.StatePaused
	case gst.StatePlaying:
		return media.StatePlaying
	default:
		return media.StateNull
	}
}
