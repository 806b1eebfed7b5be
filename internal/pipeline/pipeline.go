// Package pipeline builds and drives the per-camera source -> convert -> sink
// playback chains.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/ouvrt-cameras/internal/media"
)

// State is the lifecycle state of a Pipeline.
type State string

// Pipeline lifecycle states. Transitions only move forward.
const (
	StateCreated State = "created"
	StatePlaying State = "playing"
	StateStopped State = "stopped"
)

// ErrInvalidTransition is returned when a lifecycle step is taken out of order.
var ErrInvalidTransition = errors.New("invalid pipeline state transition")

// DefaultEventBuffer is the capacity of each pipeline's event channel.
const DefaultEventBuffer = 16

// Pipeline is one assembled playback chain bound to one capture source.
type Pipeline struct {
	id     string
	source string
	bin    media.Pipeline
	stages []media.Element
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	unsubscribe func()
}

// ID returns the pipeline name, e.g. pipe0.
func (p *Pipeline) ID() string {
	return p.id
}

// Source returns the display name of the bound device.
func (p *Pipeline) Source() string {
	return p.source
}

// Stages returns the source, convert and sink elements in link order.
func (p *Pipeline) Stages() []media.Element {
	out := make([]media.Element, len(p.stages))
	copy(out, p.stages)
	return out
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start subscribes to the pipeline bus and then sets it playing, so no message
// posted during the state change is lost. The returned channel is closed by Stop.
func (p *Pipeline) Start(buffer int) (<-chan media.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateCreated {
		return nil, fmt.Errorf("%s: start from %s: %w", p.id, p.state, ErrInvalidTransition)
	}
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}

	messages, unsubscribe := p.bin.Subscribe(buffer)
	p.unsubscribe = unsubscribe

	if err := p.bin.SetState(media.StatePlaying); err != nil {
		p.stopLocked()
		return nil, fmt.Errorf("%s: set playing: %w", p.id, err)
	}

	p.state = StatePlaying
	p.logger.Debug("Pipeline playing")
	return messages, nil
}

// Stop moves the pipeline to the null state and releases its bus
// subscription. Stopping a stopped pipeline is a no-op. The pipeline is
// considered stopped even when the framework reports an error.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateStopped {
		return nil
	}
	return p.stopLocked()
}

func (p *Pipeline) stopLocked() error {
	err := p.bin.SetState(media.StateNull)
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	p.state = StateStopped
	if err != nil {
		return fmt.Errorf("%s: set null: %w", p.id, err)
	}
	p.logger.Debug("Pipeline stopped")
	return nil
}
