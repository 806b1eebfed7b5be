package supervisor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/ouvrt-cameras/internal/events"
	"github.com/smazurov/ouvrt-cameras/internal/logging"
	"github.com/smazurov/ouvrt-cameras/internal/media"
	"github.com/smazurov/ouvrt-cameras/internal/pipeline"
)

var (
	// ErrStopped is returned by StartAll once StopAll has run.
	ErrStopped = errors.New("supervisor stopped")
	// ErrStopTimeout is reported when a pipeline does not stop in time.
	ErrStopTimeout = errors.New("timeout waiting for pipeline to stop")
)

const defaultStopTimeout = 10 * time.Second

// Event is a bus message tagged with the pipeline that posted it.
type Event struct {
	PipelineID string
	Device     string
	media.Message
}

// Supervisor starts, observes and stops a set of pipelines.
type Supervisor struct {
	opts   Options
	logger logging.Logger

	// lifecycle serializes StartAll and StopAll.
	lifecycle sync.Mutex

	mu        sync.Mutex
	pipelines []*pipeline.Pipeline
	stopping  bool

	events   chan Event
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopErr  error
}

// New creates a supervisor.
func New(opts *Options) *Supervisor {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = pipeline.DefaultEventBuffer
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = defaultStopTimeout
	}

	logger := o.Logger
	if logger == nil {
		logger = logging.GetLogger("supervisor")
	}

	return &Supervisor{
		opts:   o,
		logger: logger,
		events: make(chan Event, o.EventBuffer),
		done:   make(chan struct{}),
	}
}

// Events returns the fan-in channel of all pipeline bus messages. It is
// closed once StopAll has released every pipeline.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// Pipelines returns the supervised pipelines in start order.
func (s *Supervisor) Pipelines() []*pipeline.Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*pipeline.Pipeline, len(s.pipelines))
	copy(out, s.pipelines)
	return out
}

// Adopt takes ownership of pipes without starting them, so that StopAll
// releases them. Used when setup fails before the pipelines can be started.
func (s *Supervisor) Adopt(pipes ...*pipeline.Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return ErrStopped
	}
	s.pipelines = append(s.pipelines, pipes...)
	return nil
}

// StartAll takes ownership of pipes and sets each one playing. A pipeline
// that fails to start does not prevent the others from starting; the
// failures are returned joined. Pipelines are owned by the supervisor even
// when their start failed, so StopAll always covers them.
func (s *Supervisor) StartAll(pipes []*pipeline.Pipeline) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return ErrStopped
	}
	s.pipelines = append(s.pipelines, pipes...)
	s.mu.Unlock()

	var errs []error
	for _, p := range pipes {
		msgs, err := p.Start(s.opts.EventBuffer)
		if err != nil {
			s.logger.Debug("Failed to start pipeline", "pipeline", p.ID(), "error", err)
			s.notifyStateChange(p, pipeline.StateCreated, p.State(), err)
			errs = append(errs, err)
			continue
		}
		s.notifyStateChange(p, pipeline.StateCreated, pipeline.StatePlaying, nil)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.forward(p, msgs)
		}()
	}

	s.logger.Info("Pipelines started", "count", len(pipes)-len(errs), "failed", len(errs))
	return errors.Join(errs...)
}

// forward copies one pipeline's bus messages into the fan-in channel until
// the pipeline unsubscribes or the supervisor stops.
func (s *Supervisor) forward(p *pipeline.Pipeline, msgs <-chan media.Message) {
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			ev := Event{PipelineID: p.ID(), Device: p.Source(), Message: msg}
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}

// StopAll stops every pipeline. It runs once; later calls return the first
// result. Stop failures do not prevent the remaining pipelines from stopping.
func (s *Supervisor) StopAll() error {
	s.stopOnce.Do(func() {
		s.stopErr = s.stopAll()
	})
	return s.stopErr
}

func (s *Supervisor) stopAll() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.logger.Info("Stopping all pipelines")

	s.mu.Lock()
	s.stopping = true
	pipes := make([]*pipeline.Pipeline, len(s.pipelines))
	copy(pipes, s.pipelines)
	s.mu.Unlock()

	close(s.done)

	var errs []error
	for _, p := range pipes {
		old := p.State()
		if old == pipeline.StateStopped {
			continue
		}
		err := s.stopPipeline(p)
		if err != nil {
			s.logger.Warn("Failed to stop pipeline", "pipeline", p.ID(), "error", err)
			errs = append(errs, err)
		}
		s.notifyStateChange(p, old, pipeline.StateStopped, err)
	}

	s.wg.Wait()
	close(s.events)

	s.logger.Info("All pipelines stopped", "count", len(pipes))
	return errors.Join(errs...)
}

func (s *Supervisor) stopPipeline(p *pipeline.Pipeline) error {
	done := make(chan error, 1)
	go func() {
		done <- p.Stop()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(s.opts.StopTimeout):
		return fmt.Errorf("%s: %w", p.ID(), ErrStopTimeout)
	}
}

// notifyStateChange invokes the OnStateChange callback and publishes the
// transition on the event bus.
func (s *Supervisor) notifyStateChange(p *pipeline.Pipeline, oldState, newState pipeline.State, err error) {
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(p.ID(), oldState, newState, err)
	}

	ev := events.PipelineStateChangedEvent{
		PipelineID: p.ID(),
		Device:     p.Source(),
		From:       string(oldState),
		To:         string(newState),
		Timestamp:  time.Now().Format(time.RFC3339),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.opts.Bus.Publish(ev)
}
