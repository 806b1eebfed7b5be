// Package control runs the single select point that decides when a camera
// session ends.
package control

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/ouvrt-cameras/internal/events"
	"github.com/smazurov/ouvrt-cameras/internal/logging"
	"github.com/smazurov/ouvrt-cameras/internal/media"
	"github.com/smazurov/ouvrt-cameras/internal/supervisor"
)

// State of the control loop.
type State int32

// Loop states. Transitions only move forward.
const (
	StateRunning State = iota
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting-down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Reason records why the loop left Running.
type Reason string

// Shutdown reasons.
const (
	ReasonSignal       Reason = "signal"
	ReasonWindowClosed Reason = "window-closed"
	ReasonEndOfStream  Reason = "end-of-stream"
	ReasonError        Reason = "error"
	ReasonEventsClosed Reason = "events-closed"
	ReasonRequested    Reason = "requested"
)

// Result is what Run returns once the loop has terminated.
type Result struct {
	Reason     Reason
	PipelineID string
	Err        error
}

// Option configures a Loop.
type Option func(*Loop)

// WithStderr sets where runtime pipeline errors are reported. Defaults to os.Stderr.
func WithStderr(w io.Writer) Option {
	return func(l *Loop) { l.stderr = w }
}

// WithBus publishes pipeline errors and the shutdown on bus.
func WithBus(bus *events.Bus) Option {
	return func(l *Loop) { l.bus = bus }
}

// WithLogger overrides the "control" module logger.
func WithLogger(logger logging.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// WithShutdownHook registers fn to run once, on entry to ShuttingDown.
func WithShutdownHook(fn func(Result)) Option {
	return func(l *Loop) { l.onShutdown = fn }
}

// Loop observes pipeline events and the termination context and ends the
// session on the first terminal condition.
type Loop struct {
	events     <-chan supervisor.Event
	stderr     io.Writer
	bus        *events.Bus
	logger     logging.Logger
	onShutdown func(Result)

	state    atomic.Int32
	shutdown chan struct{}
	once     sync.Once
	result   Result
}

// New creates a loop reading from evs.
func New(evs <-chan supervisor.Event, opts ...Option) *Loop {
	l := &Loop{
		events:   evs,
		stderr:   os.Stderr,
		shutdown: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logging.GetLogger("control")
	}
	return l
}

// State returns the current loop state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Shutdown asks the loop to stop. Only the first request, from any source,
// enters ShuttingDown.
func (l *Loop) Shutdown(reason Reason) {
	l.enterShutdown(Result{Reason: reason})
}

// Run blocks until a terminal condition and returns its Result. A cancelled
// ctx is a termination request.
func (l *Loop) Run(ctx context.Context) Result {
	l.logger.Debug("Control loop running")

	for l.State() == StateRunning {
		select {
		case <-ctx.Done():
			l.enterShutdown(Result{Reason: ReasonSignal})
		case <-l.shutdown:
		case ev, ok := <-l.events:
			if !ok {
				l.enterShutdown(Result{Reason: ReasonEventsClosed})
				continue
			}
			l.handle(ev)
		}
	}

	l.state.Store(int32(StateTerminated))
	l.logger.Debug("Control loop terminated", "reason", l.result.Reason)
	return l.result
}

func (l *Loop) handle(ev supervisor.Event) {
	switch ev.Type {
	case media.MessageError:
		l.handleError(ev)
	case media.MessageEOS:
		l.logger.Info("End of stream", "pipeline", ev.PipelineID, "device", ev.Device)
		l.enterShutdown(Result{Reason: ReasonEndOfStream, PipelineID: ev.PipelineID})
	case media.MessageStateChanged:
		l.logger.Debug("State changed",
			"pipeline", ev.PipelineID,
			"source", ev.Source,
			"old", ev.OldState,
			"new", ev.NewState)
	}
}

func (l *Loop) handleError(ev supervisor.Event) {
	serr := ev.Err
	if serr == nil {
		serr = &media.StreamError{Message: "unknown error"}
	}
	benign := media.IsWindowClosed(serr)

	l.bus.Publish(events.PipelineErrorEvent{
		PipelineID: ev.PipelineID,
		Domain:     serr.Domain,
		Code:       serr.Code,
		Message:    serr.Message,
		Debug:      serr.Debug,
		Benign:     benign,
		Timestamp:  time.Now().Format(time.RFC3339),
	})

	if benign {
		l.logger.Info("Output window closed", "pipeline", ev.PipelineID)
		l.enterShutdown(Result{Reason: ReasonWindowClosed, PipelineID: ev.PipelineID})
		return
	}

	fmt.Fprintf(l.stderr, "Error: %s: %s\n", serr.Error(), serr.Debug)
	l.enterShutdown(Result{Reason: ReasonError, PipelineID: ev.PipelineID, Err: serr})
}

func (l *Loop) enterShutdown(res Result) {
	l.once.Do(func() {
		l.result = res
		l.state.Store(int32(StateShuttingDown))
		close(l.shutdown)

		l.logger.Info("Shutting down", "reason", res.Reason, "pipeline", res.PipelineID)
		l.bus.Publish(events.SessionShutdownEvent{
			Reason:     string(res.Reason),
			PipelineID: res.PipelineID,
			Timestamp:  time.Now().Format(time.RFC3339),
		})
		if l.onShutdown != nil {
			l.onShutdown(res)
		}
	})
}
