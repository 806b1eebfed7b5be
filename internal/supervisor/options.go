package supervisor

import (
	"time"

	"github.com/smazurov/ouvrt-cameras/internal/events"
	"github.com/smazurov/ouvrt-cameras/internal/logging"
	"github.com/smazurov/ouvrt-cameras/internal/pipeline"
)

// StateChangeCallback is called when a pipeline state changes.
// Used for domain-specific reactions (e.g., readiness notification).
type StateChangeCallback func(id string, oldState, newState pipeline.State, err error)

// Options configures a new Supervisor.
type Options struct {
	// EventBuffer is the capacity of each pipeline channel and of the fan-in
	// channel. Defaults to pipeline.DefaultEventBuffer.
	EventBuffer int

	// StopTimeout bounds how long StopAll waits for a single pipeline.
	// Defaults to 10 seconds.
	StopTimeout time.Duration

	// OnStateChange is called when a pipeline state transitions (optional).
	OnStateChange StateChangeCallback

	// Bus receives PipelineStateChangedEvent for every transition (optional).
	Bus *events.Bus

	// Logger for supervisor operations. If nil, uses the "supervisor" module logger.
	Logger logging.Logger
}
