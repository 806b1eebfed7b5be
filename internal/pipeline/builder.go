package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/smazurov/ouvrt-cameras/internal/devices"
	"github.com/smazurov/ouvrt-cameras/internal/logging"
	"github.com/smazurov/ouvrt-cameras/internal/media"
)

var (
	// ErrStageCreation means one of the three stages could not be instantiated.
	ErrStageCreation = errors.New("failed to create pipeline stage")
	// ErrLink means the stages could not be added to or linked in the pipeline.
	ErrLink = errors.New("failed to link pipeline")
	// ErrSealed is returned by Build once the builder has been sealed for shutdown.
	ErrSealed = errors.New("pipeline builder sealed")
)

// Factories names the element factories used for each stage.
type Factories struct {
	Source  string
	Convert string
	Sink    string
}

// DefaultFactories is pipewiresrc ! videoconvert ! autovideosink.
func DefaultFactories() Factories {
	return Factories{
		Source:  "pipewiresrc",
		Convert: "videoconvert",
		Sink:    "autovideosink",
	}
}

// Builder assembles pipelines.
type Builder struct {
	fw        media.Framework
	factories Factories
	logger    *slog.Logger
	sealed    atomic.Bool
}

// NewBuilder creates a builder. Empty factory names fall back to DefaultFactories.
func NewBuilder(fw media.Framework, factories Factories) *Builder {
	def := DefaultFactories()
	if factories.Source == "" {
		factories.Source = def.Source
	}
	if factories.Convert == "" {
		factories.Convert = def.Convert
	}
	if factories.Sink == "" {
		factories.Sink = def.Sink
	}
	return &Builder{
		fw:        fw,
		factories: factories,
		logger:    logging.GetLogger("pipeline"),
	}
}

// Seal makes every later Build call fail with ErrSealed.
func (b *Builder) Seal() {
	b.sealed.Store(true)
}

// Build assembles the pipeline for src without starting it. The pipeline is
// named pipe<index>.
func (b *Builder) Build(index int, src *devices.CaptureSource) (*Pipeline, error) {
	if b.sealed.Load() {
		return nil, ErrSealed
	}

	id := fmt.Sprintf("pipe%d", index)
	logger := b.logger.With("pipeline", id, "device", src.DisplayName)

	bin, err := b.fw.NewPipeline(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: pipeline: %w", id, ErrStageCreation, err)
	}

	source, err := src.Element(b.factories.Source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s: %w", id, ErrStageCreation, b.factories.Source, err)
	}
	convert, err := b.fw.NewElement(b.factories.Convert)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s: %w", id, ErrStageCreation, b.factories.Convert, err)
	}
	sink, err := b.fw.NewElement(b.factories.Sink)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s: %w", id, ErrStageCreation, b.factories.Sink, err)
	}

	stages := []media.Element{source, convert, sink}
	if err := bin.Add(stages...); err != nil {
		return nil, fmt.Errorf("%s: %w: add: %w", id, ErrLink, err)
	}
	if err := bin.Link(stages...); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", id, ErrLink, err)
	}

	logger.Debug("Pipeline built",
		"source", b.factories.Source,
		"convert", b.factories.Convert,
		"sink", b.factories.Sink)

	return &Pipeline{
		id:     id,
		source: src.DisplayName,
		bin:    bin,
		stages: stages,
		logger: logger,
		state:  StateCreated,
	}, nil
}
