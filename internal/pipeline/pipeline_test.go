package pipeline

import (
	"errors"
	"slices"
	"testing"

	"github.com/smazurov/ouvrt-cameras/internal/devices"
	"github.com/smazurov/ouvrt-cameras/internal/media"
	"github.com/smazurov/ouvrt-cameras/internal/media/mediatest"
)

func captureSource(cam *mediatest.Device) *devices.CaptureSource {
	return &devices.CaptureSource{Descriptor: devices.NewDescriptor(cam)}
}

func TestBuildLinksStagesInOrder(t *testing.T) {
	fw := mediatest.NewFramework()
	b := NewBuilder(fw, Factories{})

	p, err := b.Build(0, captureSource(mediatest.NewCamera("cam0")))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if p.ID() != "pipe0" || p.Source() != "cam0" {
		t.Errorf("got id=%q source=%q", p.ID(), p.Source())
	}
	if p.State() != StateCreated {
		t.Errorf("State() = %s, want created", p.State())
	}

	bins := fw.Pipelines()
	if len(bins) != 1 {
		t.Fatalf("framework allocated %d pipelines, want 1", len(bins))
	}
	wantElems := []string{"pipewiresrc-cam0", "videoconvert", "autovideosink"}
	if got := bins[0].Elements(); !slices.Equal(got, wantElems) {
		t.Errorf("elements = %v, want %v", got, wantElems)
	}
	wantLinks := []string{"pipewiresrc-cam0->videoconvert", "videoconvert->autovideosink"}
	if got := bins[0].Links(); !slices.Equal(got, wantLinks) {
		t.Errorf("links = %v, want %v", got, wantLinks)
	}
	if len(bins[0].States()) != 0 {
		t.Errorf("Build changed pipeline state: %v", bins[0].States())
	}
}

func TestBuildCustomFactories(t *testing.T) {
	fw := mediatest.NewFramework()
	b := NewBuilder(fw, Factories{Sink: "fakesink"})

	if _, err := b.Build(3, captureSource(mediatest.NewCamera("cam3"))); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	got := fw.Pipelines()[0]
	if got.Name() != "pipe3" {
		t.Errorf("pipeline name = %q, want pipe3", got.Name())
	}
	if els := got.Elements(); els[2] != "fakesink" {
		t.Errorf("sink = %q, want fakesink", els[2])
	}
}

func TestBuildStageCreationFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(fw *mediatest.Framework, cam *mediatest.Device)
	}{
		{"convert", func(fw *mediatest.Framework, _ *mediatest.Device) {
			fw.FailElement("videoconvert", errors.New("no such element factory"))
		}},
		{"sink", func(fw *mediatest.Framework, _ *mediatest.Device) {
			fw.FailElement("autovideosink", errors.New("no such element factory"))
		}},
		{"source", func(_ *mediatest.Framework, cam *mediatest.Device) {
			cam.SourceErr = errors.New("pipewiresrc missing")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw := mediatest.NewFramework()
			cam := mediatest.NewCamera("cam0")
			tt.setup(fw, cam)

			_, err := NewBuilder(fw, Factories{}).Build(0, captureSource(cam))
			if !errors.Is(err, ErrStageCreation) {
				t.Errorf("Build() error = %v, want ErrStageCreation", err)
			}
		})
	}
}

func TestBuildConsumesSourceOnce(t *testing.T) {
	fw := mediatest.NewFramework()
	b := NewBuilder(fw, Factories{})
	src := captureSource(mediatest.NewCamera("cam0"))

	if _, err := b.Build(0, src); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, err := b.Build(1, src); !errors.Is(err, devices.ErrSourceConsumed) {
		t.Errorf("second Build() error = %v, want ErrSourceConsumed", err)
	}
}

func TestBuildAfterSeal(t *testing.T) {
	fw := mediatest.NewFramework()
	b := NewBuilder(fw, Factories{})
	b.Seal()

	if _, err := b.Build(0, captureSource(mediatest.NewCamera("cam0"))); !errors.Is(err, ErrSealed) {
		t.Errorf("Build() error = %v, want ErrSealed", err)
	}
	if len(fw.Pipelines()) != 0 {
		t.Error("sealed builder allocated a pipeline")
	}
}

func TestLifecycle(t *testing.T) {
	fw := mediatest.NewFramework()
	p, err := NewBuilder(fw, Factories{}).Build(0, captureSource(mediatest.NewCamera("cam0")))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	bin := fw.Pipelines()[0]

	msgs, err := p.Start(4)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p.State() != StatePlaying {
		t.Errorf("State() = %s, want playing", p.State())
	}
	if !bin.Subscribed() {
		t.Error("bus not subscribed after Start")
	}

	if !bin.Post(media.Message{Type: media.MessageEOS}) {
		t.Fatal("Post() failed")
	}
	if msg := <-msgs; msg.Type != media.MessageEOS || msg.Source != "pipe0" {
		t.Errorf("got message %+v", msg)
	}

	if _, err := p.Start(4); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Start() error = %v, want ErrInvalidTransition", err)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if p.State() != StateStopped {
		t.Errorf("State() = %s, want stopped", p.State())
	}
	if _, ok := <-msgs; ok {
		t.Error("event channel still open after Stop")
	}

	want := []media.State{media.StatePlaying, media.StateNull}
	if got := bin.States(); !slices.Equal(got, want) {
		t.Errorf("states = %v, want %v", got, want)
	}

	if _, err := p.Start(4); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Start() after Stop error = %v, want ErrInvalidTransition", err)
	}
}

func TestStartFailureStopsPipeline(t *testing.T) {
	fw := mediatest.NewFramework()
	p, err := NewBuilder(fw, Factories{}).Build(0, captureSource(mediatest.NewCamera("cam0")))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	bin := fw.Pipelines()[0]
	bin.FailState(media.StatePlaying, errors.New("state change failed"))

	if _, err := p.Start(0); err == nil {
		t.Fatal("Start() succeeded, want error")
	}
	if p.State() != StateStopped {
		t.Errorf("State() = %s, want stopped", p.State())
	}
	if bin.Subscribed() {
		t.Error("bus still subscribed after failed start")
	}
}

func TestStopReportsErrorButStops(t *testing.T) {
	fw := mediatest.NewFramework()
	p, _ := NewBuilder(fw, Factories{}).Build(0, captureSource(mediatest.NewCamera("cam0")))
	bin := fw.Pipelines()[0]

	if _, err := p.Start(1); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	bin.FailState(media.StateNull, errors.New("busy"))

	if err := p.Stop(); err == nil {
		t.Error("Stop() error = nil, want framework error")
	}
	if p.State() != StateStopped {
		t.Errorf("State() = %s, want stopped", p.State())
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() on stopped pipeline = %v", err)
	}
}
