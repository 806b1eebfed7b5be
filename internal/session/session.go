// Package session runs one camera observer session from provider lookup to
// teardown and maps the outcome to a process exit code.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/smazurov/ouvrt-cameras/internal/control"
	"github.com/smazurov/ouvrt-cameras/internal/devices"
	"github.com/smazurov/ouvrt-cameras/internal/events"
	"github.com/smazurov/ouvrt-cameras/internal/logging"
	"github.com/smazurov/ouvrt-cameras/internal/media"
	"github.com/smazurov/ouvrt-cameras/internal/pipeline"
	"github.com/smazurov/ouvrt-cameras/internal/supervisor"
)

// Messages written to stderr for fatal setup failures.
const (
	MsgProviderNotFound    = "PipeWire device provider not found.\nIs the GStreamer PipeWire plugin installed?\n"
	MsgProviderStartFailed = "Failed to start PipeWire device provider.\n"
	MsgNoCaptureDevices    = "Failed to find PipeWire capture device.\nIs ouvrtd running and are cameras connected?\n"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitSetup = 1
)

// Notifier receives service manager state updates.
type Notifier interface {
	Ready(cameras int) error
	Stopping() error
	Status(status string) error
}

// ServiceStatusFunc reports the ActiveState of a unit.
type ServiceStatusFunc func(ctx context.Context, unit string) (string, error)

// Options configures a session.
type Options struct {
	Framework    media.Framework
	ProviderName string
	Filter       devices.Filter
	Factories    pipeline.Factories

	// EventBuffer is the per-pipeline and fan-in channel capacity.
	EventBuffer int
	// StopTimeout bounds each pipeline's teardown.
	StopTimeout time.Duration

	// Stdout receives the capability line of every tagged device.
	Stdout io.Writer
	// Stderr receives fatal setup messages and runtime pipeline errors.
	Stderr io.Writer

	Bus      *events.Bus
	Notifier Notifier

	// CameraService is the unit whose state is logged when no camera is
	// found. Skipped when empty or when ServiceStatus is nil.
	CameraService string
	ServiceStatus ServiceStatusFunc
}

func (o *Options) setDefaults() {
	if o.ProviderName == "" {
		o.ProviderName = devices.DefaultProviderName
	}
	if o.Filter == (devices.Filter{}) {
		o.Filter = devices.DefaultFilter()
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// Run discovers the cameras, shows one pipeline per camera and blocks until
// ctx is cancelled or a pipeline ends. It returns the process exit code.
func Run(ctx context.Context, opts Options) int {
	opts.setDefaults()
	logger := logging.GetLogger("session")

	sources, err := Discover(ctx, opts)
	if err != nil {
		return ExitSetup
	}

	builder := pipeline.NewBuilder(opts.Framework, opts.Factories)
	sup := supervisor.New(&supervisor.Options{
		EventBuffer: opts.EventBuffer,
		StopTimeout: opts.StopTimeout,
		Bus:         opts.Bus,
	})

	pipes := make([]*pipeline.Pipeline, 0, len(sources))
	for i, src := range sources {
		p, err := builder.Build(i, src)
		if err != nil {
			logger.Debug("Failed to build pipeline", "device", src.DisplayName, "error", err)
			fmt.Fprintf(opts.Stderr, "Error: %s\n", err)
			builder.Seal()
			if err := sup.Adopt(pipes...); err != nil {
				logger.Warn("Failed to hand over built pipelines", "error", err)
			}
			teardown(sup, logger)
			return ExitSetup
		}
		pipes = append(pipes, p)
	}
	builder.Seal()

	if err := sup.StartAll(pipes); err != nil {
		logger.Debug("Failed to start pipelines", "error", err)
		fmt.Fprintf(opts.Stderr, "Error: %s\n", err)
		teardown(sup, logger)
		return ExitSetup
	}

	if opts.Notifier != nil {
		if err := opts.Notifier.Ready(len(pipes)); err != nil {
			logger.Warn("Failed to notify readiness", "error", err)
		}
	}

	loop := control.New(sup.Events(),
		control.WithStderr(opts.Stderr),
		control.WithBus(opts.Bus),
		control.WithShutdownHook(func(res control.Result) {
			if opts.Notifier == nil {
				return
			}
			if err := opts.Notifier.Status("Stopping: " + string(res.Reason)); err != nil {
				logger.Warn("Failed to update status", "error", err)
			}
			if err := opts.Notifier.Stopping(); err != nil {
				logger.Warn("Failed to notify stopping", "error", err)
			}
		}))

	res := loop.Run(ctx)
	logger.Info("Session ending", "reason", res.Reason, "pipeline", res.PipelineID)

	teardown(sup, logger)
	return ExitOK
}

func teardown(sup *supervisor.Supervisor, logger logging.Logger) {
	if err := sup.StopAll(); err != nil {
		logger.Warn("Teardown incomplete", "error", err)
	}
}

// Discover looks up and queries the provider and classifies its devices.
// Fatal setup messages are written to opts.Stderr; the returned error is
// non-nil exactly when the session cannot continue.
func Discover(ctx context.Context, opts Options) ([]*devices.CaptureSource, error) {
	opts.setDefaults()
	logger := logging.GetLogger("session")

	adapter, err := devices.Lookup(opts.Framework, opts.ProviderName)
	if err != nil {
		logger.Debug("Provider lookup failed", "provider", opts.ProviderName, "error", err)
		fmt.Fprint(opts.Stderr, MsgProviderNotFound)
		return nil, err
	}

	descs, err := adapter.Discover()
	if err != nil {
		logger.Debug("Device discovery failed", "provider", opts.ProviderName, "error", err)
		if errors.Is(err, devices.ErrProviderStartFailed) {
			fmt.Fprint(opts.Stderr, MsgProviderStartFailed)
		} else {
			fmt.Fprintf(opts.Stderr, "Error: %s\n", err)
		}
		return nil, err
	}

	sources := devices.Classify(descs,
		devices.WithFilter(opts.Filter),
		devices.WithDiagnostics(opts.Stdout),
		devices.WithObserver(func(d devices.Descriptor, v devices.Verdict) {
			opts.Bus.Publish(events.DeviceDiscoveredEvent{
				Device:    d.DisplayName,
				Accepted:  v.Accepted,
				Reason:    v.Reason,
				Timestamp: time.Now().Format(time.RFC3339),
			})
		}))

	if len(sources) == 0 {
		fmt.Fprint(opts.Stderr, MsgNoCaptureDevices)
		logCameraService(ctx, opts, logger)
		return nil, devices.ErrNoCaptureDevices
	}
	return sources, nil
}

func logCameraService(ctx context.Context, opts Options, logger logging.Logger) {
	if opts.ServiceStatus == nil || opts.CameraService == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	state, err := opts.ServiceStatus(ctx, opts.CameraService)
	if err != nil {
		logger.Debug("Could not query camera service", "unit", opts.CameraService, "error", err)
		return
	}
	logger.Info("No cameras found", "unit", opts.CameraService, "state", state)
}
