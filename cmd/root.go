// Package cmd wires the ouvrt-cameras command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/ouvrt-cameras/internal/config"
	"github.com/smazurov/ouvrt-cameras/internal/devices"
	"github.com/smazurov/ouvrt-cameras/internal/events"
	"github.com/smazurov/ouvrt-cameras/internal/gstreamer"
	"github.com/smazurov/ouvrt-cameras/internal/logging"
	"github.com/smazurov/ouvrt-cameras/internal/media"
	"github.com/smazurov/ouvrt-cameras/internal/metrics"
	"github.com/smazurov/ouvrt-cameras/internal/pipeline"
	"github.com/smazurov/ouvrt-cameras/internal/session"
	"github.com/smazurov/ouvrt-cameras/internal/systemd"
)

// Options for the CLI. Every field is a flag; env names get the
// OUVRT_CAMERAS_ prefix.
type Options struct {
	// Device selection
	Provider  string `help:"GStreamer device provider factory" default:"pipewiredeviceprovider" env:"PROVIDER"`
	MediaName string `help:"media.name property identifying a camera" default:"ouvrt-camera" env:"MEDIA_NAME"`
	Category  string `help:"Required device class" default:"Capture" env:"CATEGORY"`
	CapsKind  string `help:"Required media type of the first capability" default:"video/x-raw" env:"CAPS_KIND"`

	// Pipeline stages
	Source  string `help:"Source element factory" default:"pipewiresrc" env:"SOURCE"`
	Convert string `help:"Conversion element factory" default:"videoconvert" env:"CONVERT"`
	Sink    string `help:"Display sink element factory" default:"autovideosink" env:"SINK"`

	EventBuffer int           `help:"Bus message buffer per pipeline" default:"16" env:"EVENT_BUFFER"`
	StopTimeout time.Duration `help:"Teardown bound per pipeline" default:"10s" env:"STOP_TIMEOUT"`

	CameraService string `help:"Unit reported when no camera is found (empty disables)" default:"ouvrtd.service" env:"CAMERA_SERVICE"`
	MetricsListen string `help:"Serve Prometheus metrics on this address (empty disables)" env:"METRICS_LISTEN"`

	// Logging
	LogLevel  string `help:"Global logging level (debug, info, warn, error)" default:"warn" env:"LOG_LEVEL"`
	LogFormat string `help:"Logging format (text, json)" default:"text" env:"LOG_FORMAT"`
	LogModule string `help:"Per-module levels, e.g. devices=debug,session=info" env:"LOG_MODULE"`
}

type app struct {
	opts   Options
	code   int
	stdout io.Writer
	stderr io.Writer

	// framework is swapped out in tests.
	framework func() media.Framework
}

func newApp() *app {
	return &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		framework: func() media.Framework {
			return gstreamer.New()
		},
	}
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return newApp().execute(context.Background(), os.Args[1:])
}

func (a *app) execute(ctx context.Context, args []string) int {
	root, err := a.rootCmd()
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %s\n", err)
		return session.ExitSetup
	}
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.stderr, "Error: %s\n", err)
		return session.ExitSetup
	}
	return a.code
}

func (a *app) rootCmd() (*cobra.Command, error) {
	root := &cobra.Command{
		Use:   "ouvrt-cameras",
		Short: "Show the cameras published by ouvrtd",
		Long: `Finds the tracking cameras ouvrtd publishes on PipeWire, prints the first ` +
			`capability of each and shows every camera in its own window until a window ` +
			`is closed or the process is interrupted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.code = a.runSession(cmd.Context())
			return nil
		},
	}

	if err := config.RegisterFlags(root.PersistentFlags(), &a.opts); err != nil {
		return nil, err
	}

	root.AddCommand(a.listCmd(), a.versionCmd())
	return root, nil
}

// setup applies environment overrides and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadConfig(&a.opts, cmd); err != nil {
		return err
	}

	modules, err := logging.ParseModules(a.opts.LogModule)
	if err != nil {
		return err
	}
	logging.Initialize(logging.Config{
		Level:   a.opts.LogLevel,
		Format:  a.opts.LogFormat,
		Modules: modules,
		Output:  a.stderr,
	})
	return nil
}

func (a *app) sessionOptions(bus *events.Bus) session.Options {
	return session.Options{
		Framework:    a.framework(),
		ProviderName: a.opts.Provider,
		Filter: devices.Filter{
			MediaName: a.opts.MediaName,
			Category:  a.opts.Category,
			Kind:      a.opts.CapsKind,
		},
		Factories: pipeline.Factories{
			Source:  a.opts.Source,
			Convert: a.opts.Convert,
			Sink:    a.opts.Sink,
		},
		EventBuffer:   a.opts.EventBuffer,
		StopTimeout:   a.opts.StopTimeout,
		Stdout:        a.stdout,
		Stderr:        a.stderr,
		Bus:           bus,
		CameraService: a.opts.CameraService,
		ServiceStatus: systemd.ServiceStatus,
	}
}

func (a *app) runSession(parent context.Context) int {
	logger := logging.GetLogger("main")

	// Signals stay captured until teardown has finished.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.New()
	defer func() { _ = bus.Close() }()

	unsubscribe := metrics.Subscribe(bus)
	defer unsubscribe()

	if a.opts.MetricsListen != "" {
		srv, err := metrics.Listen(a.opts.MetricsListen)
		if err != nil {
			logger.Warn("Metrics listener disabled", "addr", a.opts.MetricsListen, "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Error stopping metrics listener", "error", err)
				}
			}()
		}
	}

	opts := a.sessionOptions(bus)
	opts.Notifier = systemd.NewNotifier()

	code := session.Run(ctx, opts)
	logger.Info("Exiting", "exit_code", code)
	return code
}
