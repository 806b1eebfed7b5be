package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/smazurov/ouvrt-cameras/internal/devices"
	"github.com/smazurov/ouvrt-cameras/internal/media"
	"github.com/smazurov/ouvrt-cameras/internal/media/mediatest"
	"github.com/smazurov/ouvrt-cameras/internal/session"
)

const camLine = "video/x-raw, format=GRAY8, height=960, width=1280"

type testApp struct {
	*app
	stdout bytes.Buffer
	stderr bytes.Buffer
	fw     *mediatest.Framework
}

func newTestApp(devs ...*mediatest.Device) *testApp {
	ta := &testApp{fw: mediatest.NewFramework()}
	ta.fw.AddProvider(devices.DefaultProviderName, mediatest.NewProvider(devs...))
	ta.app = &app{
		stdout:    &ta.stdout,
		stderr:    &ta.stderr,
		framework: func() media.Framework { return ta.fw },
	}
	return ta
}

func (ta *testApp) run(args ...string) int {
	args = append(args, "--camera-service=", "--log-level=error")
	return ta.execute(context.Background(), args)
}

func TestList(t *testing.T) {
	ta := newTestApp(mediatest.NewCamera("cam0"), mediatest.NewCamera("cam1"))

	if code := ta.run("list"); code != session.ExitOK {
		t.Fatalf("exit code = %d, stderr %q", code, ta.stderr.String())
	}
	want := "cam0\t" + camLine + "\ncam1\t" + camLine + "\n"
	if got := ta.stdout.String(); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if n := len(ta.fw.Pipelines()); n != 0 {
		t.Errorf("list built %d pipelines", n)
	}
}

func TestListNoCameras(t *testing.T) {
	ta := newTestApp()

	if code := ta.run("list"); code != session.ExitSetup {
		t.Errorf("exit code = %d, want %d", code, session.ExitSetup)
	}
	if got := ta.stderr.String(); got != session.MsgNoCaptureDevices {
		t.Errorf("stderr = %q", got)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("OUVRT_CAMERAS_MEDIA_NAME", "some-other-camera")

	ta := newTestApp(mediatest.NewCamera("cam0"))
	if code := ta.run("list"); code != session.ExitSetup {
		t.Errorf("env override ignored: exit code = %d", code)
	}
	if ta.opts.MediaName != "some-other-camera" {
		t.Errorf("MediaName = %q", ta.opts.MediaName)
	}

	ta = newTestApp(mediatest.NewCamera("cam0"))
	if code := ta.run("list", "--media-name=ouvrt-camera"); code != session.ExitOK {
		t.Errorf("flag did not win over env: exit code = %d", code)
	}
}

func TestInvalidUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--no-such-flag"}},
		{"positional argument", []string{"extra"}},
		{"bad duration", []string{"--stop-timeout=soon"}},
		{"bad module level", []string{"--log-module=devices"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(mediatest.NewCamera("cam0"))
			if code := ta.run(tt.args...); code != session.ExitSetup {
				t.Errorf("exit code = %d, want %d", code, session.ExitSetup)
			}
			if !strings.HasPrefix(ta.stderr.String(), "Error: ") {
				t.Errorf("stderr = %q", ta.stderr.String())
			}
			if n := len(ta.fw.Pipelines()); n != 0 {
				t.Errorf("built %d pipelines on invalid usage", n)
			}
		})
	}
}

func TestRootRunsSession(t *testing.T) {
	ta := newTestApp(mediatest.NewCamera("cam0"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code := ta.execute(ctx, []string{"--camera-service=", "--log-level=error"})
	if code != session.ExitOK {
		t.Fatalf("exit code = %d, stderr %q", code, ta.stderr.String())
	}
	if got := ta.stdout.String(); got != camLine+"\n" {
		t.Errorf("stdout = %q", got)
	}
	pipes := ta.fw.Pipelines()
	if len(pipes) != 1 {
		t.Fatalf("built %d pipelines, want 1", len(pipes))
	}
	states := pipes[0].States()
	if len(states) == 0 || states[len(states)-1] != media.StateNull {
		t.Errorf("pipeline states = %v, want to end in null", states)
	}
}

func TestVersion(t *testing.T) {
	ta := newTestApp()
	if code := ta.run("version", "--short"); code != session.ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.HasPrefix(ta.stdout.String(), "ouvrt-cameras ") {
		t.Errorf("stdout = %q", ta.stdout.String())
	}
	if n := ta.fw.Lookups(); n != 0 {
		t.Errorf("version looked up the provider %d times", n)
	}
}
