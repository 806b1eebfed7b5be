package gstreamer

import (
	"errors"
	"testing"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/smazurov/ouvrt-cameras/internal/media"
)

func TestCapabilityFromCaps(t *testing.T) {
	New()

	s := gst.NewStructureFromString("video/x-raw, format=(string)GRAY8, width=(int)1280, height=(int)960")
	if s == nil {
		t.Fatal("caps structure did not parse")
	}

	c := capability(s)
	if c.Kind != "video/x-raw" {
		t.Errorf("Kind = %q, want video/x-raw", c.Kind)
	}
	want := map[string]string{"format": "GRAY8", "width": "1280", "height": "960"}
	for k, v := range want {
		if c.Fields[k] != v {
			t.Errorf("Fields[%q] = %q, want %q", k, c.Fields[k], v)
		}
	}
	if c.Raw != s.String() {
		t.Errorf("Raw = %q, want %q", c.Raw, s.String())
	}
}

func TestDeviceProperties(t *testing.T) {
	New()

	s := gst.NewStructureFromString(`pipewire-proplist, media.name=(string)ouvrt-camera, ` +
		`pipewire.category=(string)Capture, node.description=(string)"Rift Sensor, left"`)
	if s == nil {
		t.Fatal("property structure did not parse")
	}

	props := media.Properties(structureFields(s))
	tests := map[string]string{
		"media.name":        "ouvrt-camera",
		"pipewire.category": "Capture",
		"node.description":  "Rift Sensor, left",
	}
	for key, want := range tests {
		got, ok := props.Lookup(key)
		if !ok || got != want {
			t.Errorf("Lookup(%q) = %q, %v, want %q", key, got, ok, want)
		}
	}
	if _, ok := props.Lookup("object.serial"); ok {
		t.Error("missing key reported as present")
	}
}

func TestErrorMessageKeepsDomainAndCode(t *testing.T) {
	New()

	src, err := gst.NewElement("fakesink")
	if err != nil {
		t.Fatalf("NewElement(fakesink) error = %v", err)
	}
	msg := gst.NewErrorMessage(src, errors.New("device went away"), "v4l2src.c(42): gone", nil)
	if msg == nil {
		t.Fatal("no error message created")
	}

	m, ok := convertMessage(msg, "pipe0")
	if !ok || m.Type != media.MessageError {
		t.Fatalf("convertMessage() = %+v, %v", m, ok)
	}
	if m.Err.Domain != "gst-library-error-quark" || m.Err.Code != int(gst.LibraryErrorFailed) {
		t.Errorf("domain/code = %q/%d", m.Err.Domain, m.Err.Code)
	}
	if got, want := m.Err.Error(), "gst-library-error-quark: device went away (1)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if m.Err.Debug != "v4l2src.c(42): gone" {
		t.Errorf("Debug = %q", m.Err.Debug)
	}
	if media.IsWindowClosed(m.Err) {
		t.Error("library error classified as window closed")
	}
}

func TestLookupUnknownProvider(t *testing.T) {
	_, err := New().LookupProvider("nosuchdeviceprovider")
	if !errors.Is(err, media.ErrProviderNotFound) {
		t.Errorf("LookupProvider() error = %v, want ErrProviderNotFound", err)
	}
}

func TestStateMapping(t *testing.T) {
	for _, s := range []media.State{media.StateNull, media.StateReady, media.StatePaused, media.StatePlaying} {
		if got := fromGstState(toGstState(s)); got != s {
			t.Errorf("round trip of %s gave %s", s, got)
		}
	}
	if toGstState(media.StatePlaying) != gst.StatePlaying {
		t.Error("playing does not map to gst.StatePlaying")
	}
}

func TestConvertNilError(t *testing.T) {
	if err := convertError(nil); err.Message == "" {
		t.Error("nil GError produced an empty message")
	}
}
