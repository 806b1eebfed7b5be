package media

import "testing"

func TestPropertiesLookup(t *testing.T) {
	props := Properties{"media.name": "ouvrt-camera", "empty": ""}

	if v, ok := props.Lookup("media.name"); !ok || v != "ouvrt-camera" {
		t.Errorf("Lookup(media.name) = %q, %v", v, ok)
	}
	if _, ok := props.Lookup("pipewire.category"); ok {
		t.Error("missing key reported as present")
	}
	if v, ok := props.Lookup("empty"); !ok || v != "" {
		t.Errorf("Lookup(empty) = %q, %v, want present empty value", v, ok)
	}

	var nilProps Properties
	if _, ok := nilProps.Lookup("media.name"); ok {
		t.Error("nil properties reported a key")
	}
}

func TestPropertiesEquals(t *testing.T) {
	props := Properties{"pipewire.category": "Capture", "empty": ""}

	if !props.Equals("pipewire.category", "Capture") {
		t.Error("expected match")
	}
	if props.Equals("pipewire.category", "Playback") {
		t.Error("unexpected match")
	}
	if props.Equals("missing", "") {
		t.Error("missing key must not equal the empty string")
	}
	if !props.Equals("empty", "") {
		t.Error("present empty value should equal the empty string")
	}
}

func TestCapabilityString(t *testing.T) {
	c := Capability{Kind: "video/x-raw", Fields: map[string]string{"width": "640", "format": "GRAY8"}}
	if got, want := c.String(), "video/x-raw, format=GRAY8, width=640"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	c.Raw = "video/x-raw, format=(string)GRAY8"
	if got := c.String(); got != c.Raw {
		t.Errorf("String() = %q, want raw %q", got, c.Raw)
	}
}

func TestStreamErrorFormat(t *testing.T) {
	err := &StreamError{Domain: ResourceErrorDomain, Code: 3, Message: "Output window was closed"}
	if got, want := err.Error(), "gst-resource-error-quark: Output window was closed (3)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := &StreamError{Message: "Internal data stream error."}
	if got := bare.Error(); got != "Internal data stream error." {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsWindowClosed(t *testing.T) {
	tests := []struct {
		name string
		err  *StreamError
		want bool
	}{
		{"nil", nil, false},
		{"full match", &StreamError{Domain: ResourceErrorDomain, Code: 3, Message: WindowClosedMessage}, true},
		{"message only backend", &StreamError{Message: WindowClosedMessage}, true},
		{"wrong code", &StreamError{Domain: ResourceErrorDomain, Code: 1, Message: WindowClosedMessage}, false},
		{"wrong domain", &StreamError{Domain: "gst-stream-error-quark", Code: 3, Message: WindowClosedMessage}, false},
		{"other message", &StreamError{Domain: ResourceErrorDomain, Code: 3, Message: "Could not open device"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWindowClosed(tt.err); got != tt.want {
				t.Errorf("IsWindowClosed() = %v, want %v", got, tt.want)
			}
		})
	}
}
