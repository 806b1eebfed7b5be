package devices

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/smazurov/ouvrt-cameras/internal/logging"
	"github.com/smazurov/ouvrt-cameras/internal/media"
)

// Metadata keys the classifier reads.
const (
	PropMediaName = "media.name"
	PropCategory  = "pipewire.category"
)

// ErrNoCaptureDevices means classification accepted no device.
var ErrNoCaptureDevices = errors.New("no capture devices found")

// ErrSourceConsumed is returned when a capture source is bound twice.
var ErrSourceConsumed = errors.New("capture source already consumed")

// Filter holds the values a device must carry to become a capture source.
type Filter struct {
	MediaName string
	Category  string
	Kind      string
}

// DefaultFilter matches the cameras published by ouvrtd.
func DefaultFilter() Filter {
	return Filter{
		MediaName: "ouvrt-camera",
		Category:  "Capture",
		Kind:      "video/x-raw",
	}
}

// Verdict is the outcome of inspecting one descriptor.
type Verdict struct {
	// Tagged is true when media name and category matched.
	Tagged   bool
	Accepted bool
	Reason   string
}

// Inspect applies f to d.
func (f Filter) Inspect(d Descriptor) Verdict {
	if !d.Properties.Equals(PropMediaName, f.MediaName) {
		return Verdict{Reason: "media.name mismatch"}
	}
	if !d.Properties.Equals(PropCategory, f.Category) {
		return Verdict{Reason: "pipewire.category mismatch"}
	}
	if len(d.Capabilities) == 0 {
		return Verdict{Tagged: true, Reason: "no capabilities"}
	}
	if d.Capabilities[0].Kind != f.Kind {
		return Verdict{Tagged: true, Reason: "first capability is " + d.Capabilities[0].Kind}
	}
	return Verdict{Tagged: true, Accepted: true}
}

// CaptureSource is an accepted descriptor waiting to be bound into a pipeline.
type CaptureSource struct {
	Descriptor

	consumed atomic.Bool
}

// Element creates the device-bound source element. It succeeds at most once.
func (s *CaptureSource) Element(factory string) (media.Element, error) {
	if !s.consumed.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%s: %w", s.DisplayName, ErrSourceConsumed)
	}
	if s.device == nil {
		return nil, fmt.Errorf("%s: descriptor has no device", s.DisplayName)
	}
	return s.device.CreateSource(factory)
}

type classifyConfig struct {
	filter   Filter
	diag     io.Writer
	logger   *slog.Logger
	observer func(Descriptor, Verdict)
}

// ClassifyOption configures Classify.
type ClassifyOption func(*classifyConfig)

// WithFilter replaces DefaultFilter.
func WithFilter(f Filter) ClassifyOption {
	return func(c *classifyConfig) { c.filter = f }
}

// WithDiagnostics sets where the capability line of each tagged device is
// written. Defaults to stdout.
func WithDiagnostics(w io.Writer) ClassifyOption {
	return func(c *classifyConfig) { c.diag = w }
}

// WithObserver registers fn to be called with every verdict.
func WithObserver(fn func(Descriptor, Verdict)) ClassifyOption {
	return func(c *classifyConfig) { c.observer = fn }
}

// Classify filters descs down to capture sources, keeping input order.
func Classify(descs []Descriptor, opts ...ClassifyOption) []*CaptureSource {
	cfg := classifyConfig{
		filter: DefaultFilter(),
		diag:   os.Stdout,
		logger: logging.GetLogger("devices"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var sources []*CaptureSource
	for _, d := range descs {
		v := cfg.filter.Inspect(d)

		if v.Tagged {
			fmt.Fprintln(cfg.diag, describeCapabilities(d))
		}
		if cfg.observer != nil {
			cfg.observer(d, v)
		}

		if !v.Accepted {
			cfg.logger.Debug("Device rejected", "device", d.DisplayName, "reason", v.Reason)
			continue
		}
		cfg.logger.Info("Capture device found", "device", d.DisplayName)
		sources = append(sources, &CaptureSource{Descriptor: d})
	}
	return sources
}

func describeCapabilities(d Descriptor) string {
	if len(d.Capabilities) == 0 {
		return "(no capabilities)"
	}
	return d.Capabilities[0].String()
}
