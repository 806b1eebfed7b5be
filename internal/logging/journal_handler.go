package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// SyslogIdentifier tags every journal entry.
const SyslogIdentifier = "ouvrt-cameras"

// JournalHandler is a slog.Handler that sends logs to systemd journal.
type JournalHandler struct {
	level  slog.Leveler
	preset map[string]string
	groups []string
	send   func(message string, priority journal.Priority, vars map[string]string) error
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level, send: journal.Send}
}

// Enabled reports whether the handler handles records at the given level.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle sends the log record to systemd journal.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	priority := mapLevelToPriority(r.Level)

	fields := map[string]string{
		"PRIORITY":          strconv.Itoa(int(priority)),
		"SYSLOG_IDENTIFIER": SyslogIdentifier,
	}
	for k, v := range h.preset {
		fields[k] = v
	}
	r.Attrs(func(attr slog.Attr) bool {
		addAttrToFields(fields, attr, h.groups)
		return true
	})

	if err := h.send(r.Message, priority, fields); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to send to journal: %v\n", err)
		return err
	}
	return nil
}

// WithAttrs returns a new handler with additional attributes.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = make(map[string]string, len(h.preset)+len(attrs))
	for k, v := range h.preset {
		clone.preset[k] = v
	}
	for _, attr := range attrs {
		addAttrToFields(clone.preset, attr, h.groups)
	}
	return &clone
}

// WithGroup returns a new handler with a group prefix.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// mapLevelToPriority maps slog levels to journal priorities.
func mapLevelToPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// addAttrToFields adds an slog attribute to journal fields.
func addAttrToFields(fields map[string]string, attr slog.Attr, groups []string) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if attr.Value.Kind() == slog.KindGroup {
		nested := groups
		if attr.Key != "" {
			nested = append(append([]string(nil), groups...), attr.Key)
		}
		for _, a := range attr.Value.Group() {
			addAttrToFields(fields, a, nested)
		}
		return
	}

	key := journalFieldName(append(append([]string(nil), groups...), attr.Key))
	if key == "" {
		return
	}

	switch attr.Value.Kind() {
	case slog.KindTime:
		fields[key] = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindFloat64:
		fields[key] = strconv.FormatFloat(attr.Value.Float64(), 'f', -1, 64)
	default:
		fields[key] = attr.Value.String()
	}
}

// journalFieldName joins path into a valid journal field name: uppercase
// letters, digits and underscores, not starting with an underscore.
func journalFieldName(path []string) string {
	var b strings.Builder
	for i, part := range path {
		if i > 0 {
			b.WriteByte('_')
		}
		for _, r := range strings.ToUpper(part) {
			switch {
			case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				b.WriteRune(r)
			default:
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimLeft(b.String(), "_0123456789")
}

// IsJournalAvailable checks if systemd journal is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
