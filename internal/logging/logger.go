package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultLevel keeps interactive runs to the per-device capability lines.
const DefaultLevel = slog.LevelWarn

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{}
	isInitialized   bool
	mutex           sync.RWMutex
)

func init() {
	globalLevelVar.Set(DefaultLevel)
}

// Config represents logging configuration.
type Config struct {
	Level   string
	Format  string
	Modules map[string]string

	// Output receives text or JSON records. Defaults to os.Stdout.
	Output io.Writer
}

// Initialize sets up the logging system.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true

	globalLevel := levelOrDefault(config.Level)
	globalLevelVar.Set(globalLevel)

	// Update all existing module loggers: set levels and recreate handlers
	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(module))
		moduleLoggers[module] = slog.New(createHandler(config, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(createHandler(config, globalLevelVar)))
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	// Double-check in case another goroutine created it
	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	// Create a LevelVar for this module so level can be changed at runtime
	levelVar := &slog.LevelVar{}
	levelVar.Set(moduleLevel(module))

	logger := slog.New(createHandler(globalConfig, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// SetModuleLevel changes one module's level at runtime.
func SetModuleLevel(module, level string) error {
	parsed := parseLevel(level)
	if parsed == nil {
		return fmt.Errorf("invalid log level %q", level)
	}

	GetLogger(module)

	mutex.Lock()
	defer mutex.Unlock()
	moduleLevelVars[module].Set(*parsed)
	if globalConfig.Modules == nil {
		globalConfig.Modules = make(map[string]string)
	}
	globalConfig.Modules[module] = level
	return nil
}

// ParseModules parses "module=level,module=level" into a module level map.
func ParseModules(list string) (map[string]string, error) {
	modules := make(map[string]string)
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		module, level, ok := strings.Cut(entry, "=")
		module, level = strings.TrimSpace(module), strings.TrimSpace(level)
		if !ok || module == "" {
			return nil, fmt.Errorf("invalid module level %q, want module=level", entry)
		}
		if parseLevel(level) == nil {
			return nil, fmt.Errorf("invalid log level %q for module %s", level, module)
		}
		modules[module] = level
	}
	return modules, nil
}

// Modules returns the names of every module logger created so far.
func Modules() []string {
	mutex.RLock()
	defer mutex.RUnlock()
	names := make([]string, 0, len(moduleLoggers))
	for name := range moduleLoggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// moduleLevel resolves the level for module. Caller holds mutex.
func moduleLevel(module string) slog.Level {
	level := levelOrDefault(globalConfig.Level)
	if levelStr, exists := globalConfig.Modules[module]; exists {
		if parsed := parseLevel(levelStr); parsed != nil {
			level = *parsed
		}
	}
	return level
}

func levelOrDefault(level string) slog.Level {
	if parsed := parseLevel(level); parsed != nil {
		return *parsed
	}
	return DefaultLevel
}

// createHandler creates a slog handler with the specified format and level.
// Logs to the configured output and to the journal when available.
// Level can be slog.Level or *slog.LevelVar for dynamic level changes.
func createHandler(config Config, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	var outputHandler slog.Handler
	if config.Format == "json" {
		outputHandler = slog.NewJSONHandler(out, opts)
	} else {
		outputHandler = slog.NewTextHandler(out, opts)
	}

	var handlers []slog.Handler
	if config.Output != nil || isStdoutAvailable() {
		handlers = append(handlers, outputHandler)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}

	switch len(handlers) {
	case 0:
		return outputHandler // Fallback
	case 1:
		return handlers[0]
	default:
		return NewMultiHandler(handlers...)
	}
}

// isStdoutAvailable checks if stdout is connected to a terminal, pipe, socket, or file.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	// Available if terminal, pipe, socket, or regular file (not /dev/null which is ModeDevice)
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
