// Package logger provides the structured slog setup shared by every package:
// a fixed-order JSON or key=value handler, asynchronous sinks, debug
// sampling and helpers that stamp component and event on each line.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/eldersbot/core/buildinfo"
	coreconfig "github.com/m3rciful/eldersbot/core/config"
)

var (
	stateMu     sync.Mutex
	initialised bool
	closed      bool
	sinks       []*asyncWriter
	files       []io.Closer

	levelVar      slog.LevelVar
	debugSampler  = newRatioSampler(1, 50)
	traceOverride atomic.Bool

	// L is the base logger. It stays nil until InitLogger runs; the package
	// level helpers (Info, Warn, ...) are no-ops until then.
	L *slog.Logger
)

// settings is what InitLogger reads from the configuration.
type settings struct {
	format     logFormat
	order      []string
	level      slog.Level
	sampleNum  int
	sampleDen  int
	profile    string
	dir        string
	botFile    string
	errorsFile string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{
		format:    formatJSON,
		order:     append([]string(nil), defaultKeyOrder...),
		level:     slog.LevelInfo,
		sampleNum: 1,
		sampleDen: 50,
		profile:   "prod",
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.order = order
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}
	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		s.sampleNum, s.sampleDen = parseRatioSpec(spec)
	}
	s.dir = strings.TrimSpace(lc.Dir)
	s.botFile = strings.TrimSpace(lc.BotFile)
	s.errorsFile = strings.TrimSpace(lc.ErrorsFile)
	return s
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// openLogFile opens dir/name for appending. Failures are reported on the
// standard logger and the file is skipped.
func openLogFile(dir, name string) *os.File {
	if dir == "" || name == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create log dir %s: %v", dir, err)
		return nil
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: open log file %s: %v", path, err)
		return nil
	}
	return f
}

// InitLogger configures the global structured logger. Calls after the first
// are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	stateMu.Lock()
	defer stateMu.Unlock()
	if initialised {
		return nil
	}
	initialised = true

	s := settingsFrom(cfg)
	levelVar.Set(s.level)
	debugSampler.Set(s.sampleNum, s.sampleDen)
	traceOverride.Store(isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE")))

	outputs := []io.Writer{os.Stdout}
	if f := openLogFile(s.dir, s.botFile); f != nil {
		outputs = append(outputs, f)
		files = append(files, f)
	}
	out := newAsyncWriter(outputs, 64*1024)
	sinks = append(sinks, out)

	var errOut *asyncWriter
	if f := openLogFile(s.dir, s.errorsFile); f != nil {
		files = append(files, f)
		errOut = newAsyncWriter([]io.Writer{f}, 16*1024)
		sinks = append(sinks, errOut)
	}

	L = slog.New(newStructuredHandler(handlerConfig{
		level:     &levelVar,
		writer:    out,
		errWriter: errOut,
		format:    s.format,
		keyOrder:  s.order,
	}))
	slog.SetDefault(L)

	Info(context.Background(), "app", "startup",
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
	)
	return nil
}

// Shutdown flushes buffered output and closes the log files.
func Shutdown() error {
	stateMu.Lock()
	defer stateMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	for _, w := range sinks {
		errs = append(errs, w.Close())
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func emit(l *slog.Logger, ctx context.Context, component string, level slog.Level, event string, attrs []slog.Attr) {
	if l == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}
	head := make([]slog.Attr, 0, len(attrs)+2)
	if c := strings.TrimSpace(component); c != "" {
		head = append(head, slog.String("component", c))
	}
	if event != "" {
		head = append(head, slog.String("event", event))
	}
	l.LogAttrs(ctx, level, event, append(head, attrs...)...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(L, ctx, component, slog.LevelDebug, event, attrs)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(L, ctx, component, slog.LevelInfo, event, attrs)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(L, ctx, component, slog.LevelWarn, event, attrs)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(L, ctx, component, slog.LevelError, event, attrs)
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 lets every line through.
func ShouldSampleDebug() bool {
	return traceOverride.Load() || debugSampler.Allow()
}
