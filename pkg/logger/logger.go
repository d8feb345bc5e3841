package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// Leveled logger used by the auth service.
// - components receive a Logger through their constructors
// - the package-level Debugf/Infof/Warnf/Errorf/Fatalf helpers remain for startup code in main

// Logger is the logging surface injected into services and middleware.
// *slog.Logger satisfies it.
type Logger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	mu       sync.RWMutex
	stdLevel = new(slog.LevelVar)
	std      = New(os.Stdout, stdLevel, FormatText)
)

// ParseLevel maps debug|info|warn|error (case-insensitive) to a slog level.
// Unknown input yields info.
func ParseLevel(l string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a slog logger writing to w. FormatJSON selects the JSON handler,
// anything else the tint console handler.
func New(w io.Writer, level slog.Leveler, format string) *slog.Logger {
	var h slog.Handler
	if strings.EqualFold(format, FormatJSON) {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		h = tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.RFC3339})
	}
	return slog.New(&contextHandler{Handler: h})
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	stdLevel.Set(ParseLevel(l))
}

// Setup replaces the package logger with one using the given format and
// returns it so it can be injected into components.
func Setup(w io.Writer, level, format string) *slog.Logger {
	Init(level)
	l := New(w, stdLevel, format)
	mu.Lock()
	std = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

// Default returns the package logger.
func Default() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// Discard returns a Logger that drops every record. Intended for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func logf(l slog.Level, format string, v ...interface{}) {
	lg := Default()
	if !lg.Enabled(context.Background(), l) {
		return
	}
	lg.Log(context.Background(), l, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...interface{}) { logf(slog.LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(slog.LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(slog.LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(slog.LevelError, format, v...) }

func Fatalf(format string, v ...interface{}) {
	Default().Log(context.Background(), slog.LevelError, fmt.Sprintf(format, v...), "fatal", true)
	os.Exit(1)
}

// LevelString returns the current level as text.
func LevelString() string {
	switch stdLevel.Level() {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	}
	return "info"
}

type requestIDKey struct{}

// WithRequestID stores the request id so every record logged with ctx carries it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id stored by WithRequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// contextHandler decorates records with request-scoped attributes.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestIDFrom(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
