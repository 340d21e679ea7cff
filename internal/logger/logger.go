package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jursonmo/netroute"
)

type Logger struct {
	*slog.Logger
}

// New builds a Logger writing to w (os.Stderr when nil). format is "json"
// or "text"; anything else falls back to json.
func New(logLevel, format string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	level := ParseLevel(logLevel)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
	}
}

func (l *Logger) RouteResult(res netroute.Result) {
	l.Info("Route result",
		slog.String("destination", res.Destination),
		slog.String("gateway", res.Gateway),
		slog.String("interface_alias", res.InterfaceAlias),
		slog.Int("metric", res.Metric),
		slog.String("state", string(res.State)),
		slog.Bool("changed", res.Changed),
		slog.String("output", res.Output))
}

func (l *Logger) BatchCompleted(total, changed, failed int, duration int64) {
	l.Info("Batch completed",
		slog.Int("total", total),
		slog.Int("changed", changed),
		slog.Int("failed", failed),
		slog.Int64("duration_ms", duration))
}

func (l *Logger) ConfigLoaded(file string, routes int) {
	l.Info("Configuration loaded",
		slog.String("config_file", file),
		slog.Int("routes", routes))
}
