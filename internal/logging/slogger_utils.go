package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// NopSlogger discards everything. Useful for tests.
var NopSlogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))

type sloggerKey struct{}

var _key = sloggerKey{}

const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewSlogger creates a logger that writes to w.
// level - one of debug, info, warn or error.
// format - text or json.
func NewSlogger(w io.Writer, level string, format string) (*slog.Logger, error) {
	var slogLevel slog.Level

	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	options := &slog.HandlerOptions{Level: slogLevel}

	switch strings.ToLower(format) {
	case FormatText:
		return slog.New(slog.NewTextHandler(w, options)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, options)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q, must be %q or %q", format, FormatText, FormatJSON)
	}
}

// ContextWithSlogger adds a slogger into the context.
func ContextWithSlogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, _key, logger)
}

// SloggerFromContext gets the slogger in the context, or the default slogger.
func SloggerFromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(_key).(*slog.Logger)

	if !ok {
		return slog.Default()
	}

	return logger
}

// ContextWithSloggerAndValues extracts the slogger from the context, creates a new child slogger
// with the new values, and returns a context with the new slogger.
func ContextWithSloggerAndValues(ctx context.Context, values ...any) (context.Context, *slog.Logger) {
	logger := SloggerFromContext(ctx).With(values...)
	return ContextWithSlogger(ctx, logger), logger
}
