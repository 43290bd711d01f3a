// Package logging carries the zerolog logger through a context.Context.
package logging

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type logKey struct{}

// Log returns the logger attached to ctx or the global logger if there is none.
func Log(ctx context.Context) *zerolog.Logger {
	logger := ctx.Value(logKey{})
	if logger == nil {
		return &log.Logger
	}

	return logger.(*zerolog.Logger)
}

// WithLogger attaches the given logger to the context
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, logKey{}, logger)
}

// WithFields derives a child logger carrying the given string fields and attaches it to the context.
func WithFields(ctx context.Context, fields map[string]string) context.Context {
	child := Log(ctx).With()
	for name, value := range fields {
		child = child.Str(name, value)
	}

	logger := child.Logger()
	return WithLogger(ctx, &logger)
}
