package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// FromContext extracts the logger from context
// If no logger is found, returns a disabled logger (no-op)
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// WithComponent creates a child logger with a component field
func WithComponent(ctx context.Context, component string) context.Context {
	logger := FromContext(ctx)
	childLogger := logger.With().Str("component", component).Logger()
	return WithContext(ctx, childLogger)
}

// WithSession creates a child logger with a session_id field
func WithSession(ctx context.Context, sessionID string) context.Context {
	logger := FromContext(ctx)
	childLogger := logger.With().Str("session_id", sessionID).Logger()
	return WithContext(ctx, childLogger)
}

// WithFrame creates a child logger with a frame field
func WithFrame(ctx context.Context, frameName string) context.Context {
	logger := FromContext(ctx)
	childLogger := logger.With().Str("frame", frameName).Logger()
	return WithContext(ctx, childLogger)
}

// WithPane creates a child logger with a pane order field
func WithPane(ctx context.Context, order int) context.Context {
	logger := FromContext(ctx)
	childLogger := logger.With().Int("pane_order", order).Logger()
	return WithContext(ctx, childLogger)
}
