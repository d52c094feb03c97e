package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings to ensure consistency.
const (
	FieldRunID     = "run_id"
	FieldCase      = "case"
	FieldComponent = "component"

	// Windowing
	FieldWindow      = "window"
	FieldWindowStart = "window_start"
	FieldWindowEnd   = "window_end"
	FieldWindows     = "windows"

	// Graph size
	FieldNodes        = "nodes"
	FieldEdges        = "edges"
	FieldInteractions = "interactions"

	// Algorithms
	FieldMethod = "method"
	FieldReason = "reason"
	FieldFactor = "factor"
	FieldMetric = "metric"

	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldCount      = "count"
	FieldPath       = "path"
)

type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	caseKey      contextKey = "logger_case"
	componentKey contextKey = "logger_component"
)

// WithRunID adds a run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithCase adds a case name to the context for logging
func WithCase(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, caseKey, name)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		fields = append(fields, FieldRunID, id)
	}
	if name, ok := ctx.Value(caseKey).(string); ok && name != "" {
		fields = append(fields, FieldCase, name)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns base with fields extracted from ctx.
func LoggerFromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
//	engine := metrics.NewEngine(cfg, logger.ComponentLogger("metrics"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
