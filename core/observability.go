package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

func (h *Host) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	errorCode string,
	fields map[string]any,
) {
	if h == nil {
		return
	}
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if errorCode != "" {
		status = "failure"
	}

	contextFields := RedactLogFields(fields)
	contextFields["event_type"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()
	if errorCode != "" {
		contextFields["error_code"] = errorCode
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	if errorCode != "" {
		tags["error_code"] = errorCode
	}
	if mode := strings.TrimSpace(fmt.Sprint(contextFields["bridge_mode"])); mode != "" && mode != "<nil>" {
		tags["bridge_mode"] = mode
	}

	h.recordCounter(ctx, operationCounterName(operation), 1, tags)
	h.recordHistogram(ctx, operationDurationName(operation), float64(time.Since(startedAt).Milliseconds()), tags)

	if errorCode != "" {
		h.logError(ctx, operation+" failed", contextFields)
		return
	}
	h.logInfo(ctx, operation+" succeeded", contextFields)
}

func (h *Host) logInfo(ctx context.Context, message string, fields map[string]any) {
	h.logWithLevel(ctx, "info", message, fields)
}

func (h *Host) logWarn(ctx context.Context, message string, fields map[string]any) {
	h.logWithLevel(ctx, "warn", message, fields)
}

func (h *Host) logError(ctx context.Context, message string, fields map[string]any) {
	h.logWithLevel(ctx, "error", message, fields)
}

func (h *Host) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if h == nil || h.logger == nil {
		return
	}
	logWithLevel(ctx, h.logger, level, message, fields)
}

func logWithLevel(ctx context.Context, logger Logger, level string, message string, fields map[string]any) {
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	case "warn":
		logger.Warn(message, args...)
	case "debug":
		logger.Debug(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (h *Host) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if h == nil || h.metricsRecorder == nil {
		return
	}
	h.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (h *Host) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if h == nil || h.metricsRecorder == nil {
		return
	}
	h.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	return maps.Clone(fields)
}

// flattenFields turns fields into sorted key/value pairs so log lines are
// stable across runs.
func flattenFields(fields map[string]any) []any {
	args := make([]any, 0, len(fields)*2)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	return operation
}
