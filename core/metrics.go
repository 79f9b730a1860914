package core

import (
	"context"
	"maps"
)

// Host operations report <prefix>.<operation>.total and
// <prefix>.<operation>.duration_ms, tagged with operation and status.
const metricPrefix = "maxbridge"

func operationCounterName(operation string) string {
	return metricPrefix + "." + operation + ".total"
}

func operationDurationName(operation string) string {
	return metricPrefix + "." + operation + ".duration_ms"
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// cloneTags hands recorders their own copy so label maps built per call are
// never shared with a collector that keeps them.
func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	return maps.Clone(tags)
}

var _ MetricsRecorder = NopMetricsRecorder{}
