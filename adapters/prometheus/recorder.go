package prometheus

import (
	"context"
	"sort"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-maxbridge/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder implements core.MetricsRecorder on client_golang. Vectors are
// created on first use; the label set of a metric is fixed by the tags of its
// first observation.
type Recorder struct {
	registerer prom.Registerer
	namespace  string
	buckets    []float64
	logger     glog.Logger

	mu         sync.Mutex
	counters   map[string]*counterVec
	histograms map[string]*histogramVec
}

type counterVec struct {
	vec    *prom.CounterVec
	labels []string
}

type histogramVec struct {
	vec    *prom.HistogramVec
	labels []string
}

type Option func(*Recorder)

func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = sanitize(namespace)
	}
}

// WithBuckets sets histogram buckets in the unit of the observed values.
func WithBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// DefaultBuckets suits millisecond durations of network round trips.
var DefaultBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

func New(registerer prom.Registerer, opts ...Option) *Recorder {
	if registerer == nil {
		registerer = prom.DefaultRegisterer
	}
	r := &Recorder{
		registerer: registerer,
		buckets:    DefaultBuckets,
		logger:     glog.Nop(),
		counters:   map[string]*counterVec{},
		histograms: map[string]*histogramVec{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	entry := r.counter(name, tags)
	if entry == nil {
		return
	}
	entry.vec.WithLabelValues(labelValues(entry.labels, tags)...).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	entry := r.histogram(name, tags)
	if entry == nil {
		return
	}
	entry.vec.WithLabelValues(labelValues(entry.labels, tags)...).Observe(value)
}

func (r *Recorder) counter(name string, tags map[string]string) *counterVec {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.counters[name]; ok {
		return entry
	}
	labels := labelNames(tags)
	vec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: r.namespace,
		Name:      sanitize(name),
		Help:      "maxbridge counter " + name,
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		existing, ok := err.(prom.AlreadyRegisteredError)
		if !ok {
			r.logger.Warn("metric not registered", "metric", name, "error", err.Error())
			return nil
		}
		if vec, ok = existing.ExistingCollector.(*prom.CounterVec); !ok {
			return nil
		}
	}
	entry := &counterVec{vec: vec, labels: labels}
	r.counters[name] = entry
	return entry
}

func (r *Recorder) histogram(name string, tags map[string]string) *histogramVec {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.histograms[name]; ok {
		return entry
	}
	labels := labelNames(tags)
	vec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: r.namespace,
		Name:      sanitize(name),
		Help:      "maxbridge histogram " + name,
		Buckets:   r.buckets,
	}, labels)
	if err := r.registerer.Register(vec); err != nil {
		existing, ok := err.(prom.AlreadyRegisteredError)
		if !ok {
			r.logger.Warn("metric not registered", "metric", name, "error", err.Error())
			return nil
		}
		if vec, ok = existing.ExistingCollector.(*prom.HistogramVec); !ok {
			return nil
		}
	}
	entry := &histogramVec{vec: vec, labels: labels}
	r.histograms[name] = entry
	return entry
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for key := range tags {
		names = append(names, sanitize(key))
	}
	sort.Strings(names)
	return names
}

// labelValues orders tag values by labels. Missing tags become empty values;
// tags outside the label set are dropped.
func labelValues(labels []string, tags map[string]string) []string {
	byLabel := make(map[string]string, len(tags))
	for key, value := range tags {
		byLabel[sanitize(key)] = value
	}
	values := make([]string, len(labels))
	for i, label := range labels {
		values[i] = byLabel[label]
	}
	return values
}

// sanitize maps dotted metric names to the Prometheus charset.
func sanitize(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var _ core.MetricsRecorder = (*Recorder)(nil)
