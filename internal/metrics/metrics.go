package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry keeps process-local counters, timers and gauges. There is no
// external metrics backend; the API exposes the registry as JSON.
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]float64
	timers    map[string]*TimerMetric
	gauges    map[string]float64
	startTime time.Time
}

// TimerMetric aggregates timing samples for one key.
type TimerMetric struct {
	Count   int64   `json:"count"`
	Sum     float64 `json:"sum_ms"`
	Min     float64 `json:"min_ms"`
	Max     float64 `json:"max_ms"`
	Average float64 `json:"avg_ms"`
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]float64),
		timers:    make(map[string]*TimerMetric),
		gauges:    make(map[string]float64),
		startTime: time.Now(),
	}
}

var globalRegistry = NewRegistry()

// GetRegistry returns the process-wide registry.
func GetRegistry() *Registry {
	return globalRegistry
}

// IncrementCounter adds one to a counter.
func (r *Registry) IncrementCounter(name string, labels map[string]string) {
	r.AddToCounter(name, 1, labels)
}

// AddToCounter adds a value to a counter.
func (r *Registry) AddToCounter(name string, value float64, labels map[string]string) {
	key := metricKey(name, labels)
	r.mu.Lock()
	r.counters[key] += value
	r.mu.Unlock()
}

// RecordTimer records one duration sample.
func (r *Registry) RecordTimer(name string, duration time.Duration, labels map[string]string) {
	key := metricKey(name, labels)
	ms := float64(duration.Nanoseconds()) / 1e6

	r.mu.Lock()
	defer r.mu.Unlock()

	timer, ok := r.timers[key]
	if !ok {
		r.timers[key] = &TimerMetric{Count: 1, Sum: ms, Min: ms, Max: ms, Average: ms}
		return
	}

	timer.Count++
	timer.Sum += ms
	if ms < timer.Min {
		timer.Min = ms
	}
	if ms > timer.Max {
		timer.Max = ms
	}
	timer.Average = timer.Sum / float64(timer.Count)
}

// SetGauge sets a gauge value.
func (r *Registry) SetGauge(name string, value float64, labels map[string]string) {
	key := metricKey(name, labels)
	r.mu.Lock()
	r.gauges[key] = value
	r.mu.Unlock()
}

// Snapshot returns all metrics plus uptime, for the /metrics handler.
func (r *Registry) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counters := make(map[string]float64, len(r.counters))
	for k, v := range r.counters {
		counters[k] = v
	}
	timers := make(map[string]TimerMetric, len(r.timers))
	for k, v := range r.timers {
		timers[k] = *v
	}
	gauges := make(map[string]float64, len(r.gauges))
	for k, v := range r.gauges {
		gauges[k] = v
	}

	return map[string]interface{}{
		"counters":  counters,
		"timers":    timers,
		"gauges":    gauges,
		"uptime_ms": time.Since(r.startTime).Milliseconds(),
		"timestamp": time.Now().Unix(),
	}
}

func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('_')
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(labels[k])
	}
	return b.String()
}

// Convenience wrappers over the global registry.

func IncrementCounter(name string, labels map[string]string) {
	globalRegistry.IncrementCounter(name, labels)
}

func AddToCounter(name string, value float64, labels map[string]string) {
	globalRegistry.AddToCounter(name, value, labels)
}

func RecordTimer(name string, duration time.Duration, labels map[string]string) {
	globalRegistry.RecordTimer(name, duration, labels)
}

func SetGauge(name string, value float64, labels map[string]string) {
	globalRegistry.SetGauge(name, value, labels)
}

func Snapshot() map[string]interface{} {
	return globalRegistry.Snapshot()
}
