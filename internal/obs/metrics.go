package obs

import (
	"sort"
	"sync"
)

// Label is a key/value pair attached to measurements.
type Label struct {
	Key   string
	Value string
}

// Meter is a very small interface for emitting counters/histograms.
// Implementations may no-op or bridge to a metrics system.
type Meter interface {
	Counter(name string, value float64, labels ...Label)
	Histogram(name string, value float64, labels ...Label)
}

// NopMeter is a Meter that discards all measurements.
type NopMeter struct{}

func (NopMeter) Counter(name string, value float64, labels ...Label)   {}
func (NopMeter) Histogram(name string, value float64, labels ...Label) {}

// MeterOrNop returns m, or a NopMeter when m is nil.
func MeterOrNop(m Meter) Meter {
	if m == nil {
		return NopMeter{}
	}
	return m
}

// MemMeter keeps counter totals and histogram observation counts in
// memory. Labels are ignored. It is safe for concurrent use.
type MemMeter struct {
	mu       sync.Mutex
	counters map[string]float64
	observed map[string]int
}

// NewMemMeter returns an empty MemMeter.
func NewMemMeter() *MemMeter {
	return &MemMeter{
		counters: make(map[string]float64),
		observed: make(map[string]int),
	}
}

func (m *MemMeter) Counter(name string, value float64, labels ...Label) {
	m.mu.Lock()
	m.counters[name] += value
	m.mu.Unlock()
}

func (m *MemMeter) Histogram(name string, value float64, labels ...Label) {
	m.mu.Lock()
	m.observed[name]++
	m.mu.Unlock()
}

// Total returns the sum of all values added to counter name.
func (m *MemMeter) Total(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Observations returns how many values histogram name has received.
func (m *MemMeter) Observations(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observed[name]
}

// Report logs every counter total, sorted by name.
func (m *MemMeter) Report(l Logger) {
	m.mu.Lock()
	names := make([]string, 0, len(m.counters))
	for name := range m.counters {
		names = append(names, name)
	}
	totals := make(map[string]float64, len(m.counters))
	for k, v := range m.counters {
		totals[k] = v
	}
	m.mu.Unlock()

	sort.Strings(names)
	for _, name := range names {
		OrNop(l).Logf(Info, "%s = %g", name, totals[name])
	}
}

// Metric names emitted by the async layer.
const (
	MetricConnectionsAccepted   = "asyncsock.connections.accepted"
	MetricConnectionsTerminated = "asyncsock.connections.terminated"
	MetricBytesReceived         = "asyncsock.bytes.received"
	MetricMessageSize           = "asyncsock.message.size"
	MetricListenerErrors        = "asyncsock.listener.errors"
)
