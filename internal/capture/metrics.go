package capture

import (
	"sync"
	"time"
)

// Metrics tracks per-session frame counters. Arrivals and drops are
// recorded from the backend callback; the rest from the consumer.
type Metrics struct {
	mu sync.RWMutex

	FramesArrived   uint64
	FramesDropped   uint64
	FramesDelivered uint64
	Reallocations   uint64

	LastCopyTime time.Duration
	startTime    time.Time
}

func newMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) RecordArrival() {
	m.mu.Lock()
	m.FramesArrived++
	m.mu.Unlock()
}

func (m *Metrics) RecordDrop() {
	m.mu.Lock()
	m.FramesDropped++
	m.mu.Unlock()
}

func (m *Metrics) RecordDelivery(copyTime time.Duration) {
	m.mu.Lock()
	m.FramesDelivered++
	m.LastCopyTime = copyTime
	m.mu.Unlock()
}

func (m *Metrics) RecordRealloc() {
	m.mu.Lock()
	m.Reallocations++
	m.mu.Unlock()
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	FramesArrived   uint64
	FramesDropped   uint64
	FramesDelivered uint64
	Reallocations   uint64
	LastCopyTime    time.Duration
	Uptime          time.Duration
	DeliveredFPS    float64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uptime := time.Since(m.startTime)
	var fps float64
	if secs := uptime.Seconds(); secs > 0 {
		fps = float64(m.FramesDelivered) / secs
	}
	return MetricsSnapshot{
		FramesArrived:   m.FramesArrived,
		FramesDropped:   m.FramesDropped,
		FramesDelivered: m.FramesDelivered,
		Reallocations:   m.Reallocations,
		LastCopyTime:    m.LastCopyTime,
		Uptime:          uptime,
		DeliveredFPS:    fps,
	}
}
