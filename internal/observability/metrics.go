package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters, including realtime layer
// gauges so operators can inspect connection and broadcast volume.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	errorCount      map[string]int64
	broadcastCount  map[string]int64
	liveConnections int64
	emailsQueued    int64
	emailsDropped   int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		broadcastCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordBroadcast counts realtime events sent, keyed by event name.
func (m *Metrics) RecordBroadcast(event string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcastCount[event]++
}

// ConnectionOpened increments the live connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liveConnections++
}

// ConnectionClosed decrements the live connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liveConnections--
}

// EmailQueued counts accepted email tasks.
func (m *Metrics) EmailQueued() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailsQueued++
}

// EmailDropped counts email tasks rejected because the queue was full.
func (m *Metrics) EmailDropped() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailsDropped++
}

// Snapshot returns a copy of current counters for the admin surface.
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	broadcasts := make(map[string]int64, len(m.broadcastCount))
	for k, v := range m.broadcastCount {
		broadcasts[k] = v
	}
	return map[string]any{
		"live_connections": m.liveConnections,
		"broadcasts":       broadcasts,
		"emails_queued":    m.emailsQueued,
		"emails_dropped":   m.emailsDropped,
	}
}
