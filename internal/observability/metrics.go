package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu                 sync.Mutex
	requestCount       map[string]int64
	errorCount         map[string]int64
	turnCount          map[string]int64
	escalationCount    map[string]int64
	extractionFailures int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		errorCount:      make(map[string]int64),
		turnCount:       make(map[string]int64),
		escalationCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
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

// RecordTurn counts one handled conversation turn by resolved stage.
func (m *Metrics) RecordTurn(stage string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnCount[stage]++
}

// RecordEscalation counts escalations by reason.
func (m *Metrics) RecordEscalation(reason string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalationCount[reason]++
}

// RecordExtractionFailure counts degraded extraction calls.
func (m *Metrics) RecordExtractionFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractionFailures++
}

// Snapshot returns a copy of the counters for the metrics endpoint.
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	requests := make(map[string]int64, len(m.requestCount))
	for k, v := range m.requestCount {
		requests[k] = v
	}
	errors := make(map[string]int64, len(m.errorCount))
	for k, v := range m.errorCount {
		errors[k] = v
	}
	turns := make(map[string]int64, len(m.turnCount))
	for k, v := range m.turnCount {
		turns[k] = v
	}
	escalations := make(map[string]int64, len(m.escalationCount))
	for k, v := range m.escalationCount {
		escalations[k] = v
	}
	return map[string]any{
		"requests":            requests,
		"errors":              errors,
		"turns":               turns,
		"escalations":         escalations,
		"extraction_failures": m.extractionFailures,
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
