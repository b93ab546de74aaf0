package monitoring

import (
	"sync"
	"time"
)

// Metrics collects in-process counters for the service.
type Metrics struct {
	mu sync.RWMutex

	totalRequests  int64
	requestsByCode map[int]int64
	totalDuration  time.Duration

	cacheHits   int64
	cacheMisses int64

	scoringRuns     int64
	customersScored int64
	importRuns      int64
	importedRows    int64
	rejectedRows    int64

	authFailures int64
	lockouts     int64

	rateLimitIPBlocks      int64
	rateLimitImportBlocks  int64
	rateLimitScoringBlocks int64
	rateLimitRedisErrors   int64
	rateLimitFallbacks     int64

	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsByCode: make(map[int]int64),
		startTime:      time.Now(),
	}
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(statusCode int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	m.requestsByCode[statusCode]++
	m.totalDuration += duration
}

func (m *Metrics) IncrementCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

func (m *Metrics) IncrementCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMisses++
}

// RecordScoringRun records one propensity scoring pass over n customers.
func (m *Metrics) RecordScoringRun(customers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scoringRuns++
	m.customersScored += int64(customers)
}

// RecordImport records a CSV import with accepted and rejected row counts.
func (m *Metrics) RecordImport(accepted, rejected int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.importRuns++
	m.importedRows += int64(accepted)
	m.rejectedRows += int64(rejected)
}

func (m *Metrics) IncrementAuthFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authFailures++
}

func (m *Metrics) IncrementLockout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockouts++
}

func (m *Metrics) IncrementRateLimitIPBlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimitIPBlocks++
}

func (m *Metrics) IncrementRateLimitImportBlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimitImportBlocks++
}

// IncrementRateLimitScoringBlock counts free-plan daily scoring quota denials.
func (m *Metrics) IncrementRateLimitScoringBlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimitScoringBlocks++
}

func (m *Metrics) IncrementRateLimitRedisError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimitRedisErrors++
}

func (m *Metrics) IncrementRateLimitFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimitFallbacks++
}

// GetStats returns a snapshot of all counters.
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	avgDurationMs := float64(0)
	if m.totalRequests > 0 {
		avgDurationMs = float64(m.totalDuration.Milliseconds()) / float64(m.totalRequests)
	}

	byCode := make(map[int]int64, len(m.requestsByCode))
	for code, count := range m.requestsByCode {
		byCode[code] = count
	}

	return map[string]interface{}{
		"uptime_seconds":           time.Since(m.startTime).Seconds(),
		"total_requests":           m.totalRequests,
		"requests_by_status":       byCode,
		"avg_request_ms":           avgDurationMs,
		"cache_hits":               m.cacheHits,
		"cache_misses":             m.cacheMisses,
		"scoring_runs":             m.scoringRuns,
		"customers_scored":         m.customersScored,
		"import_runs":              m.importRuns,
		"imported_rows":            m.importedRows,
		"rejected_rows":            m.rejectedRows,
		"auth_failures":            m.authFailures,
		"lockouts":                 m.lockouts,
		"ratelimit_ip_blocks":      m.rateLimitIPBlocks,
		"ratelimit_import_blocks":  m.rateLimitImportBlocks,
		"ratelimit_scoring_blocks": m.rateLimitScoringBlocks,
		"ratelimit_redis_errors":   m.rateLimitRedisErrors,
		"ratelimit_fallbacks":      m.rateLimitFallbacks,
	}
}
