package cache

import (
	"sync/atomic"
	"time"
)

// CacheMetrics is a point-in-time snapshot of cache activity counters.
type CacheMetrics struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Errors    int64 `json:"errors"`
	Sets      int64 `json:"sets"`
	Deletes   int64 `json:"deletes"`
	StartTime int64 `json:"start_time"`
}

// metricsRecorder accumulates counters for a single cache instance.
// All counters are safe for concurrent use.
type metricsRecorder struct {
	hits    atomic.Int64
	misses  atomic.Int64
	errors  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	started time.Time
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{started: time.Now()}
}

func (m *metricsRecorder) hit()     { m.hits.Add(1) }
func (m *metricsRecorder) miss()    { m.misses.Add(1) }
func (m *metricsRecorder) failure() { m.errors.Add(1) }
func (m *metricsRecorder) set()     { m.sets.Add(1) }
func (m *metricsRecorder) delete()  { m.deletes.Add(1) }

func (m *metricsRecorder) snapshot() CacheMetrics {
	return CacheMetrics{
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Errors:    m.errors.Load(),
		Sets:      m.sets.Load(),
		Deletes:   m.deletes.Load(),
		StartTime: m.started.Unix(),
	}
}

func (m *metricsRecorder) hitRate() float64 {
	hits := m.hits.Load()
	total := hits + m.misses.Load()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total) * 100.0
}
