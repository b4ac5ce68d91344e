package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"staffhub/internal/domain/attendance"
)

// Collector keeps process-local counters for HTTP traffic and attendance outcomes.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64
	clockConflicts  uint64

	mu          sync.Mutex
	raised      map[attendance.AnomalyType]uint64
	transitions map[attendance.AnomalyStatus]uint64
}

func New() *Collector {
	return &Collector{
		raised:      map[attendance.AnomalyType]uint64{},
		transitions: map[attendance.AnomalyStatus]uint64{},
	}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == http.StatusTooManyRequests {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) AnomalyRaised(t attendance.AnomalyType) {
	c.mu.Lock()
	c.raised[t]++
	c.mu.Unlock()
}

func (c *Collector) AnomalyTransitioned(to attendance.AnomalyStatus) {
	c.mu.Lock()
	c.transitions[to]++
	c.mu.Unlock()
}

func (c *Collector) ClockConflict(attendance.ClockEventKind) {
	atomic.AddUint64(&c.clockConflicts, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	raised := make(map[string]uint64, len(c.raised))
	for k, v := range c.raised {
		raised[string(k)] = v
	}
	transitions := make(map[string]uint64, len(c.transitions))
	for k, v := range c.transitions {
		transitions[string(k)] = v
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":       total,
		"errorsTotal":         errs,
		"rateLimitedTotal":    limited,
		"avgDurationMs":       avg,
		"totalDurationMs":     totalMs,
		"clockConflictsTotal": atomic.LoadUint64(&c.clockConflicts),
		"anomaliesRaised":     raised,
		"anomalyTransitions":  transitions,
	}
}

// Handler serves the snapshot as JSON.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c.Snapshot())
	})
}
