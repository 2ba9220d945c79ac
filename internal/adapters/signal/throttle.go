package signal

import (
	"sync"
	"time"

	"github.com/dkeye/Seminar/internal/domain"
)

// Throttle is a sliding-window limiter: at most limit events per key in
// any interval.
type Throttle struct {
	mu       sync.Mutex
	history  map[domain.UserID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewThrottle(limit int, interval time.Duration) *Throttle {
	return &Throttle{
		history:  make(map[domain.UserID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (t *Throttle) Allow(key domain.UserID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	windowStart := now.Add(-t.interval)

	attempts := t.history[key]
	fresh := attempts[:0]
	for _, at := range attempts {
		if at.After(windowStart) {
			fresh = append(fresh, at)
		}
	}
	if len(fresh) >= t.limit {
		t.history[key] = fresh
		return false
	}
	t.history[key] = append(fresh, now)
	return true
}
