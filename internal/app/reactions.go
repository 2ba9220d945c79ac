package app

import (
	"sync"
	"time"

	"github.com/dkeye/Seminar/internal/domain"
	"github.com/google/uuid"
)

const DefaultReactionTTL = 3 * time.Second

type stopper interface{ Stop() bool }

type arrival struct {
	r  domain.Reaction
	at time.Time
}

// ReactionFeed keeps reactions visible for a fixed window after they arrive.
// The window runs on the local clock; the server timestamp is only shown.
type ReactionFeed struct {
	mu     sync.Mutex
	ttl    time.Duration
	live   []arrival
	timers map[domain.ReactionID]stopper

	now      func() time.Time
	schedule func(d time.Duration, f func()) stopper
}

func NewReactionFeed(ttl time.Duration) *ReactionFeed {
	if ttl <= 0 {
		ttl = DefaultReactionTTL
	}
	return &ReactionFeed{
		ttl:    ttl,
		timers: make(map[domain.ReactionID]stopper),
		now:    time.Now,
		schedule: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// Add shows a reaction and schedules its expiry one window after arrival.
func (f *ReactionFeed) Add(r domain.Reaction) bool {
	if r.ID == "" {
		r.ID = domain.ReactionID(uuid.NewString())
	}
	now := f.now()
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.timers[r.ID]; dup {
		return false
	}
	f.live = append(f.live, arrival{r: r, at: now})
	id := r.ID
	f.timers[id] = f.schedule(f.ttl, func() { f.Expire(id) })
	return true
}

func (f *ReactionFeed) Expire(id domain.ReactionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.timers[id]; ok {
		t.Stop()
		delete(f.timers, id)
	}
	for i := range f.live {
		if f.live[i].r.ID == id {
			f.live = append(f.live[:i], f.live[i+1:]...)
			return
		}
	}
}

// Live lists the reactions still inside their window.
func (f *ReactionFeed) Live() []domain.Reaction {
	now := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Reaction, 0, len(f.live))
	for _, a := range f.live {
		if now.Sub(a.at) < f.ttl {
			out = append(out, a.r)
		}
	}
	return out
}

// Close cancels every pending expiry and empties the feed.
func (f *ReactionFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.timers {
		t.Stop()
		delete(f.timers, id)
	}
	f.live = nil
}
