package notifier

import (
	"context"
	"sync"
	"time"
)

// Countdown is the registry of per-notification deadlines. It ticks once a
// second and fires the expiry callback at most once per id.
//
// The expiry decision is a single comparison of the wall clock against the
// server-set deadline, never an accumulated counter, so missed ticks (a
// backgrounded tab, a suspended process) cannot drift: the first tick after
// waking fires everything that is due.
type Countdown struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
	fired     map[string]struct{}

	onExpire func(id string)
	now      func() time.Time
}

func NewCountdown(onExpire func(id string)) *Countdown {
	return &Countdown{
		deadlines: make(map[string]time.Time),
		fired:     make(map[string]struct{}),
		onExpire:  onExpire,
		now:       time.Now,
	}
}

// Attach starts tracking the deadline for id. No-op if the id is already
// tracked or has already fired.
func (cd *Countdown) Attach(id string, deadline time.Time) {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	if _, ok := cd.fired[id]; ok {
		return
	}
	if _, ok := cd.deadlines[id]; ok {
		return
	}
	cd.deadlines[id] = deadline
}

// Detach stops tracking id. Safe to call for unknown or already-fired ids.
func (cd *Countdown) Detach(id string) {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	delete(cd.deadlines, id)
}

// Tracking reports whether id currently has a live deadline.
func (cd *Countdown) Tracking(id string) bool {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	_, ok := cd.deadlines[id]
	return ok
}

// Tick fires the callback for every tracked id whose deadline has passed.
// Callbacks run outside the lock.
func (cd *Countdown) Tick() {
	now := cd.now()

	cd.mu.Lock()
	var due []string
	for id, deadline := range cd.deadlines {
		if !now.Before(deadline) {
			due = append(due, id)
		}
	}
	for _, id := range due {
		delete(cd.deadlines, id)
		cd.fired[id] = struct{}{}
	}
	cd.mu.Unlock()

	for _, id := range due {
		cd.onExpire(id)
	}
}

// Run ticks once per second until ctx is cancelled.
func (cd *Countdown) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cd.Tick()
		case <-ctx.Done():
			return
		}
	}
}
