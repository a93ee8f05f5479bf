package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"
)

// Action names a staff resolution request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionDeny    Action = "deny"
	ActionReturn  Action = "return"
)

var (
	ErrAlreadyResolved = errors.New("claim already resolved")
	ErrNotFound        = errors.New("claim not found")
)

// API is the request/response half of the backend surface: action calls
// and the reconciliation snapshot. Push events arrive separately through
// the channel client.
type API interface {
	PendingClaims(ctx context.Context) (*SnapshotResult, error)
	Claim(ctx context.Context, id string) (*Notification, error)
	Resolve(ctx context.Context, id string, action Action, adminComment string) (*Notification, error)
}

// SnapshotResult is the authoritative pending set at ServerTime.
type SnapshotResult struct {
	Claims     []*Notification
	ServerTime time.Time
}

// Event is one decoded push-channel message.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type Config struct {
	// MaxVisible caps individually rendered notifications (default 3).
	MaxVisible int
	// ClaimTimeout backfills the deadline of degraded payloads (default 5m).
	ClaimTimeout time.Duration
	// RequestTimeout bounds background API calls (default 10s).
	RequestTimeout time.Duration
}

// Center owns the notification queue and linearizes everything that can
// mutate it: push events, countdown firings, snapshot merges and user
// actions all execute as commands on a single event-loop goroutine, so no
// partial update is ever observable and no locking is needed around queue
// state.
//
// In-flight API requests run on their own goroutines and post their
// results back as commands; they never block the loop.
type Center struct {
	api       API
	cfg       Config
	queue     *Queue
	countdown *Countdown

	cmds chan func()

	pinned       string
	expanded     bool
	disconnected bool
	notice       string

	runCtx context.Context
}

func NewCenter(api API, cfg Config) *Center {
	if cfg.MaxVisible <= 0 {
		cfg.MaxVisible = 3
	}
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = 5 * time.Minute
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	c := &Center{
		api:    api,
		cfg:    cfg,
		queue:  NewQueue(),
		cmds:   make(chan func(), 256),
		runCtx: context.Background(),
	}
	c.countdown = NewCountdown(c.localExpire)
	return c
}

// Run processes commands until ctx is cancelled. Must be running for any
// Center method to take effect.
func (c *Center) Run(ctx context.Context) {
	c.runCtx = ctx
	go c.countdown.Run(ctx)

	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Center) post(fn func()) {
	c.cmds <- fn
}

// do posts fn and waits for the loop to execute it.
func (c *Center) do(fn func()) {
	done := make(chan struct{})
	c.cmds <- func() {
		fn()
		close(done)
	}
	<-done
}

// View derives the current view model. The read runs on the loop, so it
// never observes a half-applied event.
func (c *Center) View() ViewModel {
	var vm ViewModel
	c.do(func() {
		vm = BuildViewModel(c.queue.NewestFirst(), c.pinned, c.expanded, c.cfg.MaxVisible, time.Now())
		vm.Disconnected = c.disconnected
		vm.Notice = c.notice
	})
	return vm
}

// --- push events -----------------------------------------------------------

// HandleEvent feeds one push-channel event into the reconciliation loop.
func (c *Center) HandleEvent(ev Event) {
	c.post(func() { c.applyEvent(ev) })
}

func (c *Center) applyEvent(ev Event) {
	switch ev.Type {
	case "claim:created":
		n, ok := decodeNotification(ev.Payload, time.Now(), c.cfg.ClaimTimeout)
		if !ok {
			log.Printf("notifier: undecodable %s payload", ev.Type)
			return
		}
		if existing, found := c.queue.Get(n.ID); found {
			// Duplicate push: last writer for status, never a regression.
			if existing.ApplyServer(n.Status, n.Resolution, n.AdminComment) && existing.Status.Terminal() {
				c.countdown.Detach(existing.ID)
			}
			return
		}
		n.Confirmed = true
		c.queue.Insert(n)
		if n.Status == StatusPending {
			c.countdown.Attach(n.ID, n.Deadline)
		}

	case "claim:statusChanged":
		var sc struct {
			ID           string `json:"id"`
			Status       Status `json:"status"`
			Resolution   string `json:"resolution"`
			AdminComment string `json:"admin_comment"`
		}
		if err := json.Unmarshal(ev.Payload, &sc); err != nil || sc.ID == "" {
			log.Printf("notifier: undecodable %s payload", ev.Type)
			return
		}
		c.applyServerStatus(sc.ID, sc.Status, sc.Resolution, sc.AdminComment)

	case "claim:expired":
		var ex struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.Payload, &ex); err != nil || ex.ID == "" {
			log.Printf("notifier: undecodable %s payload", ev.Type)
			return
		}
		c.applyServerStatus(ex.ID, StatusExpired, "", "")
	}
}

// applyServerStatus merges an authoritative status for id. Unknown ids are
// ignored; the snapshot covers anything this viewer has never seen.
func (c *Center) applyServerStatus(id string, status Status, resolution, adminComment string) {
	n, ok := c.queue.Get(id)
	if !ok {
		return
	}
	if n.ApplyServer(status, resolution, adminComment) && n.Status.Terminal() {
		c.countdown.Detach(id)
	}
}

// --- local expiry ----------------------------------------------------------

// localExpire is the countdown callback. The local firing is a prediction:
// the view flips to expired optimistically and the server is asked for the
// fact, which may confirm or override it.
func (c *Center) localExpire(id string) {
	c.post(func() {
		n, ok := c.queue.Get(id)
		if !ok || n.Status != StatusPending {
			// Fired after removal or resolution — guaranteed no-op.
			return
		}
		n.ApplyLocal(StatusExpired)
		go c.confirm(id)
	})
}

// confirm fetches the server's state for id and merges any terminal
// outcome. A server status of pending keeps the local prediction in place
// until the authoritative claim:expired event lands.
func (c *Center) confirm(id string) {
	ctx, cancel := context.WithTimeout(c.runCtx, c.cfg.RequestTimeout)
	defer cancel()

	latest, err := c.api.Claim(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.post(func() { c.remove(id) })
			return
		}
		log.Printf("notifier: confirm %s: %v", id, err)
		return
	}

	if latest.Status.Terminal() {
		c.post(func() {
			c.applyServerStatus(id, latest.Status, latest.Resolution, latest.AdminComment)
		})
	}
}

// --- actions ---------------------------------------------------------------

func actionStatus(a Action) Status {
	if a == ActionDeny {
		return StatusDenied
	}
	return StatusApproved
}

// Resolve requests approve/deny/return for a claim. The view updates
// optimistically; a server rejection rolls it back.
func (c *Center) Resolve(id string, action Action, adminComment string) {
	c.post(func() {
		n, ok := c.queue.Get(id)
		if !ok {
			return
		}
		prev, prevConfirmed, applied := n.ApplyLocal(actionStatus(action))
		if !applied {
			c.notice = "Claim was already resolved"
			return
		}
		c.countdown.Detach(id)
		go c.sendResolve(id, action, adminComment, prev, prevConfirmed)
	})
}

func (c *Center) sendResolve(id string, action Action, adminComment string, prev Status, prevConfirmed bool) {
	ctx, cancel := context.WithTimeout(c.runCtx, c.cfg.RequestTimeout)
	defer cancel()

	latest, err := c.api.Resolve(ctx, id, action, adminComment)

	c.post(func() {
		n, ok := c.queue.Get(id)
		if !ok {
			return // dismissed while the request was in flight
		}

		switch {
		case err == nil:
			n.ApplyServer(latest.Status, latest.Resolution, latest.AdminComment)

		case errors.Is(err, ErrAlreadyResolved):
			// Another viewer or the server-side deadline won. Surface it and
			// show the server's actual outcome instead of ours.
			c.notice = "Claim was already resolved"
			if latest != nil {
				n.Confirmed = false
				n.ApplyServer(latest.Status, latest.Resolution, latest.AdminComment)
			} else {
				go c.confirm(id)
			}

		case errors.Is(err, ErrNotFound):
			c.remove(id)

		default:
			// Transport failure: the optimistic update must not stick.
			n.Rollback(prev, prevConfirmed)
			c.notice = "Action failed, please retry"
			if n.Status == StatusPending {
				c.countdown.Attach(id, n.Deadline)
			}
		}
	})
}

// --- connection lifecycle --------------------------------------------------

// HandleConnected runs after every (re)connect + identify. The snapshot
// refetch is mandatory: the channel queues nothing for absent viewers.
func (c *Center) HandleConnected() {
	c.post(func() {
		c.disconnected = false
		go c.fetchSnapshot()
	})
}

// HandleDown marks the persistent disconnected indicator once the
// transport has exhausted its retry budget.
func (c *Center) HandleDown() {
	c.post(func() {
		c.disconnected = true
	})
}

func (c *Center) fetchSnapshot() {
	ctx, cancel := context.WithTimeout(c.runCtx, c.cfg.RequestTimeout)
	defer cancel()

	snap, err := c.api.PendingClaims(ctx)
	if err != nil {
		log.Printf("notifier: snapshot fetch failed: %v", err)
		return
	}
	c.post(func() { c.reconcileSnapshot(snap.Claims) })
}

// reconcileSnapshot merges the authoritative pending set with the local
// queue by id.
func (c *Center) reconcileSnapshot(claims []*Notification) {
	inSnapshot := make(map[string]bool, len(claims))

	for _, sn := range claims {
		inSnapshot[sn.ID] = true

		if existing, ok := c.queue.Get(sn.ID); ok {
			// Known claim: merge status but keep the original deadline —
			// it is fixed at creation and never reset by a reconnect.
			existing.ApplyServer(sn.Status, sn.Resolution, sn.AdminComment)
			if existing.Status == StatusPending && !c.countdown.Tracking(sn.ID) {
				c.countdown.Attach(sn.ID, existing.Deadline)
			}
			continue
		}

		sn.Confirmed = true
		c.queue.Insert(sn)
		if sn.Status == StatusPending {
			c.countdown.Attach(sn.ID, sn.Deadline)
		}
	}

	// Present locally but absent from the snapshot: resolved while we were
	// away. A detail fetch reveals the terminal state (or removal).
	for _, id := range c.queue.IDs() {
		if inSnapshot[id] {
			continue
		}
		n, _ := c.queue.Get(id)
		if n.Confirmed && n.Status.Terminal() {
			continue
		}
		go c.confirm(id)
	}
}

// --- view state ------------------------------------------------------------

// Dismiss removes the notification from the queue. A still-pending claim
// keeps its server-side lifecycle; this viewer just stops observing it.
func (c *Center) Dismiss(id string) {
	c.post(func() { c.remove(id) })
}

func (c *Center) remove(id string) {
	c.queue.Remove(id)
	c.countdown.Detach(id)
	if c.pinned == id {
		c.pinned = ""
	}
}

// Pin opens a notification in the detail drawer, excluding it from the
// visible-K computation. Opening a detail resets the expanded toggle.
func (c *Center) Pin(id string) {
	c.post(func() {
		if _, ok := c.queue.Get(id); ok {
			c.pinned = id
			c.expanded = false
		}
	})
}

func (c *Center) Unpin() {
	c.post(func() { c.pinned = "" })
}

// ToggleExpanded flips the "+N more" aggregate between collapsed and full
// views. Pure view state.
func (c *Center) ToggleExpanded() {
	c.post(func() { c.expanded = !c.expanded })
}

func (c *Center) ClearNotice() {
	c.post(func() { c.notice = "" })
}
