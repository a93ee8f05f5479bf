// Package notifier implements the staff dashboard's claim-notification
// core: a push-channel client, a per-notification countdown registry, the
// notification queue, and the reconciliation rules that merge pushed
// events, local expiry predictions and reconnect snapshots into one
// consistent view.
package notifier

import (
	"encoding/json"
	"time"
)

// Status mirrors the server-side claim status on the wire.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusExpired  Status = "expired"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDenied || s == StatusExpired
}

// ItemRef is the denormalized item snapshot captured when the claim was
// filed. It is never refetched.
type ItemRef struct {
	Name   string `json:"name"`
	Image  string `json:"image,omitempty"`
	Rarity string `json:"rarity,omitempty"`
	Type   string `json:"type,omitempty"`
}

// Notification is one outstanding claim as this viewer sees it.
//
// Confirmed marks Status as server-authoritative. Optimistic local changes
// (an action click, a countdown firing) leave Confirmed false; any server
// event for the id overrides an unconfirmed status, while a confirmed
// terminal status is immutable.
type Notification struct {
	ID           string    `json:"id"`
	DisplayID    string    `json:"display_id"`
	Item         ItemRef   `json:"item"`
	CaseName     string    `json:"case_name"`
	Status       Status    `json:"status"`
	Resolution   string    `json:"resolution,omitempty"`
	Comment      string    `json:"comment,omitempty"`
	AdminComment string    `json:"admin_comment,omitempty"`
	TradeLink    string    `json:"trade_link,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Deadline     time.Time `json:"deadline"`

	Confirmed bool `json:"-"`
}

// ApplyServer merges a server-reported status. Reports whether the update
// was applied: confirmed terminal state never changes, and a stale pending
// replay never regresses a resolved notification.
func (n *Notification) ApplyServer(status Status, resolution, adminComment string) bool {
	if n.Confirmed && n.Status.Terminal() {
		return false
	}
	if status == StatusPending && n.Status != StatusPending {
		return false
	}

	n.Status = status
	if resolution != "" {
		n.Resolution = resolution
	}
	if adminComment != "" {
		n.AdminComment = adminComment
	}
	n.Confirmed = true
	return true
}

// ApplyLocal applies an optimistic status and returns the previous state
// for rollback. Only a pending notification accepts local updates.
func (n *Notification) ApplyLocal(status Status) (prev Status, prevConfirmed bool, ok bool) {
	if n.Status != StatusPending {
		return n.Status, n.Confirmed, false
	}
	prev, prevConfirmed = n.Status, n.Confirmed
	n.Status = status
	n.Confirmed = false
	return prev, prevConfirmed, true
}

// Rollback restores the state captured by ApplyLocal.
func (n *Notification) Rollback(prev Status, prevConfirmed bool) {
	n.Status = prev
	n.Confirmed = prevConfirmed
}

// Remaining is the display countdown: time until the deadline, floored at
// zero. Computed from the server-set deadline, never from an accumulated
// local counter.
func (n *Notification) Remaining(now time.Time) time.Duration {
	if !n.Status.Terminal() && n.Deadline.After(now) {
		return n.Deadline.Sub(now)
	}
	return 0
}

const (
	placeholderItemName = "Unknown item"
	placeholderCase     = "Unknown case"
	placeholderDisplay  = "CR-??????"
)

// decodeNotification builds a Notification from a claim snapshot payload.
// Malformed payloads degrade to placeholders instead of being dropped: for
// an operational alerting surface a visible-but-degraded notification
// beats a missing one. defaultTimeout backfills a missing deadline.
func decodeNotification(raw json.RawMessage, now time.Time, defaultTimeout time.Duration) (*Notification, bool) {
	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil || n.ID == "" {
		return nil, false
	}

	if n.Item.Name == "" {
		n.Item.Name = placeholderItemName
	}
	if n.CaseName == "" {
		n.CaseName = placeholderCase
	}
	if n.DisplayID == "" {
		n.DisplayID = placeholderDisplay
	}
	if n.Status == "" {
		n.Status = StatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.Deadline.IsZero() {
		n.Deadline = n.CreatedAt.Add(defaultTimeout)
	}

	return &n, true
}
