package notifier

import (
	"encoding/json"
	"testing"
	"time"
)

func TestApplyServerNeverRegresses(t *testing.T) {
	n := testNotification("a")

	if !n.ApplyServer(StatusApproved, "trade", "") {
		t.Fatal("expected approval to apply")
	}

	// A stale pending replay must not revert a resolved claim.
	if n.ApplyServer(StatusPending, "", "") {
		t.Fatal("expected stale pending replay to be ignored")
	}
	if n.Status != StatusApproved {
		t.Fatalf("expected status approved, got %s", n.Status)
	}

	// Terminal after confirmed terminal is ignored.
	if n.ApplyServer(StatusExpired, "", "") {
		t.Fatal("expected terminal-after-terminal to be ignored")
	}
	if n.Status != StatusApproved {
		t.Fatalf("expected status approved, got %s", n.Status)
	}
}

func TestServerOverridesLocalExpiry(t *testing.T) {
	n := testNotification("a")

	if _, _, ok := n.ApplyLocal(StatusExpired); !ok {
		t.Fatal("expected local expiry to apply to a pending notification")
	}
	if n.Confirmed {
		t.Fatal("expected local expiry to be provisional")
	}

	// The server accepted an approval microseconds earlier: its status wins
	// over the locally inferred expiry.
	if !n.ApplyServer(StatusApproved, "trade", "") {
		t.Fatal("expected server status to override provisional expiry")
	}
	if n.Status != StatusApproved || !n.Confirmed {
		t.Fatalf("expected confirmed approved, got %s confirmed=%t", n.Status, n.Confirmed)
	}
}

func TestApplyLocalRejectsNonPending(t *testing.T) {
	n := testNotification("a")
	n.ApplyServer(StatusDenied, "", "cheating")

	if _, _, ok := n.ApplyLocal(StatusApproved); ok {
		t.Fatal("expected local update on a resolved notification to be rejected")
	}
}

func TestRollbackRestoresState(t *testing.T) {
	n := testNotification("a")

	prev, prevConfirmed, ok := n.ApplyLocal(StatusApproved)
	if !ok {
		t.Fatal("expected optimistic update to apply")
	}
	n.Rollback(prev, prevConfirmed)

	if n.Status != StatusPending || n.Confirmed != prevConfirmed {
		t.Fatalf("expected rollback to pending, got %s", n.Status)
	}
}

func TestDecodeNotificationFillsPlaceholders(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	n, ok := decodeNotification(json.RawMessage(`{"id":"x1"}`), now, 5*time.Minute)
	if !ok {
		t.Fatal("expected degraded payload to still produce a notification")
	}
	if n.Item.Name != placeholderItemName {
		t.Fatalf("expected placeholder item name, got %q", n.Item.Name)
	}
	if n.CaseName != placeholderCase {
		t.Fatalf("expected placeholder case name, got %q", n.CaseName)
	}
	if n.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", n.Status)
	}
	if !n.Deadline.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("expected backfilled deadline, got %v", n.Deadline)
	}
}

func TestDecodeNotificationRejectsMissingID(t *testing.T) {
	if _, ok := decodeNotification(json.RawMessage(`{"display_id":"CR-1"}`), time.Now(), time.Minute); ok {
		t.Fatal("expected payload without id to be rejected")
	}
	if _, ok := decodeNotification(json.RawMessage(`not json`), time.Now(), time.Minute); ok {
		t.Fatal("expected malformed json to be rejected")
	}
}

func TestRemainingFloorsAtZero(t *testing.T) {
	n := testNotification("a")

	if got := n.Remaining(n.Deadline.Add(-time.Minute)); got != time.Minute {
		t.Fatalf("expected 1m remaining, got %v", got)
	}
	if got := n.Remaining(n.Deadline.Add(time.Minute)); got != 0 {
		t.Fatalf("expected 0 remaining past deadline, got %v", got)
	}
}
