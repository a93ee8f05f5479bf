package notifier

import (
	"testing"
	"time"
)

func stackOf(ids ...string) []*Notification {
	items := make([]*Notification, 0, len(ids))
	for _, id := range ids {
		items = append(items, testNotification(id))
	}
	return items
}

func TestViewModelOverflowCollapsed(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 1, 0, 0, time.UTC)
	vm := BuildViewModel(stackOf("e", "d", "c", "b", "a"), "", false, 3, now)

	if len(vm.Entries) != 3 {
		t.Fatalf("expected 3 visible entries, got %d", len(vm.Entries))
	}
	if vm.OverflowCount != 2 {
		t.Fatalf("expected overflow of 2, got %d", vm.OverflowCount)
	}
	if vm.Entries[0].ID != "e" || vm.Entries[2].ID != "c" {
		t.Fatalf("expected newest entries visible, got %s..%s", vm.Entries[0].ID, vm.Entries[2].ID)
	}
}

func TestViewModelExpandedShowsAll(t *testing.T) {
	now := time.Now()
	vm := BuildViewModel(stackOf("e", "d", "c", "b", "a"), "", true, 3, now)

	if len(vm.Entries) != 5 {
		t.Fatalf("expected all 5 entries when expanded, got %d", len(vm.Entries))
	}
	if vm.OverflowCount != 0 {
		t.Fatalf("expected no overflow when expanded, got %d", vm.OverflowCount)
	}
	if !vm.Expanded {
		t.Fatal("expected expanded flag set")
	}
}

func TestViewModelPinnedExcludedFromStack(t *testing.T) {
	now := time.Now()
	vm := BuildViewModel(stackOf("d", "c", "b", "a"), "c", false, 3, now)

	if vm.Detail == nil || vm.Detail.ID != "c" {
		t.Fatal("expected pinned entry in detail")
	}
	for _, e := range vm.Entries {
		if e.ID == "c" {
			t.Fatal("expected pinned entry excluded from the stack")
		}
	}
	if len(vm.Entries) != 3 || vm.OverflowCount != 0 {
		t.Fatalf("expected 3 visible and no overflow, got %d/%d", len(vm.Entries), vm.OverflowCount)
	}
}

func TestViewModelRemainingFromDeadline(t *testing.T) {
	n := testNotification("a")
	now := n.Deadline.Add(-90 * time.Second)

	vm := BuildViewModel([]*Notification{n}, "", false, 3, now)
	if vm.Entries[0].Remaining != 90*time.Second {
		t.Fatalf("expected 90s remaining, got %v", vm.Entries[0].Remaining)
	}

	vm = BuildViewModel([]*Notification{n}, "", false, 3, n.Deadline.Add(time.Second))
	if vm.Entries[0].Remaining != 0 {
		t.Fatalf("expected remaining floored at zero, got %v", vm.Entries[0].Remaining)
	}
}

func TestViewModelEmptyQueue(t *testing.T) {
	vm := BuildViewModel(nil, "", false, 3, time.Now())
	if len(vm.Entries) != 0 || vm.OverflowCount != 0 || vm.Detail != nil {
		t.Fatalf("expected empty view model, got %+v", vm)
	}
}
