package notifier

import "time"

// CompactEntry is one notification rendered in the floating stack.
type CompactEntry struct {
	ID         string        `json:"id"`
	DisplayID  string        `json:"display_id"`
	ItemName   string        `json:"item_name"`
	ItemRarity string        `json:"item_rarity,omitempty"`
	CaseName   string        `json:"case_name"`
	Status     Status        `json:"status"`
	Remaining  time.Duration `json:"remaining"`
}

// DetailEntry is the pinned notification opened in the drawer.
type DetailEntry struct {
	Notification
	Remaining time.Duration `json:"remaining"`
}

// ViewModel is everything the UI needs to render the notification surface.
type ViewModel struct {
	Entries       []CompactEntry `json:"entries"`
	OverflowCount int            `json:"overflow_count"`
	Expanded      bool           `json:"expanded"`
	Detail        *DetailEntry   `json:"detail,omitempty"`
	Disconnected  bool           `json:"disconnected"`
	Notice        string         `json:"notice,omitempty"`
}

// BuildViewModel derives the render state from the queue contents. Pure:
// re-derivable at any time from its inputs, no state of its own.
//
// items must be newest first. The pinned notification is shown as the
// detail entry and excluded from the visible-K/overflow computation, so
// the drawer stays stable while new notifications arrive behind it. When
// expanded, every entry is visible and the overflow count is zero.
func BuildViewModel(items []*Notification, pinnedID string, expanded bool, maxVisible int, now time.Time) ViewModel {
	vm := ViewModel{Expanded: expanded}

	stack := make([]*Notification, 0, len(items))
	for _, n := range items {
		if n.ID == pinnedID {
			vm.Detail = &DetailEntry{Notification: *n, Remaining: n.Remaining(now)}
			continue
		}
		stack = append(stack, n)
	}

	visible := len(stack)
	if !expanded && visible > maxVisible {
		visible = maxVisible
	}

	vm.Entries = make([]CompactEntry, 0, visible)
	for _, n := range stack[:visible] {
		vm.Entries = append(vm.Entries, CompactEntry{
			ID:         n.ID,
			DisplayID:  n.DisplayID,
			ItemName:   n.Item.Name,
			ItemRarity: n.Item.Rarity,
			CaseName:   n.CaseName,
			Status:     n.Status,
			Remaining:  n.Remaining(now),
		})
	}
	vm.OverflowCount = len(stack) - visible

	return vm
}
