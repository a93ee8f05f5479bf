package claim

import (
	"time"

	"github.com/google/uuid"
)

// Status of a claim request. Transitions are forward-only:
// pending → approved | denied | expired. Terminal claims are immutable.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusExpired  Status = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDenied || s == StatusExpired
}

// Resolution distinguishes how an approved claim was settled: the item was
// either sent over a trade or returned to the player's balance.
type Resolution string

const (
	ResolutionTrade  Resolution = "trade"
	ResolutionReturn Resolution = "return"
)

// Claim is a player's prize redemption request awaiting staff action.
//
// Item and case fields are denormalized snapshots captured when the claim
// is filed, so the notification stays consistent even if the catalog entry
// is edited later. Deadline is fixed at creation and never recomputed.
type Claim struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DisplayID string    `gorm:"column:display_id;uniqueIndex" json:"display_id"`
	PlayerID  int64     `gorm:"column:player_id;index" json:"player_id"`

	ItemName   string `gorm:"column:item_name" json:"item_name"`
	ItemImage  string `gorm:"column:item_image" json:"item_image"`
	ItemRarity string `gorm:"column:item_rarity" json:"item_rarity"`
	ItemType   string `gorm:"column:item_type" json:"item_type"`
	CaseName   string `gorm:"column:case_name" json:"case_name"`

	Status     Status     `gorm:"column:status;index" json:"status"`
	Resolution Resolution `gorm:"column:resolution" json:"resolution,omitempty"`

	Comment      string `gorm:"column:comment" json:"comment,omitempty"`
	AdminComment string `gorm:"column:admin_comment" json:"admin_comment,omitempty"`
	TradeLink    string `gorm:"column:trade_link" json:"trade_link,omitempty"`

	CreatedAt  time.Time  `gorm:"column:created_at" json:"created_at"`
	Deadline   time.Time  `gorm:"column:deadline;index" json:"deadline"`
	ResolvedAt *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy *int64     `gorm:"column:resolved_by" json:"resolved_by,omitempty"`
}

func (Claim) TableName() string {
	return "claims"
}
