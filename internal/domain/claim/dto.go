package claim

import "time"

// ItemRef is the denormalized item snapshot carried by claims and events.
type ItemRef struct {
	Name   string `json:"name"`
	Image  string `json:"image,omitempty"`
	Rarity string `json:"rarity,omitempty"`
	Type   string `json:"type,omitempty"`
}

// CreateRequest is filed by the game backend when a player redeems a prize.
type CreateRequest struct {
	PlayerID  int64   `json:"player_id" binding:"required"`
	Item      ItemRef `json:"item" binding:"required"`
	CaseName  string  `json:"case_name"`
	Comment   string  `json:"comment"`
	TradeLink string  `json:"trade_link"`
}

// DenyRequest carries the staff denial reason.
type DenyRequest struct {
	AdminComment string `json:"admin_comment" binding:"required"`
}

// Snapshot is the wire form of a claim, used both in REST responses and as
// the claim:created event payload.
type Snapshot struct {
	ID           string     `json:"id"`
	DisplayID    string     `json:"display_id"`
	Item         ItemRef    `json:"item"`
	CaseName     string     `json:"case_name"`
	Status       Status     `json:"status"`
	Resolution   Resolution `json:"resolution,omitempty"`
	Comment      string     `json:"comment,omitempty"`
	AdminComment string     `json:"admin_comment,omitempty"`
	TradeLink    string     `json:"trade_link,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	Deadline     time.Time  `json:"deadline"`
}

// StatusChange is the claim:statusChanged event payload.
type StatusChange struct {
	ID           string     `json:"id"`
	Status       Status     `json:"status"`
	Resolution   Resolution `json:"resolution,omitempty"`
	AdminComment string     `json:"admin_comment,omitempty"`
	ResolvedBy   *int64     `json:"resolved_by,omitempty"`
}

// Expired is the claim:expired event payload.
type Expired struct {
	ID string `json:"id"`
}

// SnapshotList is the response of the pending-claims fetch. ServerTime lets
// clients calibrate their countdown display against the server clock.
type SnapshotList struct {
	Claims     []Snapshot `json:"claims"`
	ServerTime time.Time  `json:"server_time"`
}

func (c *Claim) Snapshot() Snapshot {
	return Snapshot{
		ID:        c.ID.String(),
		DisplayID: c.DisplayID,
		Item: ItemRef{
			Name:   c.ItemName,
			Image:  c.ItemImage,
			Rarity: c.ItemRarity,
			Type:   c.ItemType,
		},
		CaseName:     c.CaseName,
		Status:       c.Status,
		Resolution:   c.Resolution,
		Comment:      c.Comment,
		AdminComment: c.AdminComment,
		TradeLink:    c.TradeLink,
		CreatedAt:    c.CreatedAt,
		Deadline:     c.Deadline,
	}
}
