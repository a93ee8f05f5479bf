package push

import (
	"strconv"
	"time"
)

// EventType identifies a claim-lifecycle event pushed to staff clients.
type EventType string

const (
	EventClaimCreated       EventType = "claim:created"
	EventClaimStatusChanged EventType = "claim:statusChanged"
	EventClaimExpired       EventType = "claim:expired"
)

// RoomStaff is the shared room every identified staff connection joins.
// Claim events are addressed here so all connected staff see them.
const RoomStaff = "staff"

// ViewerRoom is the per-identity room, used for events addressed to a
// single viewer (a viewer may hold several connections at once).
func ViewerRoom(viewerID int64) string {
	return "viewer:" + strconv.FormatInt(viewerID, 10)
}

// Event is one server → client message. Timestamp is the server clock at
// emission; clients must treat it as the authoritative time source.
type Event struct {
	Type      EventType `json:"type"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Publisher delivers events to the viewers currently connected. Delivery is
// best effort: nothing is queued for absent viewers, reconnecting clients
// close the gap with a snapshot fetch.
type Publisher interface {
	Publish(ev *Event)
}
