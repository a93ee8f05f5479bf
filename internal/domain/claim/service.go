package claim

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"casevault/internal/domain/push"

	"github.com/google/uuid"
)

// Service owns the claim lifecycle server-side. It is the single authority
// for terminal state: clients predict expiry locally, but only the events
// emitted here are facts.
type Service struct {
	repo    Repository
	pub     push.Publisher
	timeout time.Duration

	now func() time.Time
}

// NewService wires the claim lifecycle. timeout is the uniform actionable
// window applied to every claim at creation.
func NewService(repo Repository, pub push.Publisher, timeout time.Duration) *Service {
	return &Service{
		repo:    repo,
		pub:     pub,
		timeout: timeout,
		now:     time.Now,
	}
}

// Create files a new claim and announces it to connected staff.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Claim, error) {
	if req.PlayerID <= 0 {
		return nil, fmt.Errorf("%w: player_id is required", ErrValidation)
	}
	if strings.TrimSpace(req.Item.Name) == "" {
		return nil, fmt.Errorf("%w: item name is required", ErrValidation)
	}

	now := s.now().UTC()
	id := uuid.New()

	c := &Claim{
		ID:         id,
		DisplayID:  displayID(id),
		PlayerID:   req.PlayerID,
		ItemName:   req.Item.Name,
		ItemImage:  req.Item.Image,
		ItemRarity: req.Item.Rarity,
		ItemType:   req.Item.Type,
		CaseName:   req.CaseName,
		Status:     StatusPending,
		Comment:    req.Comment,
		TradeLink:  req.TradeLink,
		CreatedAt:  now,
		Deadline:   now.Add(s.timeout),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.pub.Publish(&push.Event{
		Type:      push.EventClaimCreated,
		Room:      push.RoomStaff,
		Timestamp: now,
		Payload:   c.Snapshot(),
	})

	return c, nil
}

// Get returns one claim by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.repo.GetByID(ctx, id)
}

// Pending returns the snapshot of all currently actionable claims, used by
// clients to reconcile after (re)connecting.
func (s *Service) Pending(ctx context.Context) (*SnapshotList, error) {
	claims, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	list := &SnapshotList{
		Claims:     make([]Snapshot, 0, len(claims)),
		ServerTime: s.now().UTC(),
	}
	for i := range claims {
		list.Claims = append(list.Claims, claims[i].Snapshot())
	}
	return list, nil
}

// Approve fulfills the claim over a trade.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, staffID int64) (*Claim, error) {
	return s.resolve(ctx, id, staffID, StatusApproved, ResolutionTrade, "")
}

// Deny rejects the claim with a reason shown to the player.
func (s *Service) Deny(ctx context.Context, id uuid.UUID, staffID int64, reason string) (*Claim, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: denial reason is required", ErrValidation)
	}
	return s.resolve(ctx, id, staffID, StatusDenied, "", reason)
}

// Return settles the claim by compensating the player instead of trading
// the item out.
func (s *Service) Return(ctx context.Context, id uuid.UUID, staffID int64, comment string) (*Claim, error) {
	return s.resolve(ctx, id, staffID, StatusApproved, ResolutionReturn, comment)
}

func (s *Service) resolve(ctx context.Context, id uuid.UUID, staffID int64, status Status, res Resolution, adminComment string) (*Claim, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		return c, ErrAlreadyResolved
	}

	now := s.now().UTC()
	if !now.Before(c.Deadline) {
		// The claim outlived its window; expire it rather than accept a
		// late action.
		if expired, err := s.expire(ctx, c, now); err == nil && expired != nil {
			c = expired
		}
		return c, ErrAlreadyResolved
	}

	ok, err := s.repo.Resolve(ctx, id, res, status, adminComment, &staffID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another staff action or the expiry sweep won the race.
		c, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return c, ErrAlreadyResolved
	}

	c, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.pub.Publish(&push.Event{
		Type:      push.EventClaimStatusChanged,
		Room:      push.RoomStaff,
		Timestamp: now,
		Payload: StatusChange{
			ID:           c.ID.String(),
			Status:       c.Status,
			Resolution:   c.Resolution,
			AdminComment: c.AdminComment,
			ResolvedBy:   c.ResolvedBy,
		},
	})

	return c, nil
}

// ExpireOverdue transitions every pending claim past its deadline to
// expired and emits the authoritative claim:expired event for each.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now().UTC()
	overdue, err := s.repo.ListOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range overdue {
		if c, err := s.expire(ctx, &overdue[i], now); err != nil {
			log.Printf("claim: expire %s failed: %v", overdue[i].ID, err)
		} else if c != nil {
			expired++
		}
	}
	return expired, nil
}

// expire moves one claim to expired. Returns nil without error when a
// concurrent action already resolved it.
func (s *Service) expire(ctx context.Context, c *Claim, now time.Time) (*Claim, error) {
	ok, err := s.repo.Resolve(ctx, c.ID, "", StatusExpired, "", nil, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	c.Status = StatusExpired
	c.ResolvedAt = &now

	s.pub.Publish(&push.Event{
		Type:      push.EventClaimExpired,
		Room:      push.RoomStaff,
		Timestamp: now,
		Payload:   Expired{ID: c.ID.String()},
	})

	return c, nil
}

// displayID derives the human-readable request code staff see in the UI.
// Purely cosmetic; uniqueness comes from the underlying uuid.
func displayID(id uuid.UUID) string {
	return "CR-" + strings.ToUpper(id.String()[:8])
}
