package claim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"casevault/internal/domain/push"
)

// capturePublisher records events instead of delivering them.
type capturePublisher struct {
	mu     sync.Mutex
	events []*push.Event
}

func (p *capturePublisher) Publish(ev *push.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *capturePublisher) byType(t push.EventType) []*push.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*push.Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func setupTestService(t *testing.T) (*Service, *capturePublisher) {
	t.Helper()

	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: ":memory:"}),
		&gorm.Config{},
	)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// A pooled second connection would see a different in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Claim{}); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	pub := &capturePublisher{}
	return NewService(NewRepository(db), pub, 5*time.Minute), pub
}

func sampleRequest(playerID int64) CreateRequest {
	return CreateRequest{
		PlayerID: playerID,
		Item:     ItemRef{Name: "Dragonfire Blade", Rarity: "legendary", Type: "knife"},
		CaseName: "Inferno Case",
	}
}

func TestCreateClaim(t *testing.T) {
	svc, pub := setupTestService(t)
	ctx := context.Background()

	before := time.Now().UTC()
	c, err := svc.Create(ctx, sampleRequest(1001))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if c.Status != StatusPending {
		t.Errorf("expected pending status, got %s", c.Status)
	}
	if c.DisplayID == "" || len(c.DisplayID) != len("CR-XXXXXXXX") {
		t.Errorf("unexpected display id %q", c.DisplayID)
	}
	got := c.Deadline.Sub(c.CreatedAt)
	if got != 5*time.Minute {
		t.Errorf("expected 5m window, got %v", got)
	}
	if c.CreatedAt.Before(before.Add(-time.Second)) {
		t.Errorf("unexpected created_at %v", c.CreatedAt)
	}

	events := pub.byType(push.EventClaimCreated)
	if len(events) != 1 {
		t.Fatalf("expected one claim:created event, got %d", len(events))
	}
	if events[0].Room != push.RoomStaff {
		t.Errorf("expected staff room, got %s", events[0].Room)
	}
	snap, ok := events[0].Payload.(Snapshot)
	if !ok {
		t.Fatalf("unexpected payload type %T", events[0].Payload)
	}
	if snap.ID != c.ID.String() || snap.Item.Name != "Dragonfire Blade" {
		t.Errorf("payload mismatch: %+v", snap)
	}
}

func TestCreateClaimValidation(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateRequest{Item: ItemRef{Name: "x"}}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for missing player, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateRequest{PlayerID: 1}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for missing item name, got %v", err)
	}
}

func TestApproveClaim(t *testing.T) {
	svc, pub := setupTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, sampleRequest(1001))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	resolved, err := svc.Approve(ctx, c.ID, 7)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if resolved.Status != StatusApproved || resolved.Resolution != ResolutionTrade {
		t.Errorf("expected approved/trade, got %s/%s", resolved.Status, resolved.Resolution)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != 7 {
		t.Error("expected resolved_by recorded")
	}

	events := pub.byType(push.EventClaimStatusChanged)
	if len(events) != 1 {
		t.Fatalf("expected one statusChanged event, got %d", len(events))
	}
	sc := events[0].Payload.(StatusChange)
	if sc.ID != c.ID.String() || sc.Status != StatusApproved {
		t.Errorf("payload mismatch: %+v", sc)
	}
}

func TestDenyRequiresReason(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	c, _ := svc.Create(ctx, sampleRequest(1001))

	if _, err := svc.Deny(ctx, c.ID, 7, "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	resolved, err := svc.Deny(ctx, c.ID, 7, "trade link invalid")
	if err != nil {
		t.Fatalf("deny failed: %v", err)
	}
	if resolved.Status != StatusDenied || resolved.AdminComment != "trade link invalid" {
		t.Errorf("expected denied with comment, got %s %q", resolved.Status, resolved.AdminComment)
	}
}

func TestReturnResolvesAsApproved(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	c, _ := svc.Create(ctx, sampleRequest(1001))

	resolved, err := svc.Return(ctx, c.ID, 7, "player asked for balance")
	if err != nil {
		t.Fatalf("return failed: %v", err)
	}
	if resolved.Status != StatusApproved || resolved.Resolution != ResolutionReturn {
		t.Errorf("expected approved/return, got %s/%s", resolved.Status, resolved.Resolution)
	}
}

func TestSecondResolutionRejected(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	c, _ := svc.Create(ctx, sampleRequest(1001))
	if _, err := svc.Approve(ctx, c.ID, 7); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	latest, err := svc.Deny(ctx, c.ID, 8, "changed my mind")
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	// The loser gets the winner's state back.
	if latest == nil || latest.Status != StatusApproved {
		t.Fatalf("expected current claim state returned, got %+v", latest)
	}
}

func TestLateActionExpiresClaim(t *testing.T) {
	svc, pub := setupTestService(t)
	ctx := context.Background()

	c, _ := svc.Create(ctx, sampleRequest(1001))

	// Move the clock past the deadline before the staff action lands.
	svc.now = func() time.Time { return c.Deadline.Add(time.Second) }

	latest, err := svc.Approve(ctx, c.ID, 7)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved for late action, got %v", err)
	}
	if latest.Status != StatusExpired {
		t.Fatalf("expected claim expired, got %s", latest.Status)
	}

	if events := pub.byType(push.EventClaimExpired); len(events) != 1 {
		t.Fatalf("expected claim:expired event, got %d", len(events))
	}
	if events := pub.byType(push.EventClaimStatusChanged); len(events) != 0 {
		t.Fatalf("expected no statusChanged for late action, got %d", len(events))
	}
}

func TestExpireOverdueSweep(t *testing.T) {
	svc, pub := setupTestService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, sampleRequest(1001))
	b, _ := svc.Create(ctx, sampleRequest(1002))
	if _, err := svc.Approve(ctx, b.ID, 7); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	svc.now = func() time.Time { return a.Deadline.Add(time.Minute) }

	n, err := svc.ExpireOverdue(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired claim, got %d", n)
	}

	got, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != StatusExpired {
		t.Errorf("expected expired, got %s", got.Status)
	}
	if resolved, _ := svc.Get(ctx, b.ID); resolved.Status != StatusApproved {
		t.Errorf("sweep must not touch resolved claims, got %s", resolved.Status)
	}

	events := pub.byType(push.EventClaimExpired)
	if len(events) != 1 {
		t.Fatalf("expected one claim:expired event, got %d", len(events))
	}
	if ex := events[0].Payload.(Expired); ex.ID != a.ID.String() {
		t.Errorf("expected event for %s, got %s", a.ID, ex.ID)
	}

	// Re-running the sweep finds nothing left.
	if n, _ := svc.ExpireOverdue(ctx); n != 0 {
		t.Fatalf("expected idempotent sweep, got %d", n)
	}
}

func TestPendingSnapshot(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, sampleRequest(1001))
	b, _ := svc.Create(ctx, sampleRequest(1002))
	if _, err := svc.Deny(ctx, b.ID, 7, "duplicate"); err != nil {
		t.Fatalf("deny failed: %v", err)
	}

	list, err := svc.Pending(ctx)
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(list.Claims) != 1 || list.Claims[0].ID != a.ID.String() {
		t.Fatalf("expected only the pending claim, got %+v", list.Claims)
	}
	if list.ServerTime.IsZero() {
		t.Error("expected server_time set")
	}
}

func TestGetUnknownClaim(t *testing.T) {
	svc, _ := setupTestService(t)

	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
