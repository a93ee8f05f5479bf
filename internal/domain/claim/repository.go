package claim

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles all DB operations for claims.
type Repository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	ListPending(ctx context.Context) ([]Claim, error)
	ListOverdue(ctx context.Context, now time.Time) ([]Claim, error)

	// Resolve transitions a claim out of pending. The guard on status makes
	// concurrent resolutions race safely: the first writer wins, later ones
	// see resolved=false.
	Resolve(ctx context.Context, id uuid.UUID, res Resolution, status Status, adminComment string, resolvedBy *int64, resolvedAt time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, c *Claim) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	var c Claim
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) ListPending(ctx context.Context) ([]Claim, error) {
	var claims []Claim
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("created_at ASC").
		Find(&claims).Error
	return claims, err
}

func (r *repository) ListOverdue(ctx context.Context, now time.Time) ([]Claim, error) {
	var claims []Claim
	err := r.db.WithContext(ctx).
		Where("status = ? AND deadline <= ?", StatusPending, now).
		Order("deadline ASC").
		Find(&claims).Error
	return claims, err
}

func (r *repository) Resolve(ctx context.Context, id uuid.UUID, res Resolution, status Status, adminComment string, resolvedBy *int64, resolvedAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":      status,
		"resolution":  res,
		"resolved_at": resolvedAt,
	}
	if adminComment != "" {
		updates["admin_comment"] = adminComment
	}
	if resolvedBy != nil {
		updates["resolved_by"] = *resolvedBy
	}

	tx := r.db.WithContext(ctx).
		Model(&Claim{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
