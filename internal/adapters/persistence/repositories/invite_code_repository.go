package repositories

import (
	"context"
	"time"

	"sponsornet/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// inviteCodeRepository implements InviteCodeRepository interface
type inviteCodeRepository struct {
	db     *gorm.DB
	locked bool
}

// NewInviteCodeRepository creates a new invite code repository
func NewInviteCodeRepository(db *gorm.DB) InviteCodeRepository {
	return &inviteCodeRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *inviteCodeRepository) WithTx(tx *gorm.DB) InviteCodeRepository {
	return &inviteCodeRepository{db: tx, locked: r.locked}
}

// ForUpdate returns a copy whose reads take row locks
func (r *inviteCodeRepository) ForUpdate() InviteCodeRepository {
	return &inviteCodeRepository{db: r.db, locked: true}
}

func (r *inviteCodeRepository) query(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.locked {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// Create creates a new invite code
func (r *inviteCodeRepository) Create(ctx context.Context, code *models.InviteCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

// GetUnusedByCode gets the unused record for an already normalized code
func (r *inviteCodeRepository) GetUnusedByCode(ctx context.Context, code string) (*models.InviteCode, error) {
	var ic models.InviteCode
	err := r.query(ctx).
		Where("code = ? AND used_at IS NULL", code).
		First(&ic).Error
	if err != nil {
		return nil, err
	}
	return &ic, nil
}

// ListUnusedByOwner lists every unused record of an owner
func (r *inviteCodeRepository) ListUnusedByOwner(ctx context.Context, ownerID uint) ([]*models.InviteCode, error) {
	var codes []*models.InviteCode
	err := r.query(ctx).
		Where("owner_id = ? AND used_at IS NULL", ownerID).
		Order("id ASC").
		Find(&codes).Error
	return codes, err
}

// ExistsByCode checks if a code was ever issued
func (r *inviteCodeRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InviteCode{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// MarkUsed retires a code. Only unused rows are touched.
func (r *inviteCodeRepository) MarkUsed(ctx context.Context, id uint, usedBy uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.InviteCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Updates(map[string]interface{}{
			"used_at":           &now,
			"used_by_member_id": usedBy,
		}).Error
}

// Retire marks a code used without a consumer
func (r *inviteCodeRepository) Retire(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.InviteCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", time.Now()).Error
}

// DeleteByOwner removes all codes of an owner
func (r *inviteCodeRepository) DeleteByOwner(ctx context.Context, ownerID uint) error {
	return r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&models.InviteCode{}).Error
}
