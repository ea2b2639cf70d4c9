package repositories

import (
	"context"

	"sponsornet/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// earningRepository implements EarningRepository interface
type earningRepository struct {
	db *gorm.DB
}

// NewEarningRepository creates a new earning repository
func NewEarningRepository(db *gorm.DB) EarningRepository {
	return &earningRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *earningRepository) WithTx(tx *gorm.DB) EarningRepository {
	return &earningRepository{db: tx}
}

// CreateBatch inserts all rows in one statement
func (r *earningRepository) CreateBatch(ctx context.Context, rows []*models.Earning) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ListByBookingID lists the rows of one booking, seller first
func (r *earningRepository) ListByBookingID(ctx context.Context, bookingID string) ([]*models.Earning, error) {
	var rows []*models.Earning
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("level ASC").
		Find(&rows).Error
	return rows, err
}

// ListByBeneficiary lists a beneficiary's rows with pagination
func (r *earningRepository) ListByBeneficiary(ctx context.Context, beneficiaryID uint, offset, limit int) ([]*models.Earning, int64, error) {
	var rows []*models.Earning
	var total int64

	q := r.db.WithContext(ctx).Model(&models.Earning{}).Where("beneficiary_id = ?", beneficiaryID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Where("beneficiary_id = ?", beneficiaryID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListAllByBeneficiary lists every row of a beneficiary
func (r *earningRepository) ListAllByBeneficiary(ctx context.Context, beneficiaryID uint) ([]*models.Earning, error) {
	var rows []*models.Earning
	err := r.db.WithContext(ctx).
		Where("beneficiary_id = ?", beneficiaryID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
