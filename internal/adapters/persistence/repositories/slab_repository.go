package repositories

import (
	"context"

	"sponsornet/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// slabRepository implements SlabRepository interface
type slabRepository struct {
	db *gorm.DB
}

// NewSlabRepository creates a new slab repository
func NewSlabRepository(db *gorm.DB) SlabRepository {
	return &slabRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *slabRepository) WithTx(tx *gorm.DB) SlabRepository {
	return &slabRepository{db: tx}
}

// GetByOfferingID gets the slab attached to an offering
func (r *slabRepository) GetByOfferingID(ctx context.Context, offeringID uint) (*models.Slab, error) {
	var slab models.Slab
	err := r.db.WithContext(ctx).Where("offering_id = ?", offeringID).First(&slab).Error
	if err != nil {
		return nil, err
	}
	return &slab, nil
}

// Upsert creates or replaces the slab of slab.OfferingID
func (r *slabRepository) Upsert(ctx context.Context, slab *models.Slab) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "offering_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"associate_pct",
			"senior_associate_pct",
			"manager_pct",
			"senior_manager_pct",
			"director_pct",
			"upline_bonus1_pct",
			"upline_bonus2_pct",
			"updated_at",
		}),
	}).Create(slab).Error
}
