package repositories

import (
	"context"

	"sponsornet/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// MemberRepository defines member repository interface.
// Sponsor and path writes go through the path service only.
type MemberRepository interface {
	WithTx(tx *gorm.DB) MemberRepository
	ForUpdate() MemberRepository

	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id uint) (*models.Member, error)
	GetByEmail(ctx context.Context, email string) (*models.Member, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uint) error

	UpdateSponsor(ctx context.Context, id uint, sponsorID *uint) error
	UpdatePath(ctx context.Context, id uint, path string) error
	UpdateChildrenPath(ctx context.Context, parentID uint, path string) (int64, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	UpdateRole(ctx context.Context, id uint, role string) error
	UpdateActiveInviteCode(ctx context.Context, id uint, code string) error

	ListChildren(ctx context.Context, parentID uint) ([]*models.Member, error)
	ListChildrenOf(ctx context.Context, parentIDs []uint) ([]*models.Member, error)
	ChildIDsOf(ctx context.Context, parentIDs []uint) ([]uint, error)
	CountChildren(ctx context.Context, parentID uint) (int64, error)
	CountChildrenByParent(ctx context.Context, parentIDs []uint) (map[uint]int64, error)
	ListByIDs(ctx context.Context, ids []uint) ([]*models.Member, error)
	CountActiveIn(ctx context.Context, ids []uint) (int64, error)
	ScanAll(ctx context.Context, batchSize int, fn func(batch []*models.Member) error) error
}

// InviteCodeRepository defines invite code repository interface
type InviteCodeRepository interface {
	WithTx(tx *gorm.DB) InviteCodeRepository
	ForUpdate() InviteCodeRepository

	Create(ctx context.Context, code *models.InviteCode) error
	GetUnusedByCode(ctx context.Context, code string) (*models.InviteCode, error)
	ListUnusedByOwner(ctx context.Context, ownerID uint) ([]*models.InviteCode, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	MarkUsed(ctx context.Context, id uint, usedBy uint) error
	Retire(ctx context.Context, id uint) error
	DeleteByOwner(ctx context.Context, ownerID uint) error
}

// SlabRepository defines slab repository interface
type SlabRepository interface {
	WithTx(tx *gorm.DB) SlabRepository

	GetByOfferingID(ctx context.Context, offeringID uint) (*models.Slab, error)
	Upsert(ctx context.Context, slab *models.Slab) error
}

// EarningRepository defines earnings ledger repository interface
type EarningRepository interface {
	WithTx(tx *gorm.DB) EarningRepository

	CreateBatch(ctx context.Context, rows []*models.Earning) error
	ListByBookingID(ctx context.Context, bookingID string) ([]*models.Earning, error)
	ListByBeneficiary(ctx context.Context, beneficiaryID uint, offset, limit int) ([]*models.Earning, int64, error)
	ListAllByBeneficiary(ctx context.Context, beneficiaryID uint) ([]*models.Earning, error)
}
