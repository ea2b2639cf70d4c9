package repositories

import (
	"context"

	"sponsornet/internal/adapters/persistence/models"
	"sponsornet/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// inChunk bounds the size of IN (...) lists sent to the database
const inChunk = 1000

// memberRepository implements MemberRepository interface
type memberRepository struct {
	db     *gorm.DB
	locked bool
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *memberRepository) WithTx(tx *gorm.DB) MemberRepository {
	return &memberRepository{db: tx, locked: r.locked}
}

// ForUpdate returns a copy whose reads take row locks (SELECT ... FOR UPDATE)
func (r *memberRepository) ForUpdate() MemberRepository {
	return &memberRepository{db: r.db, locked: true}
}

func (r *memberRepository) query(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.locked {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// Create creates a new member
func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// GetByID gets a member by ID
func (r *memberRepository) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	err := r.query(ctx).Where("id = ?", id).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByEmail gets a member by email
func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	err := r.query(ctx).Where("email = ?", email).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ExistsByEmail checks if email exists
func (r *memberRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Member{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// Count returns the number of members
func (r *memberRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.query(ctx).Model(&models.Member{}).Count(&count).Error
	return count, err
}

// Delete hard deletes a member
func (r *memberRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Member{}, id).Error
}

// UpdateSponsor sets sponsor_id
func (r *memberRepository) UpdateSponsor(ctx context.Context, id uint, sponsorID *uint) error {
	return r.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Update("sponsor_id", sponsorID).Error
}

// UpdatePath sets the materialized path of one member
func (r *memberRepository) UpdatePath(ctx context.Context, id uint, path string) error {
	return r.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Update("path", path).Error
}

// UpdateChildrenPath sets the path of every direct child of parentID
func (r *memberRepository) UpdateChildrenPath(ctx context.Context, parentID uint, path string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Member{}).
		Where("sponsor_id = ?", parentID).
		Update("path", path)
	return res.RowsAffected, res.Error
}

// UpdateStatus sets status
func (r *memberRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdateRole sets role
func (r *memberRepository) UpdateRole(ctx context.Context, id uint, role string) error {
	return r.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Update("role", role).Error
}

// UpdateActiveInviteCode sets the cached active invite code
func (r *memberRepository) UpdateActiveInviteCode(ctx context.Context, id uint, code string) error {
	return r.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Update("active_invite_code", code).Error
}

// ListChildren lists direct children of a member
func (r *memberRepository) ListChildren(ctx context.Context, parentID uint) ([]*models.Member, error) {
	var members []*models.Member
	err := r.query(ctx).
		Where("sponsor_id = ?", parentID).
		Order("id ASC").
		Find(&members).Error
	return members, err
}

// ListChildrenOf lists direct children of every parent in parentIDs
func (r *memberRepository) ListChildrenOf(ctx context.Context, parentIDs []uint) ([]*models.Member, error) {
	var all []*models.Member
	for _, chunk := range chunkIDs(parentIDs) {
		var members []*models.Member
		err := r.query(ctx).
			Where("sponsor_id IN ?", chunk).
			Order("id ASC").
			Find(&members).Error
		if err != nil {
			return nil, err
		}
		all = append(all, members...)
	}
	return all, nil
}

// ChildIDsOf returns the ids of direct children of every parent in parentIDs
func (r *memberRepository) ChildIDsOf(ctx context.Context, parentIDs []uint) ([]uint, error) {
	var all []uint
	for _, chunk := range chunkIDs(parentIDs) {
		var ids []uint
		err := r.query(ctx).Model(&models.Member{}).
			Where("sponsor_id IN ?", chunk).
			Order("id ASC").
			Pluck("id", &ids).Error
		if err != nil {
			return nil, err
		}
		all = append(all, ids...)
	}
	return all, nil
}

// CountChildren counts direct children
func (r *memberRepository) CountChildren(ctx context.Context, parentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Member{}).Where("sponsor_id = ?", parentID).Count(&count).Error
	return count, err
}

// CountChildrenByParent returns direct child counts keyed by parent id.
// Parents without children are absent from the map.
func (r *memberRepository) CountChildrenByParent(ctx context.Context, parentIDs []uint) (map[uint]int64, error) {
	type row struct {
		SponsorID uint
		Total     int64
	}
	counts := make(map[uint]int64, len(parentIDs))
	for _, chunk := range chunkIDs(parentIDs) {
		var rows []row
		err := r.db.WithContext(ctx).Model(&models.Member{}).
			Select("sponsor_id, COUNT(*) AS total").
			Where("sponsor_id IN ?", chunk).
			Group("sponsor_id").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, rw := range rows {
			counts[rw.SponsorID] = rw.Total
		}
	}
	return counts, nil
}

// ListByIDs loads members by id
func (r *memberRepository) ListByIDs(ctx context.Context, ids []uint) ([]*models.Member, error) {
	var all []*models.Member
	for _, chunk := range chunkIDs(ids) {
		var members []*models.Member
		if err := r.query(ctx).Where("id IN ?", chunk).Find(&members).Error; err != nil {
			return nil, err
		}
		all = append(all, members...)
	}
	return all, nil
}

// CountActiveIn counts ACTIVE members among ids
func (r *memberRepository) CountActiveIn(ctx context.Context, ids []uint) (int64, error) {
	var total int64
	for _, chunk := range chunkIDs(ids) {
		var count int64
		err := r.db.WithContext(ctx).Model(&models.Member{}).
			Where("id IN ? AND status = ?", chunk, string(domain.StatusActive)).
			Count(&count).Error
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

// ScanAll walks every member in id order, batchSize rows at a time
func (r *memberRepository) ScanAll(ctx context.Context, batchSize int, fn func(batch []*models.Member) error) error {
	var batch []*models.Member
	res := r.db.WithContext(ctx).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	return res.Error
}

func chunkIDs(ids []uint) [][]uint {
	var chunks [][]uint
	for len(ids) > inChunk {
		chunks = append(chunks, ids[:inChunk])
		ids = ids[inChunk:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
