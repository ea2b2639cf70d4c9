package models

import (
	"strconv"
	"strings"
	"time"

	"sponsornet/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================
// Network: members and materialized paths
// ============================================================

// PathSeparator separates ancestor ids in Member.Path
const PathSeparator = "/"

// Member represents members table
type Member struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SponsorID        *uint     `gorm:"index" json:"sponsor_id"`
	Path             string    `gorm:"size:2048;not null;default:''" json:"-"`
	Name             string    `gorm:"size:100;not null" json:"name"`
	Email            string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Phone            string    `gorm:"size:20" json:"phone"`
	City             string    `gorm:"size:100" json:"city"`
	Password         string    `gorm:"size:255;not null" json:"-"`
	Role             string    `gorm:"size:20;not null;default:'ASSOCIATE'" json:"role"`
	Status           string    `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	ActiveInviteCode string    `gorm:"size:16;index" json:"-"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Member) TableName() string {
	return "members"
}

// PathIDs returns the ancestor ids, root first. Malformed segments are skipped.
func (m *Member) PathIDs() []uint {
	ids, _ := ParsePath(m.Path)
	return ids
}

// ChildPath is the path every direct child of m must carry
func (m *Member) ChildPath() string {
	return FormatPath(append(m.PathIDs(), m.ID))
}

// HasAncestor reports whether id appears in m's materialized path
func (m *Member) HasAncestor(id uint) bool {
	for _, a := range m.PathIDs() {
		if a == id {
			return true
		}
	}
	return false
}

// IsActive returns true if the member may act as a sponsor
func (m *Member) IsActive() bool {
	return domain.Status(m.Status) == domain.StatusActive
}

// ParsePath decodes a stored path
func ParsePath(s string) ([]uint, error) {
	if s == "" {
		return []uint{}, nil
	}
	parts := strings.Split(s, PathSeparator)
	ids := make([]uint, 0, len(parts))
	var firstErr error
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ids = append(ids, uint(v))
	}
	return ids, firstErr
}

// FormatPath encodes ancestor ids for storage
func FormatPath(ids []uint) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, PathSeparator)
}

// MemberResponse DTO
type MemberResponse struct {
	ID        uint      `json:"id"`
	SponsorID *uint     `json:"sponsor_id"`
	Path      []uint    `json:"path"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	City      string    `json:"city"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:        m.ID,
		SponsorID: m.SponsorID,
		Path:      m.PathIDs(),
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		City:      m.City,
		Role:      m.Role,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}

// ============================================================
// Invite codes
// ============================================================

// InviteCode represents invite_codes table.
// At most one row per owner has UsedAt == nil.
type InviteCode struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Code           string     `gorm:"size:16;uniqueIndex;not null" json:"code"`
	OwnerID        uint       `gorm:"index;not null" json:"owner_id"`
	UsedAt         *time.Time `gorm:"index" json:"used_at"`
	UsedByMemberID *uint      `json:"used_by_member_id"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (InviteCode) TableName() string {
	return "invite_codes"
}

func (c *InviteCode) IsUsed() bool {
	return c.UsedAt != nil
}

// ============================================================
// Commission: slabs and earnings ledger
// ============================================================

// Slab holds the commission percentages for one offering
type Slab struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	OfferingID         uint            `gorm:"uniqueIndex;not null" json:"offering_id"`
	AssociatePct       decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"associate_pct"`
	SeniorAssociatePct decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"senior_associate_pct"`
	ManagerPct         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"manager_pct"`
	SeniorManagerPct   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"senior_manager_pct"`
	DirectorPct        decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"director_pct"`
	UplineBonus1Pct    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"upline_bonus1_pct"`
	UplineBonus2Pct    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"upline_bonus2_pct"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Slab) TableName() string {
	return "slabs"
}

// PercentFor returns the seller percentage for role.
// Administrative and unknown roles use the lowest tier.
func (s *Slab) PercentFor(role domain.Role) decimal.Decimal {
	switch role {
	case domain.RoleSeniorAssociate:
		return s.SeniorAssociatePct
	case domain.RoleManager:
		return s.ManagerPct
	case domain.RoleSeniorManager:
		return s.SeniorManagerPct
	case domain.RoleDirector:
		return s.DirectorPct
	default:
		return s.AssociatePct
	}
}

// UplineBonusPct returns the bonus percentage for ancestor level 1 or 2
func (s *Slab) UplineBonusPct(level int) decimal.Decimal {
	switch level {
	case 1:
		return s.UplineBonus1Pct
	case 2:
		return s.UplineBonus2Pct
	}
	return decimal.Zero
}

// Earning represents earnings table: one row per beneficiary per booking
type Earning struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	BookingID        string          `gorm:"size:64;not null;index;uniqueIndex:idx_earning_booking_beneficiary" json:"booking_id"`
	BeneficiaryID    uint            `gorm:"not null;index;uniqueIndex:idx_earning_booking_beneficiary" json:"beneficiary_id"`
	SellerID         uint            `gorm:"not null;index" json:"seller_id"`
	OfferingID       uint            `gorm:"not null" json:"offering_id"`
	Level            int             `gorm:"not null;default:0" json:"level"`
	BaseAmount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"base_amount"`
	SlabPct          decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"slab_pct"`
	CalculatedAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"calculated_amount"`
	UplineBonus1     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"upline_bonus1"`
	UplineBonus2     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"upline_bonus2"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`
	Status           string          `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Earning) TableName() string {
	return "earnings"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all network tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Member{},
		&InviteCode{},
		&Slab{},
		&Earning{},
	)
}
