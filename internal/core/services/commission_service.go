package services

import (
	"context"
	"errors"
	"strconv"

	"sponsornet/internal/adapters/persistence/models"
	"sponsornet/internal/adapters/persistence/repositories"
	"sponsornet/internal/core/domain"
	"sponsornet/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// uplineLevels is how many ancestors receive a bonus
const uplineLevels = 2

// amountPlaces is the currency precision of stored amounts
const amountPlaces = 2

var hundred = decimal.NewFromInt(100)

// CommissionService splits sales into ledger rows
type CommissionService struct {
	db          *gorm.DB
	memberRepo  repositories.MemberRepository
	slabRepo    repositories.SlabRepository
	earningRepo repositories.EarningRepository
	log         *zap.Logger
}

// NewCommissionService creates a new commission service
func NewCommissionService(
	db *gorm.DB,
	memberRepo repositories.MemberRepository,
	slabRepo repositories.SlabRepository,
	earningRepo repositories.EarningRepository,
	log *zap.Logger,
) *CommissionService {
	return &CommissionService{
		db:          db,
		memberRepo:  memberRepo,
		slabRepo:    slabRepo,
		earningRepo: earningRepo,
		log:         log.Named("commission"),
	}
}

// SaleInput represents one sale event
type SaleInput struct {
	SellerID   uint            `json:"seller_id" validate:"required"`
	OfferingID uint            `json:"offering_id" validate:"required"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	BookingID  string          `json:"booking_id" validate:"omitempty,max=64"`
}

// percentOf returns base * pct / 100 at currency precision
func percentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred).Round(amountPlaces)
}

// sameSale reports whether rows were written for the sale described by input
func sameSale(rows []*models.Earning, input *SaleInput) bool {
	for _, r := range rows {
		if r.Level != 0 {
			continue
		}
		return r.SellerID == input.SellerID &&
			r.OfferingID == input.OfferingID &&
			r.BaseAmount.Equal(input.BaseAmount)
	}
	return false
}

// replayBooking returns the stored rows of bookingID, or ErrBookingConflict
// when they belong to a different sale
func replayBooking(ctx context.Context, earnings repositories.EarningRepository, bookingID string, input *SaleInput) ([]*models.Earning, bool, error) {
	existing, err := earnings.ListByBookingID(ctx, bookingID)
	if err != nil || len(existing) == 0 {
		return nil, false, err
	}
	if !sameSale(existing, input) {
		return nil, false, domain.ErrBookingConflict
	}
	return existing, true, nil
}

// Distribute creates the seller row and up to two upline bonus rows for a sale.
// All rows share one booking id and are written atomically. A booking id that
// already has rows returns those rows unchanged when the sale matches, and
// ErrBookingConflict when it does not.
func (s *CommissionService) Distribute(ctx context.Context, input *SaleInput) ([]*models.Earning, error) {
	if !input.BaseAmount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	// amounts are stored at currency precision
	if !input.BaseAmount.Equal(input.BaseAmount.Truncate(amountPlaces)) {
		return nil, domain.ErrInvalidAmount
	}

	bookingID := input.BookingID
	if bookingID == "" {
		bookingID = uuid.New().String()
	}

	var rows []*models.Earning
	var replay bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		earnings := s.earningRepo.WithTx(tx)
		members := s.memberRepo.WithTx(tx)

		// 1. Replay
		existing, found, err := replayBooking(ctx, earnings, bookingID, input)
		if err != nil {
			return err
		}
		if found {
			rows = existing
			replay = true
			return nil
		}

		// 2. Seller and slab
		seller, err := members.GetByID(ctx, input.SellerID)
		if err != nil {
			return notFound(err, domain.ErrMemberNotFound)
		}

		slab, err := s.slabRepo.WithTx(tx).GetByOfferingID(ctx, input.OfferingID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			s.log.Warn("no slab for offering, commission is zero",
				zap.Uint("offering_id", input.OfferingID),
			)
			slab = &models.Slab{OfferingID: input.OfferingID}
		}

		// 3. Seller payout
		sellerPct := slab.PercentFor(domain.Role(seller.Role))
		payout := percentOf(input.BaseAmount, sellerPct)
		rows = append(rows, &models.Earning{
			BookingID:        bookingID,
			BeneficiaryID:    seller.ID,
			SellerID:         seller.ID,
			OfferingID:       input.OfferingID,
			Level:            0,
			BaseAmount:       input.BaseAmount,
			SlabPct:          sellerPct,
			CalculatedAmount: payout,
			UplineBonus1:     decimal.Zero,
			UplineBonus2:     decimal.Zero,
			TotalAmount:      payout,
			Status:           string(domain.EarningPending),
		})

		// 4. Upline bonuses; missing levels are skipped
		uplines, err := ancestors(ctx, members, seller, uplineLevels, s.log)
		if err != nil {
			return err
		}
		for i, up := range uplines {
			level := i + 1
			pct := slab.UplineBonusPct(level)
			bonus := percentOf(input.BaseAmount, pct)

			row := &models.Earning{
				BookingID:        bookingID,
				BeneficiaryID:    up.ID,
				SellerID:         seller.ID,
				OfferingID:       input.OfferingID,
				Level:            level,
				BaseAmount:       input.BaseAmount,
				SlabPct:          pct,
				CalculatedAmount: decimal.Zero,
				UplineBonus1:     decimal.Zero,
				UplineBonus2:     decimal.Zero,
				TotalAmount:      bonus,
				Status:           string(domain.EarningPending),
			}
			if level == 1 {
				row.UplineBonus1 = bonus
			} else {
				row.UplineBonus2 = bonus
			}
			rows = append(rows, row)
		}

		// 5. Persist
		return earnings.CreateBatch(ctx, rows)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent call wrote the same booking first
		rows, replay, err = replayBooking(ctx, s.earningRepo, bookingID, input)
		if err == nil && !replay {
			err = gorm.ErrDuplicatedKey
		}
	}
	if err != nil {
		return nil, err
	}

	if replay {
		s.log.Info("booking already distributed", zap.String("booking_id", bookingID))
		return rows, nil
	}

	for _, r := range rows {
		metrics.EarningRowsCreated.WithLabelValues(strconv.Itoa(r.Level)).Inc()
	}
	s.log.Info("commission distributed",
		zap.String("booking_id", bookingID),
		zap.Uint("seller_id", input.SellerID),
		zap.Int("rows", len(rows)),
		zap.String("base_amount", input.BaseAmount.String()),
	)
	return rows, nil
}

// Statement is a beneficiary's ledger page with totals over all rows
type Statement struct {
	Rows     []*models.Earning          `json:"rows"`
	Total    int64                      `json:"total"`
	Totals   map[string]decimal.Decimal `json:"totals"`
	GrandSum decimal.Decimal            `json:"grand_total"`
}

// Statement returns one page of a beneficiary's earnings plus per-status totals
func (s *CommissionService) Statement(ctx context.Context, beneficiaryID uint, offset, limit int) (*Statement, error) {
	if _, err := s.memberRepo.GetByID(ctx, beneficiaryID); err != nil {
		return nil, notFound(err, domain.ErrMemberNotFound)
	}

	rows, total, err := s.earningRepo.ListByBeneficiary(ctx, beneficiaryID, offset, limit)
	if err != nil {
		return nil, err
	}

	all, err := s.earningRepo.ListAllByBeneficiary(ctx, beneficiaryID)
	if err != nil {
		return nil, err
	}

	totals := map[string]decimal.Decimal{
		string(domain.EarningPending):  decimal.Zero,
		string(domain.EarningApproved): decimal.Zero,
		string(domain.EarningPaid):     decimal.Zero,
	}
	grand := decimal.Zero
	for _, r := range all {
		totals[r.Status] = totals[r.Status].Add(r.TotalAmount)
		grand = grand.Add(r.TotalAmount)
	}

	return &Statement{
		Rows:     rows,
		Total:    total,
		Totals:   totals,
		GrandSum: grand,
	}, nil
}

// SlabInput represents a slab upsert
type SlabInput struct {
	OfferingID         uint            `json:"offering_id" validate:"required"`
	AssociatePct       decimal.Decimal `json:"associate_pct"`
	SeniorAssociatePct decimal.Decimal `json:"senior_associate_pct"`
	ManagerPct         decimal.Decimal `json:"manager_pct"`
	SeniorManagerPct   decimal.Decimal `json:"senior_manager_pct"`
	DirectorPct        decimal.Decimal `json:"director_pct"`
	UplineBonus1Pct    decimal.Decimal `json:"upline_bonus1_pct"`
	UplineBonus2Pct    decimal.Decimal `json:"upline_bonus2_pct"`
}

// UpsertSlab creates or replaces an offering's slab.
// Existing ledger rows keep the percentage they were computed with.
func (s *CommissionService) UpsertSlab(ctx context.Context, input *SlabInput) (*models.Slab, error) {
	pcts := []decimal.Decimal{
		input.AssociatePct, input.SeniorAssociatePct, input.ManagerPct,
		input.SeniorManagerPct, input.DirectorPct,
		input.UplineBonus1Pct, input.UplineBonus2Pct,
	}
	for _, p := range pcts {
		if p.IsNegative() || p.GreaterThan(hundred) {
			return nil, domain.ErrInvalidAmount
		}
	}

	slab := &models.Slab{
		OfferingID:         input.OfferingID,
		AssociatePct:       input.AssociatePct,
		SeniorAssociatePct: input.SeniorAssociatePct,
		ManagerPct:         input.ManagerPct,
		SeniorManagerPct:   input.SeniorManagerPct,
		DirectorPct:        input.DirectorPct,
		UplineBonus1Pct:    input.UplineBonus1Pct,
		UplineBonus2Pct:    input.UplineBonus2Pct,
	}
	if err := s.slabRepo.Upsert(ctx, slab); err != nil {
		return nil, err
	}

	s.log.Info("slab updated", zap.Uint("offering_id", input.OfferingID))
	return s.slabRepo.GetByOfferingID(ctx, input.OfferingID)
}
