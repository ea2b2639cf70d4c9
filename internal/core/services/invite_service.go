package services

import (
	"context"
	"errors"

	"sponsornet/internal/adapters/persistence/models"
	"sponsornet/internal/adapters/persistence/repositories"
	"sponsornet/internal/core/domain"
	"sponsornet/internal/pkg/invitecode"
	"sponsornet/internal/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultCodeAttempts bounds regeneration after a code collision
const DefaultCodeAttempts = 5

// InviteService manages one-time invite codes.
// invite_codes is the source of truth; members.active_invite_code is a derived cache.
type InviteService struct {
	db          *gorm.DB
	memberRepo  repositories.MemberRepository
	codeRepo    repositories.InviteCodeRepository
	audit       AuditSink
	log         *zap.Logger
	maxAttempts int
	generate    func() (string, error)
}

// NewInviteService creates a new invite service
func NewInviteService(
	db *gorm.DB,
	memberRepo repositories.MemberRepository,
	codeRepo repositories.InviteCodeRepository,
	audit AuditSink,
	log *zap.Logger,
	maxAttempts int,
) *InviteService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeAttempts
	}
	return &InviteService{
		db:          db,
		memberRepo:  memberRepo,
		codeRepo:    codeRepo,
		audit:       audit,
		log:         log.Named("invite"),
		maxAttempts: maxAttempts,
		generate:    invitecode.Generate,
	}
}

// ResolveActiveCode returns the sponsor owning an unused code.
// Unknown, used and inactive-owner codes all yield ErrInvalidCode.
func (s *InviteService) ResolveActiveCode(ctx context.Context, code string) (*models.Member, error) {
	return resolveActiveCode(ctx, s.memberRepo, s.codeRepo, code)
}

func resolveActiveCode(
	ctx context.Context,
	members repositories.MemberRepository,
	codes repositories.InviteCodeRepository,
	code string,
) (*models.Member, error) {
	normalized := invitecode.Normalize(code)
	if normalized == "" {
		return nil, domain.ErrInvalidCode
	}

	rec, err := codes.GetUnusedByCode(ctx, normalized)
	if err != nil {
		return nil, notFound(err, domain.ErrInvalidCode)
	}

	owner, err := members.GetByID(ctx, rec.OwnerID)
	if err != nil {
		return nil, notFound(err, domain.ErrInvalidCode)
	}
	if !owner.IsActive() {
		return nil, domain.ErrInvalidCode
	}
	return owner, nil
}

// ConsumeAndReissue retires code and gives its owner a fresh one, atomically.
// An unknown or already used code is a no-op and returns (nil, nil).
func (s *InviteService) ConsumeAndReissue(ctx context.Context, code string, usedByMemberID uint) (*models.InviteCode, error) {
	var consumed, fresh *models.InviteCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		consumed, fresh, err = s.consumeAndReissueTx(ctx, tx, code, usedByMemberID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if consumed != nil {
		s.emitConsumed(ctx, consumed, fresh, usedByMemberID)
	}
	return fresh, nil
}

// consumeAndReissueTx runs inside the caller's transaction
func (s *InviteService) consumeAndReissueTx(ctx context.Context, tx *gorm.DB, code string, usedByMemberID uint) (*models.InviteCode, *models.InviteCode, error) {
	codes := s.codeRepo.WithTx(tx).ForUpdate()

	rec, err := codes.GetUnusedByCode(ctx, invitecode.Normalize(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	// owner row lock serializes against EnsureActiveCode
	if _, err := s.memberRepo.WithTx(tx).ForUpdate().GetByID(ctx, rec.OwnerID); err != nil {
		return nil, nil, notFound(err, domain.ErrMemberNotFound)
	}

	if err := codes.MarkUsed(ctx, rec.ID, usedByMemberID); err != nil {
		return nil, nil, err
	}

	fresh, err := s.mintTx(ctx, tx, rec.OwnerID)
	if err != nil {
		return nil, nil, err
	}
	return rec, fresh, nil
}

// mintTx creates a new active code for ownerID and refreshes the cached pointer.
// Exhausting all attempts fails the surrounding transaction, so the owner keeps
// whatever active code it had before.
func (s *InviteService) mintTx(ctx context.Context, tx *gorm.DB, ownerID uint) (*models.InviteCode, error) {
	codes := s.codeRepo.WithTx(tx)
	members := s.memberRepo.WithTx(tx)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, err
		}

		exists, err := codes.ExistsByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			metrics.InviteCodeCollisions.Inc()
			s.log.Warn("invite code collision", zap.Int("attempt", attempt))
			continue
		}

		// a concurrent insert can still win the unique index; the nested
		// transaction is a savepoint, so tx stays usable for the next attempt
		rec := &models.InviteCode{Code: code, OwnerID: ownerID}
		err = tx.Transaction(func(sp *gorm.DB) error {
			return s.codeRepo.WithTx(sp).Create(ctx, rec)
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			metrics.InviteCodeCollisions.Inc()
			s.log.Warn("invite code collision on insert", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := members.UpdateActiveInviteCode(ctx, ownerID, code); err != nil {
			return nil, err
		}
		metrics.InviteCodesIssued.Inc()
		return rec, nil
	}

	s.log.Error("invite code generation exhausted",
		zap.Uint("owner_id", ownerID),
		zap.Int("attempts", s.maxAttempts),
	)
	return nil, domain.ErrCodeExhausted
}

// EnsureActiveCode returns the member's active code, minting one if none exists.
// It also repairs a stale cached pointer and retires all but the newest
// unused code when an owner somehow holds several.
func (s *InviteService) EnsureActiveCode(ctx context.Context, memberID uint) (string, error) {
	var code string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.memberRepo.WithTx(tx).ForUpdate()
		codes := s.codeRepo.WithTx(tx)

		owner, err := members.GetByID(ctx, memberID)
		if err != nil {
			return notFound(err, domain.ErrMemberNotFound)
		}

		unused, err := codes.ListUnusedByOwner(ctx, memberID)
		if err != nil {
			return err
		}
		if len(unused) == 0 {
			fresh, err := s.mintTx(ctx, tx, memberID)
			if err != nil {
				return err
			}
			code = fresh.Code
			return nil
		}

		// oldest first
		keep := unused[len(unused)-1]
		for _, extra := range unused[:len(unused)-1] {
			if err := codes.Retire(ctx, extra.ID); err != nil {
				return err
			}
			s.log.Warn("retired extra invite code",
				zap.Uint("owner_id", memberID),
				zap.Uint("code_id", extra.ID),
			)
		}

		code = keep.Code
		if owner.ActiveInviteCode != keep.Code {
			return members.UpdateActiveInviteCode(ctx, memberID, keep.Code)
		}
		return nil
	})
	return code, err
}

func (s *InviteService) emitConsumed(ctx context.Context, consumed, fresh *models.InviteCode, usedBy uint) {
	after := map[string]interface{}{"used_by_member_id": usedBy}
	if fresh != nil {
		after["new_code_id"] = fresh.ID
	}
	emitAudit(ctx, s.audit, s.log, domain.AuditEvent{
		ActorID:  usedBy,
		Action:   domain.ActionCodeConsumed,
		EntityID: consumed.ID,
		Before:   map[string]interface{}{"owner_id": consumed.OwnerID, "used_at": nil},
		After:    after,
	})
}
