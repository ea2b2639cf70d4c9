package services

import (
	"context"
	"errors"
	"strings"

	"sponsornet/internal/adapters/persistence/models"
	"sponsornet/internal/adapters/persistence/repositories"
	"sponsornet/internal/core/domain"
	"sponsornet/internal/pkg/metrics"
	"sponsornet/internal/pkg/password"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MemberService handles member lifecycle
type MemberService struct {
	db         *gorm.DB
	memberRepo repositories.MemberRepository
	codeRepo   repositories.InviteCodeRepository
	invites    *InviteService
	audit      AuditSink
	log        *zap.Logger
}

// NewMemberService creates a new member service
func NewMemberService(
	db *gorm.DB,
	memberRepo repositories.MemberRepository,
	codeRepo repositories.InviteCodeRepository,
	invites *InviteService,
	audit AuditSink,
	log *zap.Logger,
) *MemberService {
	return &MemberService{
		db:         db,
		memberRepo: memberRepo,
		codeRepo:   codeRepo,
		invites:    invites,
		audit:      audit,
		log:        log.Named("member"),
	}
}

// JoinInput represents join input
type JoinInput struct {
	InviteCode string `json:"invite_code" validate:"omitempty,max=16"`
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email,max=100"`
	Phone      string `json:"phone" validate:"omitempty,max=20"`
	City       string `json:"city" validate:"omitempty,max=100"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
}

// JoinOutput is returned after a successful join
type JoinOutput struct {
	Member         *models.MemberResponse `json:"member"`
	Path           []uint                 `json:"path"`
	InviteCode     string                 `json:"invite_code"`
	SponsorNewCode string                 `json:"sponsor_new_code,omitempty"`
}

// Join creates a member under the owner of input.InviteCode.
// The first member of an empty tree needs no code and becomes the root administrator.
func (s *MemberService) Join(ctx context.Context, input *JoinInput) (*JoinOutput, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// bcrypt is slow; keep it out of the transaction
	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	var (
		member   *models.Member
		consumed *models.InviteCode
		sponsorC *models.InviteCode
		ownCode  *models.InviteCode
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.memberRepo.WithTx(tx).ForUpdate()
		codes := s.codeRepo.WithTx(tx).ForUpdate()

		// 1. Unique email
		exists, err := members.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrEmailTaken
		}

		member = &models.Member{
			Name:     strings.TrimSpace(input.Name),
			Email:    email,
			Phone:    input.Phone,
			City:     input.City,
			Password: hashed,
			Role:     string(domain.RoleAssociate),
			Status:   string(domain.StatusActive),
		}

		// 2. Sponsor from code, unless the tree is empty
		total, err := members.Count(ctx)
		if err != nil {
			return err
		}

		var sponsor *models.Member
		if total == 0 {
			member.Role = string(domain.RoleAdmin)
		} else {
			sponsor, err = resolveActiveCode(ctx, members, codes, input.InviteCode)
			if err != nil {
				return err
			}
			member.SponsorID = &sponsor.ID
			member.Path = sponsor.ChildPath()
		}

		// 3. Persist member
		if err := members.Create(ctx, member); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrEmailTaken
			}
			return err
		}

		// 4. Retire the sponsor's code and reissue
		if sponsor != nil {
			consumed, sponsorC, err = s.invites.consumeAndReissueTx(ctx, tx, input.InviteCode, member.ID)
			if err != nil {
				return err
			}
			if consumed == nil {
				// lost the race against another joiner
				return domain.ErrInvalidCode
			}
		}

		// 5. Own code
		ownCode, err = s.invites.mintTx(ctx, tx, member.ID)
		return err
	})
	if err != nil {
		if kind := domain.KindOf(err); kind != "" {
			metrics.JoinsTotal.WithLabelValues(string(kind)).Inc()
		} else {
			metrics.JoinsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	metrics.JoinsTotal.WithLabelValues("ok").Inc()

	s.log.Info("member joined",
		zap.Uint("member_id", member.ID),
		zap.Uintp("sponsor_id", member.SponsorID),
		zap.String("role", member.Role),
	)

	emitAudit(ctx, s.audit, s.log, domain.AuditEvent{
		ActorID:  member.ID,
		Action:   domain.ActionMemberJoined,
		EntityID: member.ID,
		After: map[string]interface{}{
			"sponsor_id": member.SponsorID,
			"path":       member.PathIDs(),
		},
	})
	if consumed != nil {
		s.invites.emitConsumed(ctx, consumed, sponsorC, member.ID)
	}

	out := &JoinOutput{
		Member:     member.ToResponse(),
		Path:       member.PathIDs(),
		InviteCode: ownCode.Code,
	}
	if sponsorC != nil {
		out.SponsorNewCode = sponsorC.Code
	}
	return out, nil
}

// GetMember returns a member by id
func (s *MemberService) GetMember(ctx context.Context, id uint) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrMemberNotFound)
	}
	return member, nil
}

// ChangeStatus sets a member's status
func (s *MemberService) ChangeStatus(ctx context.Context, actorID, id uint, status domain.Status) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}

	var before string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.memberRepo.WithTx(tx).ForUpdate()

		member, err := members.GetByID(ctx, id)
		if err != nil {
			return notFound(err, domain.ErrMemberNotFound)
		}
		before = member.Status
		if before == string(status) {
			return nil
		}
		return members.UpdateStatus(ctx, id, string(status))
	})
	if err != nil {
		return err
	}
	if before == string(status) {
		return nil
	}

	s.log.Info("member status changed",
		zap.Uint("member_id", id),
		zap.String("from", before),
		zap.String("to", string(status)),
	)
	emitAudit(ctx, s.audit, s.log, domain.AuditEvent{
		ActorID:  actorID,
		Action:   domain.ActionStatusChange,
		EntityID: id,
		Before:   map[string]interface{}{"status": before},
		After:    map[string]interface{}{"status": string(status)},
	})
	return nil
}

// DeleteLeaf removes a member with no direct children together with its invite codes
func (s *MemberService) DeleteLeaf(ctx context.Context, actorID, id uint) error {
	var deleted *models.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.memberRepo.WithTx(tx).ForUpdate()

		member, err := members.GetByID(ctx, id)
		if err != nil {
			return notFound(err, domain.ErrMemberNotFound)
		}

		children, err := members.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return domain.ErrHasChildren
		}

		if err := s.codeRepo.WithTx(tx).DeleteByOwner(ctx, id); err != nil {
			return err
		}
		if err := members.Delete(ctx, id); err != nil {
			return err
		}
		deleted = member
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("member deleted", zap.Uint("member_id", id))
	emitAudit(ctx, s.audit, s.log, domain.AuditEvent{
		ActorID:  actorID,
		Action:   domain.ActionMemberDeleted,
		EntityID: id,
		Before: map[string]interface{}{
			"sponsor_id": deleted.SponsorID,
			"email":      deleted.Email,
		},
	})
	return nil
}

// ChangeRole sets a member's tier
func (s *MemberService) ChangeRole(ctx context.Context, actorID, id uint, role domain.Role) error {
	if !role.Valid() {
		return domain.ErrInvalidRole
	}

	var before string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.memberRepo.WithTx(tx).ForUpdate()

		member, err := members.GetByID(ctx, id)
		if err != nil {
			return notFound(err, domain.ErrMemberNotFound)
		}
		before = member.Role
		if before == string(role) {
			return nil
		}
		return members.UpdateRole(ctx, id, string(role))
	})
	if err != nil {
		return err
	}
	if before == string(role) {
		return nil
	}

	emitAudit(ctx, s.audit, s.log, domain.AuditEvent{
		ActorID:  actorID,
		Action:   domain.ActionRoleChange,
		EntityID: id,
		Before:   map[string]interface{}{"role": before},
		After:    map[string]interface{}{"role": string(role)},
	})
	return nil
}

// RootInput describes the bootstrap administrator
type RootInput struct {
	Name     string
	Email    string
	Password string
}

// BootstrapRoot creates the root administrator of an empty tree and gives it an
// invite code. It returns ErrTreeNotEmpty once any member exists.
func (s *MemberService) BootstrapRoot(ctx context.Context, input *RootInput) (*models.Member, error) {
	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	root := &models.Member{
		Name:     input.Name,
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Password: hashed,
		Role:     string(domain.RoleAdmin),
		Status:   string(domain.StatusActive),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.memberRepo.WithTx(tx).ForUpdate()

		total, err := members.Count(ctx)
		if err != nil {
			return err
		}
		if total > 0 {
			return domain.ErrTreeNotEmpty
		}
		if err := members.Create(ctx, root); err != nil {
			return err
		}
		_, err = s.invites.mintTx(ctx, tx, root.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("root administrator created", zap.Uint("member_id", root.ID))
	return root, nil
}
