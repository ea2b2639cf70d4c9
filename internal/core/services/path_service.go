package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"sponsornet/internal/adapters/persistence/models"
	"sponsornet/internal/adapters/persistence/repositories"
	"sponsornet/internal/core/domain"
	"sponsornet/internal/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// consistencyBatchSize is the page size of the full-scan checker
const consistencyBatchSize = 500

// PathService keeps materialized paths in sync with the sponsor graph
type PathService struct {
	db         *gorm.DB
	memberRepo repositories.MemberRepository
	audit      AuditSink
	log        *zap.Logger
}

// NewPathService creates a new path service
func NewPathService(
	db *gorm.DB,
	memberRepo repositories.MemberRepository,
	audit AuditSink,
	log *zap.Logger,
) *PathService {
	return &PathService{
		db:         db,
		memberRepo: memberRepo,
		audit:      audit,
		log:        log.Named("path"),
	}
}

// RecomputePath rebuilds the path of memberID from its sponsor, then of every descendant.
// actorID 0 marks a system repair.
func (s *PathService) RecomputePath(ctx context.Context, actorID, memberID uint) error {
	var before, after string
	var touched int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.memberRepo.WithTx(tx).ForUpdate()

		member, err := members.GetByID(ctx, memberID)
		if err != nil {
			return notFound(err, domain.ErrMemberNotFound)
		}
		before = member.Path

		touched, err = cascadePaths(ctx, members, member)
		after = member.Path
		return err
	})
	if err != nil {
		return err
	}

	metrics.CascadeSize.Observe(float64(touched))
	s.log.Info("path recomputed",
		zap.Uint("member_id", memberID),
		zap.String("from", before),
		zap.String("to", after),
		zap.Int("touched", touched),
	)

	emitAudit(ctx, s.audit, s.log, domain.AuditEvent{
		ActorID:  actorID,
		Action:   domain.ActionPathRecompute,
		EntityID: memberID,
		Before:   map[string]interface{}{"path": before},
		After:    map[string]interface{}{"path": after, "touched": touched},
	})
	return nil
}

// cascadePaths sets member.Path from its sponsor and pushes the change down
// breadth-first. All children of a node share one path, so each node costs a
// single UPDATE ... WHERE sponsor_id = ?. Returns the number of rows touched.
func cascadePaths(ctx context.Context, members repositories.MemberRepository, member *models.Member) (int, error) {
	path := ""
	if member.SponsorID != nil {
		sponsor, err := members.GetByID(ctx, *member.SponsorID)
		if err != nil {
			return 0, notFound(err, domain.ErrSponsorNotFound)
		}
		path = sponsor.ChildPath()
	}
	if err := members.UpdatePath(ctx, member.ID, path); err != nil {
		return 0, err
	}
	member.Path = path
	touched := 1

	type item struct {
		id        uint
		childPath string
	}
	queue := []item{{id: member.ID, childPath: member.ChildPath()}}
	visited := map[uint]bool{member.ID: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		n, err := members.UpdateChildrenPath(ctx, cur.id, cur.childPath)
		if err != nil {
			return touched, err
		}
		if n == 0 {
			continue
		}
		touched += int(n)

		childIDs, err := members.ChildIDsOf(ctx, []uint{cur.id})
		if err != nil {
			return touched, err
		}
		for _, id := range childIDs {
			if visited[id] {
				return touched, domain.ErrCycleDetected
			}
			visited[id] = true
			queue = append(queue, item{
				id:        id,
				childPath: cur.childPath + models.PathSeparator + strconv.FormatUint(uint64(id), 10),
			})
		}
	}
	return touched, nil
}

// ReassignSponsor moves memberID (and its whole subtree) under newSponsorID.
// A nil newSponsorID makes the member a root.
//
// Validation and mutation share one transaction: the mover, the new sponsor and
// the mover's subtree are row-locked and the cycle check runs on the locked rows,
// so concurrent moves over overlapping subtrees serialize.
func (s *PathService) ReassignSponsor(ctx context.Context, actorID, memberID uint, newSponsorID *uint) error {
	// 1. Self sponsorship
	if newSponsorID != nil && *newSponsorID == memberID {
		metrics.ReassignmentsTotal.WithLabelValues(string(domain.KindSelfReference)).Inc()
		return domain.ErrSelfReference
	}

	var before *uint
	var touched int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.memberRepo.WithTx(tx).ForUpdate()

		mover, err := members.GetByID(ctx, memberID)
		if err != nil {
			return notFound(err, domain.ErrMemberNotFound)
		}
		before = mover.SponsorID

		// 2. New sponsor must exist and be active
		if newSponsorID != nil {
			sponsor, err := members.GetByID(ctx, *newSponsorID)
			if err != nil {
				return notFound(err, domain.ErrSponsorNotFound)
			}
			if !sponsor.IsActive() {
				return domain.ErrSponsorInactive
			}

			// 3. New sponsor must not be inside the mover's subtree
			downline, err := downlineIDs(ctx, members, memberID)
			if err != nil {
				return err
			}
			for _, id := range downline {
				if id == *newSponsorID {
					return domain.ErrCycleDetected
				}
			}
		}

		// 4. Persist sponsor
		if err := members.UpdateSponsor(ctx, memberID, newSponsorID); err != nil {
			return err
		}
		mover.SponsorID = newSponsorID

		// 5. Cascade
		touched, err = cascadePaths(ctx, members, mover)
		return err
	})
	if err != nil {
		if kind := domain.KindOf(err); kind != "" {
			metrics.ReassignmentsTotal.WithLabelValues(string(kind)).Inc()
		} else {
			metrics.ReassignmentsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.ReassignmentsTotal.WithLabelValues("ok").Inc()
	metrics.CascadeSize.Observe(float64(touched))
	s.log.Info("sponsor reassigned",
		zap.Uint("member_id", memberID),
		zap.Uintp("from", before),
		zap.Uintp("to", newSponsorID),
		zap.Int("touched", touched),
	)

	emitAudit(ctx, s.audit, s.log, domain.AuditEvent{
		ActorID:  actorID,
		Action:   domain.ActionReassignSponsor,
		EntityID: memberID,
		Before:   map[string]interface{}{"sponsor_id": before},
		After:    map[string]interface{}{"sponsor_id": newSponsorID},
	})
	return nil
}

// Upline returns up to levels ancestors of memberID, nearest first
func (s *PathService) Upline(ctx context.Context, memberID uint, levels int) ([]*models.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, notFound(err, domain.ErrMemberNotFound)
	}
	return ancestors(ctx, s.memberRepo, member, levels, s.log)
}

// ancestors follows sponsor links upward. A dangling sponsor ends the walk.
func ancestors(ctx context.Context, members repositories.MemberRepository, member *models.Member, levels int, log *zap.Logger) ([]*models.Member, error) {
	result := make([]*models.Member, 0, levels)
	seen := map[uint]bool{member.ID: true}

	cur := member
	for len(result) < levels && cur.SponsorID != nil {
		sponsorID := *cur.SponsorID
		if seen[sponsorID] {
			return nil, domain.ErrCycleDetected
		}
		sponsor, err := members.GetByID(ctx, sponsorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warn("dangling sponsor reference",
					zap.Uint("member_id", cur.ID),
					zap.Uint("sponsor_id", sponsorID),
				)
				break
			}
			return nil, err
		}
		seen[sponsorID] = true
		result = append(result, sponsor)
		cur = sponsor
	}
	return result, nil
}

// ConsistencyCheck scans every member and reports all invariant violations.
// It is read-only and meant for batch use.
func (s *PathService) ConsistencyCheck(ctx context.Context) (*domain.ConsistencyReport, error) {
	report := &domain.ConsistencyReport{
		StartedAt:  time.Now(),
		Violations: []domain.Violation{},
	}

	err := s.memberRepo.ScanAll(ctx, consistencyBatchSize, func(batch []*models.Member) error {
		sponsorIDs := make([]uint, 0, len(batch))
		for _, m := range batch {
			if m.SponsorID != nil {
				sponsorIDs = append(sponsorIDs, *m.SponsorID)
			}
		}

		sponsors := make(map[uint]*models.Member, len(sponsorIDs))
		if len(sponsorIDs) > 0 {
			list, err := s.memberRepo.ListByIDs(ctx, sponsorIDs)
			if err != nil {
				return err
			}
			for _, sp := range list {
				sponsors[sp.ID] = sp
			}
		}

		for _, m := range batch {
			report.Checked++
			report.Violations = append(report.Violations, checkMember(m, sponsors)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.FinishedAt = time.Now()
	metrics.ConsistencyViolations.Set(float64(len(report.Violations)))
	return report, nil
}

func checkMember(m *models.Member, sponsors map[uint]*models.Member) []domain.Violation {
	var out []domain.Violation
	actual := m.PathIDs()

	if m.HasAncestor(m.ID) {
		out = append(out, domain.Violation{
			MemberID:   m.ID,
			Kind:       domain.ViolationCycle,
			ActualPath: actual,
		})
	}

	if m.SponsorID == nil {
		if m.Path != "" {
			out = append(out, domain.Violation{
				MemberID:     m.ID,
				Kind:         domain.ViolationRootedness,
				ExpectedPath: []uint{},
				ActualPath:   actual,
			})
		}
		return out
	}

	sponsor, ok := sponsors[*m.SponsorID]
	if !ok {
		return append(out, domain.Violation{
			MemberID:   m.ID,
			Kind:       domain.ViolationDanglingSponsor,
			ActualPath: actual,
		})
	}

	if expected := sponsor.ChildPath(); m.Path != expected {
		out = append(out, domain.Violation{
			MemberID:     m.ID,
			Kind:         domain.ViolationAncestry,
			ExpectedPath: append(sponsor.PathIDs(), sponsor.ID),
			ActualPath:   actual,
		})
	}
	return out
}
