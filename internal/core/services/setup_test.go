package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"sponsornet/internal/adapters/persistence/models"
	"sponsornet/internal/adapters/persistence/repositories"
	"sponsornet/internal/core/domain"
	"sponsornet/internal/pkg/password"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	password.SetCost(4)
}

// recordingSink keeps emitted audit events in memory
type recordingSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (s *recordingSink) Emit(_ context.Context, e domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

type testEnv struct {
	db       *gorm.DB
	members  repositories.MemberRepository
	codes    repositories.InviteCodeRepository
	slabs    repositories.SlabRepository
	earnings repositories.EarningRepository
	audit    *recordingSink

	paths      *PathService
	subtree    *SubtreeService
	invites    *InviteService
	member     *MemberService
	commission *CommissionService
	auth       *AuthService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	log := zap.NewNop()

	env := &testEnv{
		db:       db,
		members:  repositories.NewMemberRepository(db),
		codes:    repositories.NewInviteCodeRepository(db),
		slabs:    repositories.NewSlabRepository(db),
		earnings: repositories.NewEarningRepository(db),
		audit:    &recordingSink{},
	}
	env.paths = NewPathService(db, env.members, env.audit, log)
	env.subtree = NewSubtreeService(env.members, TreeLimits{})
	env.invites = NewInviteService(db, env.members, env.codes, env.audit, log, 0)
	env.member = NewMemberService(db, env.members, env.codes, env.invites, env.audit, log)
	env.commission = NewCommissionService(db, env.members, env.slabs, env.earnings, log)
	env.auth = NewAuthService(env.members, "test-secret", 15, log)
	return env
}

// addMember inserts a member directly under sponsor with a consistent path
func (e *testEnv) addMember(t *testing.T, name string, sponsor *models.Member) *models.Member {
	t.Helper()

	m := &models.Member{
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: "x",
		Role:     string(domain.RoleAssociate),
		Status:   string(domain.StatusActive),
	}
	if sponsor != nil {
		m.SponsorID = &sponsor.ID
		m.Path = sponsor.ChildPath()
	}
	require.NoError(t, e.members.Create(context.Background(), m))
	return m
}

// reload fetches the current row
func (e *testEnv) reload(t *testing.T, m *models.Member) *models.Member {
	t.Helper()
	fresh, err := e.members.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	return fresh
}

// requireConsistent asserts the whole tree satisfies every path invariant
func (e *testEnv) requireConsistent(t *testing.T) {
	t.Helper()
	report, err := e.paths.ConsistencyCheck(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Violations)
}
