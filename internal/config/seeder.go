package config

import (
	"context"
	"errors"

	"sponsornet/internal/core/domain"
	"sponsornet/internal/core/services"

	"go.uber.org/zap"
)

// Seeder handles database seeding
type Seeder struct {
	cfg     *Config
	members *services.MemberService
	log     *zap.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(cfg *Config, members *services.MemberService, log *zap.Logger) *Seeder {
	return &Seeder{cfg: cfg, members: members, log: log.Named("seeder")}
}

// Run executes all seeders
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.seedRootAdmin(ctx); err != nil {
		return err
	}
	return nil
}

// seedRootAdmin creates the root administrator when the tree is empty.
// A non-empty tree is left untouched.
func (s *Seeder) seedRootAdmin(ctx context.Context) error {
	root := s.cfg.RootAdmin
	if root.Email == "" {
		s.log.Info("root admin bootstrap disabled")
		return nil
	}

	member, err := s.members.BootstrapRoot(ctx, &services.RootInput{
		Name:     root.Name,
		Email:    root.Email,
		Password: root.Password,
	})
	if errors.Is(err, domain.ErrTreeNotEmpty) {
		s.log.Debug("tree not empty, root admin bootstrap skipped")
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Info("root admin seeded", zap.Uint("member_id", member.ID))
	return nil
}
