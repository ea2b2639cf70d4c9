// Command consistency scans the member tree once and exits non-zero
// when any path or sponsor violation is found.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"sponsornet/internal/adapters/persistence/repositories"
	"sponsornet/internal/config"
	"sponsornet/internal/core/domain"
	"sponsornet/internal/core/services"
	"sponsornet/internal/pkg/logger"

	"go.uber.org/zap"
)

// systemActor is recorded as the actor of offline repairs
const systemActor = 0

func main() {
	repair := flag.Bool("repair", false, "recompute paths of members with ancestry or rootedness violations")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.IsProd())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := config.ConnectDatabase(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer config.CloseDatabase()

	audit, closeAudit, err := config.NewAuditSink(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to build audit sink", zap.Error(err))
	}
	defer closeAudit()

	paths := services.NewPathService(db, repositories.NewMemberRepository(db), audit, zlog)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := paths.ConsistencyCheck(ctx)
	if err != nil {
		zlog.Fatal("consistency check failed", zap.Error(err))
	}

	for _, v := range report.Violations {
		zlog.Warn("tree violation",
			zap.Uint("member_id", v.MemberID),
			zap.String("kind", string(v.Kind)),
			zap.Uints("expected_path", v.ExpectedPath),
			zap.Uints("actual_path", v.ActualPath),
		)
		if *repair && (v.Kind == domain.ViolationAncestry || v.Kind == domain.ViolationRootedness) {
			if err := paths.RecomputePath(ctx, systemActor, v.MemberID); err != nil {
				zlog.Error("repair failed", zap.Uint("member_id", v.MemberID), zap.Error(err))
			}
		}
	}

	zlog.Info("consistency check finished",
		zap.Int64("checked", report.Checked),
		zap.Int("violations", len(report.Violations)),
	)
	if !report.OK() {
		os.Exit(1)
	}
}
