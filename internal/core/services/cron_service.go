package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// zapCronLogger routes the scheduler's own messages, including skipped
// runs and recovered panics, into zap
type zapCronLogger struct {
	log *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Infow(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// CronService runs scheduled maintenance jobs
type CronService struct {
	cron    *cron.Cron
	paths   *PathService
	log     *zap.Logger
	spec    string
	timeout time.Duration
}

// NewCronService creates a new cron service.
// spec is a standard 5-field cron expression; an empty spec disables the job.
func NewCronService(paths *PathService, log *zap.Logger, spec string, timeout time.Duration) *CronService {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	log = log.Named("cron")
	clog := zapCronLogger{log: log.Sugar()}
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	return &CronService{
		cron:    c,
		paths:   paths,
		log:     log,
		spec:    spec,
		timeout: timeout,
	}
}

// Start registers jobs and starts the scheduler
func (s *CronService) Start() error {
	if s.spec == "" {
		s.log.Info("consistency job disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, s.RunConsistencyCheck); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("cron started", zap.String("consistency_spec", s.spec))
	return nil
}

// Stop stops the scheduler and waits for a running job
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

// RunConsistencyCheck scans the tree once and logs every violation
func (s *CronService) RunConsistencyCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.paths.ConsistencyCheck(ctx)
	if err != nil {
		s.log.Error("consistency check failed", zap.Error(err))
		return
	}

	for _, v := range report.Violations {
		s.log.Warn("tree violation",
			zap.Uint("member_id", v.MemberID),
			zap.String("kind", string(v.Kind)),
			zap.Uints("expected_path", v.ExpectedPath),
			zap.Uints("actual_path", v.ActualPath),
		)
	}
	s.log.Info("consistency check finished",
		zap.Int64("checked", report.Checked),
		zap.Int("violations", len(report.Violations)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)
}
