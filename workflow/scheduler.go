package workflow

import (
	"context"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/stitchline/store_backend/config"
	"gorm.io/gorm"
)

type Scheduler struct {
	cron    *cron.Cron
	logger  *logrus.Logger
	baseCtx context.Context
}

func NewScheduler(baseCtx context.Context, logger *logrus.Logger) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

func (s *Scheduler) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, func() {
		job(s.baseCtx)
	})
}

// Entries exposes the registered jobs.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) Start() {
	if s.logger != nil {
		s.logger.Info("scheduler started")
	}
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	if s.logger != nil {
		s.logger.Info("scheduler stopped")
	}
}

// ScheduleAllocationReconciliation registers the nightly reconciliation on
// spec. An empty or "off" spec registers nothing.
func (s *Scheduler) ScheduleAllocationReconciliation(spec string, db *gorm.DB) error {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "off") {
		return nil
	}
	_, err := s.Add(spec, func(ctx context.Context) {
		if _, _, err := RunAllocationReconciliation(ctx, db, s.logger); err != nil {
			config.LogError(s.logger, "workflow", "ScheduleAllocationReconciliation", "scheduled run", nil, err)
		}
	})
	return err
}
