package jobs

import (
	"fmt"

	"MaintBackOffice/internal/config"
	"MaintBackOffice/internal/serviceiface"
	"MaintBackOffice/internal/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type CronService struct {
	config map[string]interface{}
	store  store.Store
	cron   *cron.Cron
}

func NewCronService(cfg map[string]interface{}, st store.Store) serviceiface.Service {
	return &CronService{
		config: cfg,
		store:  st,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	if s.store == nil {
		return fmt.Errorf("cron service needs a store")
	}
	retention := NewDefaultRetentionConfig()

	// Override from services.yaml if provided
	if s.config != nil {
		if schedule, ok := s.config["audit_schedule"].(string); ok && schedule != "" {
			retention.Schedule = schedule
		}
		if days := config.ToInt(s.config["audit_retention_days"]); days > 0 {
			retention.RetentionDays = days
		}
	}

	c, err := RunRetentionScheduler(retention, s.store)
	if err != nil {
		return fmt.Errorf("failed to start audit retention scheduler: %w", err)
	}
	s.cron = c
	zap.L().Info("cron service started", zap.String("audit_schedule", retention.Schedule))
	return nil
}

func (s *CronService) Stop() error {
	if s.cron == nil {
		return nil
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.L().Info("cron service stopped")
	return nil
}
