package jobs

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"MaintBackOffice/internal/config"
	"MaintBackOffice/internal/logger"
	"MaintBackOffice/internal/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RetentionConfig holds configuration for the upload audit sweeper
type RetentionConfig struct {
	Schedule      string // Cron schedule (default: "0 2 * * *", 2 AM daily)
	RetentionDays int    // Audit documents older than this are deleted
	TimeZone      string
	Collection    string
}

func NewDefaultRetentionConfig() *RetentionConfig {
	schedule := os.Getenv("AUDIT_RETENTION_SCHEDULE")
	if schedule == "" {
		schedule = config.DefaultAuditSchedule
	}
	days := config.DefaultAuditRetentionDays
	if v := os.Getenv("AUDIT_RETENTION_DAYS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}
	return &RetentionConfig{
		Schedule:      schedule,
		RetentionDays: days,
		TimeZone:      config.DefaultTimeZone,
		Collection:    config.AuditCollection,
	}
}

// RunRetentionScheduler registers the sweep on a new cron and starts it. The
// caller owns the returned cron and must Stop it.
func RunRetentionScheduler(cfg *RetentionConfig, st store.Store) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultAuditSchedule
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = config.DefaultAuditRetentionDays
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = config.DefaultTimeZone
	}
	if cfg.Collection == "" {
		cfg.Collection = config.AuditCollection
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
		zap.L().Warn("invalid timezone, falling back to UTC", zap.String("timezone", cfg.TimeZone), zap.Error(err))
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		deleted, err := SweepAudits(context.Background(), st, cfg, time.Now())
		if err != nil {
			zap.L().Error("audit retention sweep failed", zap.Error(err))
			return
		}
		logger.Audit("audit retention sweep completed", zap.Int64("deleted", deleted))
	})
	if err != nil {
		return nil, fmt.Errorf("unable to schedule audit retention sweep: %w", err)
	}

	c.Start()
	logger.Audit("audit retention scheduler started",
		zap.String("schedule", cfg.Schedule),
		zap.String("timezone", loc.String()),
		zap.Int("retention_days", cfg.RetentionDays))
	return c, nil
}

// SweepAudits deletes audit documents that finished before now minus the
// retention window.
func SweepAudits(ctx context.Context, st store.Store, cfg *RetentionConfig, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	cutoff := now.AddDate(0, 0, -cfg.RetentionDays)
	deleted, err := st.DeleteMany(ctx, cfg.Collection, store.Filter{
		OlderThan: &store.TimeBound{Field: "finishedAt", Before: cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("delete audits before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return deleted, nil
}
