package jobs

import (
	"context"
	"testing"
	"time"

	"MaintBackOffice/internal/config"
	"MaintBackOffice/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepAuditsDeletesOnlyExpired(t *testing.T) {
	fake := storetest.New()
	now := time.Date(2026, 6, 1, 2, 0, 0, 0, time.UTC)
	fake.Seed(config.AuditCollection, map[string]any{"uploadId": "old", "finishedAt": now.AddDate(0, 0, -120)})
	fake.Seed(config.AuditCollection, map[string]any{"uploadId": "edge", "finishedAt": now.AddDate(0, 0, -89)})
	fake.Seed(config.AuditCollection, map[string]any{"uploadId": "new", "finishedAt": now.Add(-time.Hour)})

	deleted, err := SweepAudits(context.Background(), fake, &RetentionConfig{
		RetentionDays: 90,
		Collection:    config.AuditCollection,
	}, now)

	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	left := fake.Docs(config.AuditCollection)
	require.Len(t, left, 2)
	assert.Equal(t, "edge", left[0].Fields["uploadId"])
	assert.Equal(t, "new", left[1].Fields["uploadId"])
}

func TestRunRetentionSchedulerRejectsBadSchedule(t *testing.T) {
	_, err := RunRetentionScheduler(&RetentionConfig{Schedule: "every tuesday"}, storetest.New())
	assert.Error(t, err)
}

func TestCronServiceStartStop(t *testing.T) {
	svc := NewCronService(map[string]interface{}{"audit_schedule": "0 3 * * *", "audit_retention_days": 30}, storetest.New())
	require.NoError(t, svc.Start())

	cs := svc.(*CronService)
	require.Len(t, cs.cron.Entries(), 1)
	assert.True(t, cs.cron.Entries()[0].Next.After(time.Now()))
	assert.NoError(t, svc.Stop())
}

func TestCronServiceNeedsStore(t *testing.T) {
	svc := NewCronService(nil, nil)
	assert.Error(t, svc.Start())
}
