package upload

import (
	"context"
	"fmt"
	"time"

	"MaintBackOffice/internal/checksum"
	"MaintBackOffice/internal/config"
	"MaintBackOffice/internal/logger"
	"MaintBackOffice/internal/store"

	"go.uber.org/zap"
)

const auditTimeout = 5 * time.Second

// checkRepeat warns when the same bytes were already uploaded for this
// resource. The upload still runs; reprocessing an unchanged file is harmless.
func (o *Orchestrator) checkRepeat(ctx context.Context, job *Job, data []byte) {
	job.Checksum = checksum.Sum(data)
	docs, err := o.store.Find(ctx, config.AuditCollection, store.Filter{
		AnyOf: []store.Match{{"checksum": job.Checksum, "resource": job.Resource}},
	})
	if err != nil {
		zap.L().Warn("upload audit lookup failed", zap.String("upload_id", job.UploadID), zap.Error(err))
		return
	}
	if len(docs) == 0 {
		return
	}
	prev := docs[0].Fields
	for _, doc := range docs[1:] {
		if auditTime(doc.Fields["finishedAt"]).After(auditTime(prev["finishedAt"])) {
			prev = doc.Fields
		}
	}
	job.Warnings = append(job.Warnings, fmt.Sprintf(
		"this file was already uploaded (upload %s, %s); unchanged rows will be skipped",
		stringify(prev["uploadId"]), stringify(prev["finishedAt"])))
}

// auditTime reads a stored timestamp. JSON-backed stores return it as text.
func auditTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// recordAudit stores the job's outcome. Failures are logged and never change
// the job result.
func (o *Orchestrator) recordAudit(job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	finished := o.Now()
	if job.FinishedAt != nil {
		finished = *job.FinishedAt
	}
	s := job.Summary
	doc := map[string]any{
		"uploadId":     job.UploadID,
		"resource":     job.Resource,
		"fileName":     job.FileName,
		"checksum":     job.Checksum,
		"status":       string(job.Status),
		"totalRecords": job.TotalRecords,
		"summary": map[string]any{
			"created":          s.Created,
			"updated":          s.Updated,
			"failed":           s.Failed,
			"skipped":          s.Skipped,
			"duplicatesInFile": s.DuplicatesInFile,
			"existingRecords":  s.ExistingRecords,
			"noChangesSkipped": s.NoChangesSkipped,
			"statusUpdates":    s.StatusUpdates,
		},
		"startedAt":  job.StartedAt,
		"finishedAt": finished,
		"durationMs": job.DurationMs,
	}
	if err := o.store.InsertOne(ctx, config.AuditCollection, doc); err != nil {
		zap.L().Error("upload audit write failed", zap.String("upload_id", job.UploadID), zap.Error(err))
		return
	}
	logger.Audit("upload recorded",
		zap.String("upload_id", job.UploadID),
		zap.String("resource", job.Resource),
		zap.String("status", string(job.Status)))
}
