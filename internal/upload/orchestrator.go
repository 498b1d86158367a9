package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MaintBackOffice/internal/config"
	"MaintBackOffice/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// File is an uploaded file as received by the HTTP layer.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Orchestrator runs upload jobs against a store. One Orchestrator serves all
// requests; each job carries its own state.
type Orchestrator struct {
	store store.Store
	cfg   config.UploadConfig
	Now   func() time.Time
}

func NewOrchestrator(st store.Store, cfg config.UploadConfig) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = config.BatchSize
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = config.MaxInFlightBatches
	}
	if cfg.WriteChunkSize <= 0 {
		cfg.WriteChunkSize = config.WriteChunkSize
	}
	if cfg.RecentResults <= 0 {
		cfg.RecentResults = config.RecentResults
	}
	return &Orchestrator{store: st, cfg: cfg, Now: time.Now}
}

// Prepare decodes the file and checks its headers. Every error it returns is an
// *Error meant to be answered with a single JSON response; no store call is made
// before the required-column check passes.
func (o *Orchestrator) Prepare(ctx context.Context, schema *Schema, f File) (*Job, error) {
	if f.Name == "" && len(f.Data) == 0 {
		return nil, NoFileUploaded()
	}
	table, err := Decode(f.Data, f.Name, f.MimeType, schema.StrictCSV)
	if err != nil {
		return nil, err
	}
	hm := schema.MapHeaders(NewNormalizer(), table.Headers)
	if missing := schema.MissingRequired(hm); len(missing) > 0 {
		return nil, MissingRequiredHeaders(missing, table.Headers)
	}

	job := &Job{
		UploadID:      uuid.NewString(),
		Resource:      schema.Resource,
		FileName:      f.Name,
		Status:        JobProcessing,
		TotalRecords:  len(table.Rows),
		HeaderMapping: hm.Mapping,
		Errors:        []string{},
		Warnings:      []string{},
		StartedAt:     o.Now(),
		schema:        schema,
		headers:       hm,
		rows:          table.Rows,
		claims:        keyClaims{},
	}
	for _, raw := range hm.Ignored {
		job.Warnings = append(job.Warnings, fmt.Sprintf("column %q ignored: an earlier column already supplies that field", raw))
	}
	o.checkRepeat(ctx, job, f.Data)
	return job, nil
}

type batch struct {
	seq        int
	start, end int
}

func partition(total, size int) []batch {
	var out []batch
	for start := 0; start < total; start += size {
		out = append(out, batch{seq: len(out), start: start, end: min(start+size, total)})
	}
	return out
}

type item struct {
	outcome *RecordOutcome
	cleaned Cleaned
	key     string
}

// preparedBatch is a batch whose rows are validated and whose keys are claimed.
type preparedBatch struct {
	seq      int
	outcomes []*RecordOutcome
	items    []*item
	delta    Summary
}

type batchResult struct {
	seq      int
	outcomes []*RecordOutcome
	delta    Summary
	err      error
}

// Run drives the job to completion and streams snapshots to rep. Up to
// MaxInFlight batches write to the store at once. While batches remain to be
// admitted, the window frees up in completion order; the final drain folds the
// remaining batches in admission order.
//
// Validation and key claiming happen on this goroutine at admission time, so the
// first occurrence of a key in file order always wins regardless of which
// batch finishes first.
func (o *Orchestrator) Run(ctx context.Context, job *Job, rep *Reporter) (err error) {
	log := zap.L().With(zap.String("upload_id", job.UploadID), zap.String("resource", job.Resource))
	defer func() {
		if r := recover(); r != nil {
			err = o.fail(ctx, job, rep, fmt.Errorf("panic: %v", r))
		}
	}()

	batches := partition(len(job.rows), o.cfg.BatchSize)
	job.Progress.TotalBatches = len(batches)
	log.Info("upload started",
		zap.String("file", job.FileName),
		zap.Int("total_records", job.TotalRecords),
		zap.Int("batches", len(batches)))
	if err := rep.Emit(job.snapshot(EventStarted, 0)); err != nil {
		return o.fail(ctx, job, rep, err)
	}

	window := o.cfg.MaxInFlight
	done := make(chan int, window)
	results := make([]chan batchResult, len(batches))
	var inflight []int

	fold := func(seq int) error {
		res := <-results[seq]
		for i, s := range inflight {
			if s == seq {
				inflight = append(inflight[:i], inflight[i+1:]...)
				break
			}
		}
		if res.err != nil {
			return res.err
		}
		job.Summary.add(res.delta)
		job.Results = append(job.Results, res.outcomes...)
		job.ProcessedRecords += len(res.outcomes)
		job.Progress.CompletedBatches++
		job.updateProgress()
		log.Debug("batch folded",
			zap.Int("batch", seq+1),
			zap.Int("processed", job.ProcessedRecords),
			zap.Int("failed", job.Summary.Failed))
		return rep.Emit(job.snapshot(EventBatchCompleted, o.cfg.RecentResults))
	}

	var stopErr error
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}
		if len(inflight) >= window {
			if err := fold(<-done); err != nil {
				stopErr = err
				break
			}
		}
		job.Progress.DispatchedBatches = b.seq + 1
		if err := rep.Emit(job.snapshot(EventProgress, 0)); err != nil {
			stopErr = err
			break
		}
		pb := o.prepare(job, b)
		results[b.seq] = make(chan batchResult, 1)
		inflight = append(inflight, b.seq)
		go func(ch chan<- batchResult, pb *preparedBatch) {
			ch <- o.execute(ctx, job.schema, pb)
			done <- pb.seq
		}(results[b.seq], pb)
	}

	for len(inflight) > 0 {
		if err := fold(inflight[0]); err != nil && stopErr == nil {
			stopErr = err
		}
	}
	if stopErr != nil {
		return o.fail(ctx, job, rep, stopErr)
	}

	job.Status = JobCompleted
	o.finish(job)
	job.Message = job.summaryLine()
	log.Info("upload completed",
		zap.Int("created", job.Summary.Created),
		zap.Int("updated", job.Summary.Updated),
		zap.Int("skipped", job.Summary.Skipped),
		zap.Int("failed", job.Summary.Failed),
		zap.Int64("duration_ms", job.DurationMs))
	o.recordAudit(job)
	if err := rep.Emit(job.snapshot(EventCompleted, 0)); err != nil {
		log.Warn("final snapshot not delivered", zap.Error(err))
	}
	return nil
}

// prepare validates the batch's rows and claims their business keys.
func (o *Orchestrator) prepare(job *Job, b batch) *preparedBatch {
	now := o.Now()
	pb := &preparedBatch{seq: b.seq}
	for i := b.start; i < b.end; i++ {
		row := job.rows[i]
		out := &RecordOutcome{
			Row:           i + 1,
			Data:          job.echo(row),
			Status:        StatusProcessing,
			Warnings:      []string{},
			ChangeDetails: []Change{},
		}
		pb.outcomes = append(pb.outcomes, out)

		c := job.schema.Clean(row, job.headers, now)
		if !c.Valid() {
			out.fail(ActionValidation, strings.Join(c.Errors, "; "))
			pb.delta.Failed++
			continue
		}
		key := job.schema.Key(c.Record)
		if first, ok := job.claims.claim(key, out.Row); !ok {
			out.Status = StatusSkipped
			out.Action = ActionDuplicate
			out.Warnings = append(out.Warnings, fmt.Sprintf("same key as row %d", first))
			pb.delta.Skipped++
			pb.delta.DuplicatesInFile++
			continue
		}
		pb.items = append(pb.items, &item{outcome: out, cleaned: c, key: key})
	}
	return pb
}

type pendingOp struct {
	op      store.WriteOp
	outcome *RecordOutcome
}

// execute looks up existing records for the batch, diffs, and writes. Store
// failures become row outcomes; only a panic surfaces as an error.
func (o *Orchestrator) execute(ctx context.Context, schema *Schema, pb *preparedBatch) (res batchResult) {
	res = batchResult{seq: pb.seq, outcomes: pb.outcomes, delta: pb.delta}
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("batch %d: %v", pb.seq+1, r)
		}
	}()
	if len(pb.items) == 0 {
		return res
	}

	records := make([]Record, len(pb.items))
	for i, it := range pb.items {
		records[i] = it.cleaned.Record
	}
	docs, err := o.store.Find(ctx, schema.Collection, schema.lookupFilter(records))
	if err != nil {
		msg := fmt.Sprintf("existing record lookup failed: %v", err)
		for _, it := range pb.items {
			it.outcome.fail(ActionLookupFailed, msg)
			res.delta.Failed++
		}
		return res
	}
	existing := schema.indexExisting(docs)

	var inserts, updates []pendingOp
	for _, it := range pb.items {
		out := it.outcome
		rec := it.cleaned.Record
		doc, found := existing[it.key]
		if !found {
			out.Status = StatusCreated
			out.Action = ActionCreated
			out.AssignedStatus = stringify(rec[StatusField])
			res.delta.Created++
			inserts = append(inserts, pendingOp{op: store.WriteOp{Kind: store.OpInsert, Fields: rec}, outcome: out})
			continue
		}

		res.delta.ExistingRecords++
		d := schema.DiffExisting(doc.Fields, it.cleaned)
		out.AssignedStatus = d.AssignedStatus
		out.StatusChanged = d.StatusChanged
		if len(d.Changes) == 0 {
			out.Status = StatusSkipped
			out.Action = ActionNoChanges
			res.delta.Skipped++
			res.delta.NoChangesSkipped++
			continue
		}
		out.Status = StatusUpdated
		out.Action = ActionUpdated
		if len(d.Changes) == 1 && d.Changes[0].Field == StatusField {
			out.Action = ActionStatusOnlyEdit
		}
		out.ChangeDetails = d.Changes
		res.delta.Updated++
		if d.StatusChanged {
			res.delta.StatusUpdates++
		}
		updates = append(updates, pendingOp{op: store.WriteOp{Kind: store.OpUpdate, ID: doc.ID, Fields: d.Set}, outcome: out})
	}

	o.write(ctx, schema.Collection, inserts, &res.delta)
	o.write(ctx, schema.Collection, updates, &res.delta)
	return res
}

// write submits pending ops in chunks of WriteChunkSize. Ops the store rejects,
// and every op of a chunk whose call failed outright, are demoted to Failed.
func (o *Orchestrator) write(ctx context.Context, collection string, pending []pendingOp, delta *Summary) {
	for start := 0; start < len(pending); start += o.cfg.WriteChunkSize {
		chunk := pending[start:min(start+o.cfg.WriteChunkSize, len(pending))]
		ops := make([]store.WriteOp, len(chunk))
		for i, p := range chunk {
			ops[i] = p.op
		}
		res, err := o.store.BulkWrite(ctx, collection, ops)
		if err != nil {
			zap.L().Error("bulk write failed",
				zap.String("collection", collection),
				zap.Int("ops", len(ops)),
				zap.Error(err))
			for _, p := range chunk {
				demote(p.outcome, err.Error(), delta)
			}
			continue
		}
		for _, we := range res.WriteErrors {
			if we.Index < 0 || we.Index >= len(chunk) {
				zap.L().Warn("write error for unknown op", zap.Int("index", we.Index), zap.String("message", we.Message))
				continue
			}
			demote(chunk[we.Index].outcome, we.Message, delta)
		}
	}
}

func demote(out *RecordOutcome, msg string, delta *Summary) {
	switch out.Status {
	case StatusCreated:
		delta.Created--
	case StatusUpdated:
		delta.Updated--
		if out.StatusChanged {
			delta.StatusUpdates--
		}
	default:
		return
	}
	delta.Failed++
	out.fail(ActionWriteFailed, msg)
}

func (o *Orchestrator) finish(job *Job) {
	now := o.Now()
	job.FinishedAt = &now
	job.DurationMs = now.Sub(job.StartedAt).Milliseconds()
}

// fail ends the job as failed. The failed snapshot is only streamed when the
// response has already started; otherwise the caller answers with a plain
// JSON error built from the returned *Error.
func (o *Orchestrator) fail(ctx context.Context, job *Job, rep *Reporter, cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		cause = fmt.Errorf("upload cancelled: %w", cause)
	}
	job.Status = JobFailed
	job.Errors = append(job.Errors, cause.Error())
	o.finish(job)
	job.Message = "Upload failed: " + cause.Error()
	zap.L().Error("upload failed",
		zap.String("upload_id", job.UploadID),
		zap.String("resource", job.Resource),
		zap.Int("processed", job.ProcessedRecords),
		zap.Error(cause))
	o.recordAudit(job)
	if rep.Started() && ctx.Err() == nil {
		_ = rep.Emit(job.snapshot(EventFailed, 0))
	}
	return SystemError(cause)
}
