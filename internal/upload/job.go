package upload

import (
	"fmt"
	"time"
)

type OutcomeStatus string

const (
	StatusProcessing OutcomeStatus = "Processing"
	StatusCreated    OutcomeStatus = "Created"
	StatusUpdated    OutcomeStatus = "Updated"
	StatusSkipped    OutcomeStatus = "Skipped"
	StatusFailed     OutcomeStatus = "Failed"
)

const (
	ActionCreated        = "Created new record"
	ActionUpdated        = "Updated existing record"
	ActionDuplicate      = "Duplicate in file"
	ActionNoChanges      = "No changes detected"
	ActionValidation     = "Validation failed"
	ActionWriteFailed    = "Write failed"
	ActionLookupFailed   = "Lookup failed"
	ActionStatusOnlyEdit = "Status updated"
)

// RecordOutcome is the result for one input row. Row is the 1-based position
// of the row among the file's data rows and is the only ordering guarantee:
// results are listed in batch completion order.
type RecordOutcome struct {
	Row            int               `json:"row"`
	Data           map[string]string `json:"data"`
	Status         OutcomeStatus     `json:"status"`
	Action         string            `json:"action"`
	Error          *string           `json:"error"`
	Warnings       []string          `json:"warnings"`
	ChangeDetails  []Change          `json:"changeDetails"`
	AssignedStatus string            `json:"assignedStatus,omitempty"`
	StatusChanged  bool              `json:"statusChanged"`
}

func (o *RecordOutcome) fail(action, msg string) {
	o.Status = StatusFailed
	o.Action = action
	o.Error = &msg
}

// Summary holds the running counters. Skipped is DuplicatesInFile plus
// NoChangesSkipped.
type Summary struct {
	Created          int `json:"created"`
	Updated          int `json:"updated"`
	Failed           int `json:"failed"`
	Skipped          int `json:"skipped"`
	DuplicatesInFile int `json:"duplicatesInFile"`
	ExistingRecords  int `json:"existingRecords"`
	NoChangesSkipped int `json:"noChangesSkipped"`
	StatusUpdates    int `json:"statusUpdates"`
}

func (s *Summary) add(d Summary) {
	s.Created += d.Created
	s.Updated += d.Updated
	s.Failed += d.Failed
	s.Skipped += d.Skipped
	s.DuplicatesInFile += d.DuplicatesInFile
	s.ExistingRecords += d.ExistingRecords
	s.NoChangesSkipped += d.NoChangesSkipped
	s.StatusUpdates += d.StatusUpdates
}

type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

type Event string

const (
	EventStarted        Event = "started"
	EventProgress       Event = "progress"
	EventBatchCompleted Event = "batch_completed"
	EventCompleted      Event = "completed"
	EventFailed         Event = "failed"
)

type Progress struct {
	TotalBatches      int `json:"totalBatches"`
	DispatchedBatches int `json:"dispatchedBatches"`
	CompletedBatches  int `json:"completedBatches"`
	Percent           int `json:"percent"`
}

// Job is the state of one upload request. The dispatcher goroutine is its only
// writer; batch tasks hand back deltas that the dispatcher folds in.
type Job struct {
	UploadID         string            `json:"uploadId"`
	Resource         string            `json:"resource"`
	FileName         string            `json:"fileName"`
	Checksum         string            `json:"checksum"`
	Status           JobStatus         `json:"status"`
	Message          string            `json:"message,omitempty"`
	TotalRecords     int               `json:"totalRecords"`
	ProcessedRecords int               `json:"processedRecords"`
	Summary          Summary           `json:"summary"`
	HeaderMapping    map[string]string `json:"headerMapping"`
	Results          []*RecordOutcome  `json:"-"`
	Errors           []string          `json:"errors"`
	Warnings         []string          `json:"warnings"`
	Progress         Progress          `json:"progress"`
	StartedAt        time.Time         `json:"startedAt"`
	FinishedAt       *time.Time        `json:"finishedAt,omitempty"`
	DurationMs       int64             `json:"durationMs,omitempty"`

	schema  *Schema
	headers *HeaderMap
	rows    [][]string
	claims  keyClaims
}

// Snapshot is one NDJSON chunk. Intermediate chunks carry only the most recent
// outcomes; the final chunk carries all of them.
type Snapshot struct {
	Event Event `json:"event"`
	*Job
	RecentResults []*RecordOutcome `json:"recentResults,omitempty"`
	Results       []*RecordOutcome `json:"results,omitempty"`
}

func (j *Job) snapshot(ev Event, recent int) Snapshot {
	s := Snapshot{Event: ev, Job: j}
	switch ev {
	case EventCompleted, EventFailed:
		s.Results = j.Results
		if s.Results == nil {
			s.Results = []*RecordOutcome{}
		}
	case EventBatchCompleted:
		from := len(j.Results) - recent
		if from < 0 {
			from = 0
		}
		s.RecentResults = j.Results[from:]
	}
	return s
}

func (j *Job) updateProgress() {
	if j.TotalRecords > 0 {
		j.Progress.Percent = j.ProcessedRecords * 100 / j.TotalRecords
	}
}

func (j *Job) summaryLine() string {
	s := j.Summary
	return fmt.Sprintf("Processed %d of %d records: %d created, %d updated, %d skipped (%d duplicates in file, %d unchanged), %d failed",
		j.ProcessedRecords, j.TotalRecords, s.Created, s.Updated, s.Skipped, s.DuplicatesInFile, s.NoChangesSkipped, s.Failed)
}

// echo copies the key and label fields of a row for display.
func (j *Job) echo(row []string) map[string]string {
	out := make(map[string]string, len(j.schema.Echo))
	for _, col := range j.headers.columns {
		for _, name := range j.schema.Echo {
			if col.field.Name == name && col.index < len(row) {
				out[name] = row[col.index]
			}
		}
	}
	return out
}
