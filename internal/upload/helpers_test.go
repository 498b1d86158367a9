package upload

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"MaintBackOffice/internal/config"
	"MaintBackOffice/internal/store/storetest"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func priceSchema(t *testing.T) *Schema {
	t.Helper()
	s := &Schema{
		Resource:   "cmc-ncmc-price",
		Collection: "cmcncmcprices",
		Fields: []Field{
			{Name: "partNumber", Type: TypeString, MaxLen: 100, Synonyms: []string{"part number", "part no", "pn"}},
			{Name: "description", Type: TypeString, MaxLen: 20, HasDefault: true, Synonyms: []string{"desc"}},
			{Name: "product", Type: TypeString, MaxLen: 150},
			{Name: "cmcPrice", Type: TypeNumber, Synonyms: []string{"cmc price", "cmc"}},
			{Name: "ncmcPrice", Type: TypeNumber, Synonyms: []string{"ncmc price", "ncmc"}},
			{Name: "remarks", Type: TypeString, MaxLen: 1000, HasDefault: true},
			{Name: StatusField, Type: TypeStatus},
			{Name: CreatedAtField, Type: TypeTime, NoDiff: true, Synonyms: []string{"created date"}},
		},
		Required:  []string{"partNumber", "cmcPrice", "ncmcPrice"},
		KeyFields: []string{"partNumber"},
		Echo:      []string{"partNumber"},
		StrictCSV: true,
	}
	require.NoError(t, s.Compile())
	return s
}

func testConfig(batchSize int) config.UploadConfig {
	cfg := config.DefaultUploadConfig()
	cfg.BatchSize = batchSize
	return cfg
}

func newTestOrchestrator(fake *storetest.Fake, cfg config.UploadConfig) *Orchestrator {
	o := NewOrchestrator(fake, cfg)
	o.Now = func() time.Time { return fixedNow }
	return o
}

func csvFile(lines ...string) File {
	return File{Name: "prices.csv", MimeType: "text/csv", Data: []byte(strings.Join(lines, "\n") + "\n")}
}

// runUpload prepares and runs one upload, returning the job and every NDJSON
// line that was streamed.
func runUpload(t *testing.T, o *Orchestrator, schema *Schema, f File) (*Job, []map[string]any) {
	t.Helper()
	job, err := o.Prepare(context.Background(), schema, f)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, o.Run(context.Background(), job, NewReporter(&buf)))
	return job, parseLines(t, buf.Bytes())
}

func parseLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 1<<20), 16<<20)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), "line %q", sc.Text())
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func outcomeByRow(job *Job) map[int]*RecordOutcome {
	out := make(map[int]*RecordOutcome, len(job.Results))
	for _, r := range job.Results {
		out[r.Row] = r
	}
	return out
}
