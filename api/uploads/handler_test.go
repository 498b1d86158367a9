package uploads

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"MaintBackOffice/internal/config"
	"MaintBackOffice/internal/resources"
	"MaintBackOffice/internal/store/storetest"
	"MaintBackOffice/internal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, fake *storetest.Fake, limit int64) http.Handler {
	t.Helper()
	cfg := config.DefaultUploadConfig()
	cfg.BatchSize = 2
	h := NewHandler(fake, resources.Default(), upload.NewOrchestrator(fake, cfg), limit)
	return NewRouter(h)
}

func multipartBody(t *testing.T, field, name, mimeType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
	hdr.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postFile(t *testing.T, router http.Handler, path, name, mimeType, body string) *httptest.ResponseRecorder {
	t.Helper()
	buf, ct := multipartBody(t, "file", name, mimeType, []byte(body))
	req := httptest.NewRequest(http.MethodPost, path, buf)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func ndjson(t *testing.T, body string) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line %q", line)
		out = append(out, m)
	}
	return out
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestUploadStreamsProgressAsNDJSON(t *testing.T) {
	fake := storetest.New()
	fake.Seed("cmcncmcprices", map[string]any{"partNumber": "PN-3", "cmcPrice": 10.0, "ncmcPrice": 12.0, "status": "Active"})
	router := newTestRouter(t, fake, config.MaxUploadMB<<20)

	rec := postFile(t, router, "/upload/cmc-ncmc-price", "prices.csv", "text/csv",
		"Part Number,Desc,Product,CMC Price,NCMC Price\n"+
			"PN-1,Filter,Pump,100,120\n"+
			"pn-1,Filter again,Pump,100,120\n"+
			"PN-3,,Pump,10,15\n")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	lines := ndjson(t, rec.Body.String())
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "started", lines[0]["event"])
	last := lines[len(lines)-1]
	assert.Equal(t, "completed", last["event"])
	assert.Equal(t, "completed", last["status"])
	assert.EqualValues(t, 3, last["totalRecords"])

	summary := last["summary"].(map[string]interface{})
	assert.EqualValues(t, 1, summary["created"])
	assert.EqualValues(t, 1, summary["updated"])
	assert.EqualValues(t, 1, summary["duplicatesInFile"])
	assert.Len(t, last["results"], 3)
}

func TestLegacyAliasRoutesToReportedProblems(t *testing.T) {
	fake := storetest.New()
	router := newTestRouter(t, fake, config.MaxUploadMB<<20)

	// ragged rows are tolerated for reported problems
	rec := postFile(t, router, "/reportedproblem/upload", "problems.csv", "text/csv",
		"Catalog,Code Group,Prod Group,Problem Name\n"+
			"CAT1,CG1,PG1,Noise,extra\n")

	require.Equal(t, http.StatusOK, rec.Code)
	lines := ndjson(t, rec.Body.String())
	last := lines[len(lines)-1]
	assert.Equal(t, "reported-problems", last["resource"])
	assert.EqualValues(t, 1, last["summary"].(map[string]interface{})["created"])
	assert.Len(t, fake.Docs("reportedproblems"), 1)
}

func TestMissingRequiredHeadersAnsweredBeforeAnyStoreCall(t *testing.T) {
	fake := storetest.New()
	router := newTestRouter(t, fake, config.MaxUploadMB<<20)

	rec := postFile(t, router, "/upload/cmc-ncmc-price", "prices.csv", "text/csv",
		"Part Number,Desc\nPN-1,Filter\n")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "MissingRequiredHeaders", body["error"])
	details := body["details"].(map[string]interface{})
	assert.ElementsMatch(t, []interface{}{"cmcPrice", "ncmcPrice"}, details["missingFields"])
	assert.Zero(t, fake.StoreCalls())
}

func TestUploadFilterRejections(t *testing.T) {
	router := newTestRouter(t, storetest.New(), 1024)

	t.Run("unsupported type", func(t *testing.T) {
		rec := postFile(t, router, "/upload/cmc-ncmc-price", "notes.txt", "text/plain", "hello")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "UnsupportedFileType", decodeJSON(t, rec)["error"])
	})

	t.Run("mime type alone is enough", func(t *testing.T) {
		rec := postFile(t, router, "/upload/cmc-ncmc-price", "export", "text/csv",
			"Part Number,CMC Price,NCMC Price\nPN-1,1,2\n")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		rec := postFile(t, router, "/upload/cmc-ncmc-price", "big.csv", "text/csv", strings.Repeat("x", 2048))
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "FileTooLarge", decodeJSON(t, rec)["error"])
	})

	t.Run("wrong field", func(t *testing.T) {
		buf, ct := multipartBody(t, "attachment", "prices.csv", "text/csv", []byte("a,b\n"))
		req := httptest.NewRequest(http.MethodPost, "/upload/cmc-ncmc-price", buf)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "NoFileUploaded", decodeJSON(t, rec)["error"])
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/upload/cmc-ncmc-price", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "NoFileUploaded", decodeJSON(t, rec)["error"])
	})

	t.Run("empty file", func(t *testing.T) {
		rec := postFile(t, router, "/upload/cmc-ncmc-price", "prices.csv", "text/csv", "\n\n")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "EmptyFile", decodeJSON(t, rec)["error"])
	})
}

func TestUnknownResource(t *testing.T) {
	router := newTestRouter(t, storetest.New(), 1024)

	rec := postFile(t, router, "/upload/regions", "regions.csv", "text/csv", "a\n1\n")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/upload/regions/fields", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFieldsDescribesSchema(t *testing.T) {
	router := newTestRouter(t, storetest.New(), 1024)

	req := httptest.NewRequest(http.MethodGet, "/upload/cmc-ncmc-price/fields", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "cmc-ncmc-price", body["resource"])
	assert.Equal(t, []interface{}{"partNumber", "cmcPrice", "ncmcPrice"}, body["required"])
	fields := body["fields"].([]interface{})
	first := fields[0].(map[string]interface{})
	assert.Equal(t, "partNumber", first["name"])
	assert.Equal(t, true, first["required"])
	assert.Contains(t, first["synonyms"], "part no")
}

func TestResourcesListed(t *testing.T) {
	router := newTestRouter(t, storetest.New(), 1024)
	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"cmc-ncmc-price", "reported-problems"}, decodeJSON(t, rec)["resources"])
}

func TestHealth(t *testing.T) {
	fake := storetest.New()
	router := newTestRouter(t, fake, 1024)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	fake.PingErr = errors.New("server selection timeout")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decodeJSON(t, rec)["error"], "server selection timeout")
}

func TestWrongMethod(t *testing.T) {
	router := newTestRouter(t, storetest.New(), 1024)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cmcncmcprice/upload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUploadServiceNeedsStore(t *testing.T) {
	svc := NewUploadService(nil, nil)
	assert.Error(t, svc.Start())
	assert.NoError(t, svc.Stop())
}

func TestUploadServiceStartStop(t *testing.T) {
	t.Setenv("UPLOAD_ADDR", "")
	svc := NewUploadService(map[string]interface{}{"addr": "127.0.0.1:0"}, storetest.New())
	require.NoError(t, svc.Start())
	us := svc.(*UploadService)

	resp, err := http.Get("http://" + us.addr.String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, svc.Stop())
}
