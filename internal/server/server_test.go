// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Liang-Chaoyue/PaperFinder/internal/job"
	"github.com/Liang-Chaoyue/PaperFinder/internal/provider"
	"github.com/Liang-Chaoyue/PaperFinder/internal/queue"
	"github.com/Liang-Chaoyue/PaperFinder/internal/store"
	"github.com/Liang-Chaoyue/PaperFinder/pkg/types"
)

// stubAdapter returns a fixed record set for every unit.
type stubAdapter struct {
	records []types.CanonicalRecord
	calls   int32
}

func (a *stubAdapter) Name() string             { return "stub" }
func (a *stubAdapter) LenientAffiliation() bool { return true }

func (a *stubAdapter) Search(ctx context.Context, variant string, hints types.Hints) ([]types.CanonicalRecord, error) {
	atomic.AddInt32(&a.calls, 1)
	return a.records, nil
}

func testServer(t *testing.T, records []types.CanonicalRecord) (*Server, *store.Store) {
	t.Helper()

	st, err := store.Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := types.AppConfig{
		Search: types.SearchConfig{
			MaxResults:  20,
			MaxVariants: 8,
			Providers:   []string{"stub"},
		},
		Queue: types.QueueConfig{Workers: 1, MaxAttempts: 2, RetryBaseDelay: time.Millisecond},
	}

	reg := provider.Registry{"stub": &stubAdapter{records: records}}
	runner := job.NewRunner(st, reg, cfg.Search, io.Discard)
	q := queue.New(cfg.Queue, func(ctx context.Context, p queue.Params) error {
		return runner.Run(ctx, p.JobID, p.Identity, p.Hints)
	}, func(ctx context.Context, jobID string, cause error) {
		st.SetStatus(ctx, jobID, types.JobFailed)
	}, io.Discard)
	q.Start()
	t.Cleanup(q.Stop)

	return New(st, runner, q, cfg), st
}

func sampleRecords() []types.CanonicalRecord {
	return []types.CanonicalRecord{
		{
			Title:    "Sparse Retrieval at Scale",
			Authors:  []string{"San Zhang", "Wei Wang"},
			Year:     2021,
			Month:    3,
			Venue:    "SIGIR",
			DOI:      "10.1234/srs",
			URL:      "https://doi.org/10.1234/srs",
			Provider: "stub",
		},
	}
}

func do(s *Server, method, path string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, vs := range header {
		req.Header[k] = vs
	}
	w := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(w, req)
	return w
}

func doJSON(s *Server, method, path string, payload any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(payload)
	return do(s, method, path, bytes.NewReader(raw), http.Header{"Content-Type": []string{"application/json"}})
}

func TestHealthz(t *testing.T) {
	s, _ := testServer(t, nil)
	w := do(s, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestSubmitJobSync(t *testing.T) {
	s, _ := testServer(t, sampleRecords())

	w := doJSON(s, http.MethodPost, "/api/jobs", map[string]any{
		"name": "Zhang San",
		"sync": true,
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var j types.SearchJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &j))
	assert.Len(t, j.JobID, 16)
	assert.Equal(t, types.JobDone, j.Status)
	assert.Equal(t, 1.0, j.Progress)
	assert.Equal(t, "Zhang San", j.Hints.QueryName)
	assert.Equal(t, []string{"stub"}, j.Hints.Providers)
	assert.Equal(t, 20, j.Hints.MaxResults)
	assert.Equal(t, 1, j.PaperTotal, "the stub record deduplicates to one paper")
}

func TestSubmitJobValidation(t *testing.T) {
	s, _ := testServer(t, nil)

	w := doJSON(s, http.MethodPost, "/api/jobs", map[string]any{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")

	w = doJSON(s, http.MethodPost, "/api/jobs", map[string]any{
		"name":       "Zhang San",
		"start_date": "2022-01-01",
		"end_date":   "2020-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "start_date is after end_date")

	w = do(s, http.MethodPost, "/api/jobs", strings.NewReader("{not json"),
		http.Header{"Content-Type": []string{"application/json"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitJobAsync(t *testing.T) {
	s, st := testServer(t, sampleRecords())

	w := doJSON(s, http.MethodPost, "/api/jobs", map[string]any{"name": "Zhang San"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var j types.SearchJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &j))

	// Drain the queue so the deferred job completes.
	s.queue.Stop()

	got, err := st.GetJob(context.Background(), j.JobID)
	require.NoError(t, err)
	assert.Equal(t, types.JobDone, got.Status)
	assert.Equal(t, 1.0, got.Progress)
}

func TestGetJobWithPapers(t *testing.T) {
	s, _ := testServer(t, sampleRecords())

	w := doJSON(s, http.MethodPost, "/api/jobs", map[string]any{"name": "Zhang San", "sync": true})
	require.Equal(t, http.StatusAccepted, w.Code)
	var j types.SearchJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &j))

	w = do(s, http.MethodGet, "/api/jobs/"+j.JobID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Job    types.SearchJob     `json:"job"`
		Papers []types.StoredPaper `json:"papers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, j.JobID, resp.Job.JobID)
	require.Len(t, resp.Papers, 1)
	assert.Equal(t, "Sparse Retrieval at Scale", resp.Papers[0].Title)
	assert.Equal(t, types.StatePending, resp.Papers[0].State)

	w = do(s, http.MethodGet, "/api/jobs/ffffffffffffffff", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobProgress(t *testing.T) {
	s, _ := testServer(t, sampleRecords())

	w := doJSON(s, http.MethodPost, "/api/jobs", map[string]any{"name": "Zhang San", "sync": true})
	require.Equal(t, http.StatusAccepted, w.Code)
	var j types.SearchJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &j))

	w = do(s, http.MethodGet, "/api/jobs/"+j.JobID+"/progress", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var prog struct {
		JobID    string  `json:"job_id"`
		Status   string  `json:"status"`
		Progress float64 `json:"progress"`
		Percent  int     `json:"percent"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prog))
	assert.Equal(t, j.JobID, prog.JobID)
	assert.Equal(t, "done", prog.Status)
	assert.Equal(t, 1.0, prog.Progress)
	assert.Equal(t, 100, prog.Percent)

	w = do(s, http.MethodGet, "/api/jobs/ffffffffffffffff/progress", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListJobs(t *testing.T) {
	s, _ := testServer(t, sampleRecords())

	for _, name := range []string{"Zhang San", "Li Si"} {
		w := doJSON(s, http.MethodPost, "/api/jobs", map[string]any{"name": name, "sync": true})
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	w := do(s, http.MethodGet, "/api/jobs", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Jobs []types.SearchJob `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Jobs, 2)
}

func TestMarkPaper(t *testing.T) {
	s, st := testServer(t, sampleRecords())

	w := doJSON(s, http.MethodPost, "/api/jobs", map[string]any{"name": "Zhang San", "sync": true})
	require.Equal(t, http.StatusAccepted, w.Code)

	papers, err := st.ListPapers(context.Background(), store.PaperFilter{})
	require.NoError(t, err)
	require.Len(t, papers, 1)
	id := papers[0].ID

	w = doJSON(s, http.MethodPost, fmt.Sprintf("/api/papers/%d/state", id), map[string]any{"state": " Confirmed "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := st.GetPaper(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.StateConfirmed, got.State)

	w = doJSON(s, http.MethodPost, fmt.Sprintf("/api/papers/%d/state", id), map[string]any{"state": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(s, http.MethodPost, "/api/papers/notanumber/state", map[string]any{"state": "rejected"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid paper id")
}

func TestListPapersFilters(t *testing.T) {
	s, _ := testServer(t, sampleRecords())

	w := doJSON(s, http.MethodPost, "/api/jobs", map[string]any{"name": "Zhang San", "sync": true})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Papers []types.StoredPaper `json:"papers"`
	}

	w = do(s, http.MethodGet, "/api/papers?provider=stub&year_from=2020&year_to=2022", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Papers, 1)

	w = do(s, http.MethodGet, "/api/papers?provider=crossref", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp.Papers = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Papers)
}

func TestExportCSV(t *testing.T) {
	s, _ := testServer(t, sampleRecords())

	w := doJSON(s, http.MethodPost, "/api/jobs", map[string]any{"name": "Zhang San", "sync": true})
	require.Equal(t, http.StatusAccepted, w.Code)
	var j types.SearchJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &j))

	w = do(s, http.MethodGet, "/api/export.csv?job_id="+j.JobID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), j.JobID+".csv")

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Sparse Retrieval at Scale", rows[1][0])
}

func TestSubmitBatch(t *testing.T) {
	s, st := testServer(t, sampleRecords())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("names_text", "Zhang San, , Tsinghua University\nLi Si\n"))
	require.NoError(t, mw.WriteField("default_affiliation", "Peking University"))
	require.NoError(t, mw.WriteField("providers", "stub"))
	require.NoError(t, mw.WriteField("sync", "true"))
	require.NoError(t, mw.Close())

	w := do(s, http.MethodPost, "/api/jobs/batch", &buf,
		http.Header{"Content-Type": []string{mw.FormDataContentType()}})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp struct {
		JobIDs []string `json:"job_ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.JobIDs, 2)

	// The row affiliation wins over the default; the default fills gaps.
	j, err := st.GetJob(context.Background(), resp.JobIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "Tsinghua University", j.Hints.AffiliationKeyword)
	j, err = st.GetJob(context.Background(), resp.JobIDs[1])
	require.NoError(t, err)
	assert.Equal(t, "Peking University", j.Hints.AffiliationKeyword)
}

func TestSubmitBatchFileUpload(t *testing.T) {
	s, _ := testServer(t, sampleRecords())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("names_file", "roster.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("name,affiliation\nZhang San,Tsinghua University\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("sync", "true"))
	require.NoError(t, mw.Close())

	w := do(s, http.MethodPost, "/api/jobs/batch", &buf,
		http.Header{"Content-Type": []string{mw.FormDataContentType()}})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp struct {
		JobIDs []string `json:"job_ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.JobIDs, 1)
}

func TestSubmitBatchEmpty(t *testing.T) {
	s, _ := testServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	w := do(s, http.MethodPost, "/api/jobs/batch", &buf,
		http.Header{"Content-Type": []string{mw.FormDataContentType()}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no roster rows")
}

func TestNewJobID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewJobID()
		require.Len(t, id, 16)
		assert.NotContains(t, id, "-")
		assert.False(t, seen[id], "job ids must not repeat")
		seen[id] = true
	}
}
