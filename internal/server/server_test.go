package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-esg/esia-review/internal/archetype"
	"github.com/atlas-esg/esia-review/internal/config"
	"github.com/atlas-esg/esia-review/internal/consolidate"
	"github.com/atlas-esg/esia-review/internal/extract"
	"github.com/atlas-esg/esia-review/internal/llm"
	"github.com/atlas-esg/esia-review/internal/model"
	"github.com/atlas-esg/esia-review/internal/pipeline"
	"github.com/atlas-esg/esia-review/internal/store"
)

type stubConverter struct{}

func (stubConverter) Convert(_ context.Context, path string) (*model.Document, error) {
	if strings.Contains(path, "broken") {
		return nil, eris.Errorf("convert %s: unreadable file", path)
	}
	return &model.Document{
		Path:      path,
		Format:    "pdf",
		Converter: "tabula",
		Checksum:  "deadbeef",
		Pages: []model.PageText{
			{Number: 3, Text: "The project occupies a total area of 120 ha."},
		},
	}, nil
}

type stubLLM struct{}

func (stubLLM) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{
		Text:  `{"facts":[{"name":"project area","type":"quantity","value":"120","unit":"ha","confidence":0.9}]}`,
		Model: req.Model,
		Usage: model.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}, nil
}

func (stubLLM) Provider() string { return "stub" }

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	cfg := &config.Config{
		Chunk:       config.ChunkConfig{MaxTokens: 500},
		LLM:         config.LLMConfig{FastModel: "fast", StrongModel: "strong", MaxTokens: 1024},
		Extract:     config.ExtractConfig{EscalationConfidence: 0.5},
		Consolidate: config.ConsolidateConfig{Tolerance: 0.05, MaxEvidence: 3},
		Report:      config.ReportConfig{OutDir: t.TempDir(), Formats: []string{"xlsx"}},
	}

	registry, err := archetype.Load("", "")
	require.NoError(t, err)
	consolidator, err := consolidate.New(cfg.Consolidate, registry)
	require.NoError(t, err)
	extractor := extract.New(stubLLM{}, registry, cfg.Extract, cfg.LLM)

	pipe := pipeline.New(cfg, st, stubConverter{}, extractor, consolidator)
	return New(config.ServerConfig{Port: 0}, st, pipe), st
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_SubmitJob(t *testing.T) {
	srv, st := newTestServer(t)

	body := strings.NewReader(`{"path":"/data/esia.pdf","title":"Kalu River ESIA"}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs", body))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "/data/esia.pdf")

	// The analysis runs async; wait for the job to finish.
	require.Eventually(t, func() bool {
		jobs, err := st.ListJobs(context.Background(), store.JobFilter{Status: model.JobStatusComplete})
		return err == nil && len(jobs) == 1
	}, 10*time.Second, 20*time.Millisecond)

	jobs, err := st.ListJobs(context.Background(), store.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Kalu River ESIA", jobs[0].Document.Title)
	require.NotNil(t, jobs[0].Result)
	assert.Equal(t, 1, jobs[0].Result.Facts)
}

func TestServer_SubmitJob_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing path", `{"title":"No Path"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestServer_ListJobs(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, model.DocumentRef{Path: "/data/a.pdf"})
	require.NoError(t, err)
	require.NoError(t, st.UpdateJobStatus(ctx, job.ID, model.JobStatusComplete))
	_, err = st.CreateJob(ctx, model.DocumentRef{Path: "/data/b.pdf"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs?status=complete", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "/data/a.pdf", jobs[0].Document.Path)
}

func TestServer_ListJobs_EmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestServer_GetJob(t *testing.T) {
	srv, st := newTestServer(t)

	job, err := st.CreateJob(context.Background(), model.DocumentRef{Path: "/data/a.pdf"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/missing-id", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GetFacts(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, model.DocumentRef{Path: "/data/a.pdf"})
	require.NoError(t, err)

	v := 120.0
	require.NoError(t, st.SaveFacts(ctx, job.ID, []model.ConsolidatedFact{
		{Signature: "project area", CanonicalName: "project area", Type: model.FactTypeQuantity, Value: &v, Unit: "ha"},
		{Signature: "intake flow", CanonicalName: "intake flow", Type: model.FactTypeQuantity, Conflict: true, ConflictReason: "values disagree beyond tolerance"},
	}))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID+"/facts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var facts []model.ConsolidatedFact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &facts))
	assert.Len(t, facts, 2)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID+"/facts?conflicts=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	facts = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &facts))
	require.Len(t, facts, 1)
	assert.Equal(t, "intake flow", facts[0].CanonicalName)
}
