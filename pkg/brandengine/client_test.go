package brandengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brandintel/internal/resilience"
)

func TestAnalyze(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req AnalyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://acme.com", req.URL)
		assert.Equal(t, 2, req.Depth)

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(AnalyzeResponse{JobID: "job-1", Status: StatusQueued, Message: "enqueued"})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	resp, err := c.Analyze(context.Background(), AnalyzeRequest{URL: "https://acme.com", Depth: 2})
	require.NoError(t, err)
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, StatusQueued, resp.Status)
}

func TestGetJob(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/job-1", r.URL.Path)
		assert.Equal(t, "comprehensive", r.URL.Query().Get("format"))
		json.NewEncoder(w).Encode(map[string]any{
			"job_id": "job-1",
			"status": StatusComplete,
			"result": map[string]any{
				"comprehensive": map[string]any{"meta": map[string]any{}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	resp, err := c.GetJob(context.Background(), "job-1", FormatComprehensive)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, resp.Status)
	assert.Contains(t, resp.Result, "comprehensive")
}

func TestGetJob_NoFormatParam(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("format"))
		json.NewEncoder(w).Encode(JobResponse{JobID: "job-1", Status: StatusProcessing})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	resp, err := c.GetJob(context.Background(), "job-1", "")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, resp.Status)
}

func TestGetJob_ServiceUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.GetJob(context.Background(), "job-1", "")
	require.Error(t, err)
	assert.True(t, resilience.IsServiceUnavailable(err))

	var se *resilience.ServiceUnavailableError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestGetJob_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such job", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.GetJob(context.Background(), "missing", "")
	require.Error(t, err)
	assert.True(t, resilience.IsNotFound(err))
	assert.False(t, resilience.IsServiceUnavailable(err))
}

func TestGetJob_ConnectionRefused(t *testing.T) {
	t.Parallel()

	// Grab a port that nothing listens on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	_, err := c.GetJob(context.Background(), "job-1", "")
	require.Error(t, err)
	assert.True(t, resilience.IsServiceUnavailable(err))
}

func TestAnalyzeModule(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze-module", r.URL.Path)

		var req AnalyzeModuleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "visual_identity", req.ModuleID)
		assert.Equal(t, "job-1", req.JobID)

		json.NewEncoder(w).Encode(AnalyzeResponse{JobID: "mod-job-1", Status: StatusQueued})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	resp, err := c.AnalyzeModule(context.Background(), AnalyzeModuleRequest{
		URL:      "https://acme.com",
		ModuleID: "visual_identity",
		JobID:    "job-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "mod-job-1", resp.JobID)
}

func TestGetModuleJob(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/modules/mod-job-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"job_id":    "mod-job-1",
			"module_id": "visual_identity",
			"status":    StatusComplete,
			"result": map[string]any{
				"brand_kit_patch": map[string]any{
					"logo_url": map[string]any{"value": "https://acme.com/logo.png", "status": "found"},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	resp, err := c.GetModuleJob(context.Background(), "mod-job-1")
	require.NoError(t, err)
	assert.Equal(t, "visual_identity", resp.ModuleID)
	require.NotNil(t, resp.Result)
	assert.Contains(t, resp.Result.BrandKitPatch, "logo_url")
}

func TestRateLimiterApplies(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(JobResponse{JobID: "job-1", Status: StatusQueued})
	}))
	defer srv.Close()

	// Burst of 1 at 100 rps: the second call must wait roughly 10ms.
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(100))
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.GetJob(context.Background(), "job-1", "")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}
