// Package brandengine is a typed HTTP client for the external
// brand-intelligence analysis engine. Analyses are asynchronous: Analyze
// enqueues a job and callers poll GetJob until a terminal status.
package brandengine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/brandintel/internal/resilience"
)

const defaultBaseURL = "http://localhost:8600"

// JobStatus values reported by the engine. They match the persisted job
// statuses one to one.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

// FormatComprehensive requests the canonical result shape explicitly on
// GetJob; older engine versions ignore the parameter and return whatever
// shape the job was produced in.
const FormatComprehensive = "comprehensive"

// Client talks to the analysis engine.
type Client interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error)
	GetJob(ctx context.Context, jobID, format string) (*JobResponse, error)
	AnalyzeModule(ctx context.Context, req AnalyzeModuleRequest) (*AnalyzeResponse, error)
	GetModuleJob(ctx context.Context, jobID string) (*ModuleJobResponse, error)
}

// AnalyzeRequest is the body for POST /analyze.
type AnalyzeRequest struct {
	URL    string         `json:"url"`
	Depth  int            `json:"depth,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// AnalyzeResponse acknowledges an enqueued job.
type AnalyzeResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// JobResponse is the poll result for GET /jobs/{id}. Result is present only
// on complete and holds one of the historical shapes the reconciler accepts.
type JobResponse struct {
	JobID  string         `json:"job_id"`
	Status string         `json:"status"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// AnalyzeModuleRequest triggers incremental re-analysis of one module.
// Passing the parent JobID lets the engine reuse collected evidence.
type AnalyzeModuleRequest struct {
	URL       string `json:"url"`
	ModuleID  string `json:"module_id"`
	PersonaID string `json:"persona_id,omitempty"`
	JobID     string `json:"job_id,omitempty"`
}

// ModuleJobResponse is the poll result for GET /modules/{id}.
type ModuleJobResponse struct {
	JobID    string            `json:"job_id"`
	ModuleID string            `json:"module_id"`
	Status   string            `json:"status"`
	Result   *ModuleJobPayload `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// ModuleJobPayload carries the section patch for a completed module job.
type ModuleJobPayload struct {
	BrandKitPatch map[string]any `json:"brand_kit_patch"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default engine base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound engine calls at rps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an engine client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	var resp AnalyzeResponse
	if err := c.do(ctx, http.MethodPost, "/analyze", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) GetJob(ctx context.Context, jobID, format string) (*JobResponse, error) {
	path := "/jobs/" + url.PathEscape(jobID)
	if format != "" {
		path += "?format=" + url.QueryEscape(format)
	}
	var resp JobResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) AnalyzeModule(ctx context.Context, req AnalyzeModuleRequest) (*AnalyzeResponse, error) {
	var resp AnalyzeResponse
	if err := c.do(ctx, http.MethodPost, "/analyze-module", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) GetModuleJob(ctx context.Context, jobID string) (*ModuleJobResponse, error) {
	var resp ModuleJobResponse
	if err := c.do(ctx, http.MethodGet, "/modules/"+url.PathEscape(jobID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "brandengine: rate limit wait")
	}

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return eris.Wrap(err, "brandengine: marshal request")
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return eris.Wrap(err, "brandengine: create request")
	}
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if resilience.IsTransient(err) {
			return resilience.NewServiceUnavailable(err, 0)
		}
		return eris.Wrap(err, "brandengine: send request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "brandengine: read response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return eris.Wrap(&resilience.NotFoundError{Kind: "engine job", ID: path}, "brandengine")
	}
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewServiceUnavailable(
			eris.Errorf("brandengine: status %d: %s", resp.StatusCode, string(raw)),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return eris.Errorf("brandengine: unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, respBody); err != nil {
		return eris.Wrap(err, "brandengine: unmarshal response")
	}
	return nil
}
