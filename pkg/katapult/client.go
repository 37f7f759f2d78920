// Package katapult provides a client for the Katapult Pro v2 jobs API.
package katapult

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/blewis-maker/Katapult-Automation/internal/resilience"
)

// rateLimitMessage is the payload error the API returns, with a 200 status,
// when the key has exceeded its request budget.
const rateLimitMessage = "RATE LIMIT EXCEEDED"

// ErrShape is returned when a response is valid JSON but not the expected shape.
var ErrShape = eris.New("katapult: unexpected response shape")

// Client defines the Katapult Pro operations.
type Client interface {
	// ListJobs returns every job visible to the API key, in payload order.
	ListJobs(ctx context.Context) ([]Job, error)
	// GetJob returns the full detail payload for one job.
	GetJob(ctx context.Context, jobID string) (*JobData, error)
}

// Option configures the Katapult client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithLimiter sets the limiter shared by every request made by the client.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client. It has
// no effect on a client supplied with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	timeout time.Duration
	retry   resilience.RetryConfig
	limiter *rate.Limiter
}

// Ensure httpClient implements Client.
var _ Client = (*httpClient)(nil)

// NewClient creates a new Katapult Pro client. The default policy makes five
// attempts one second apart and waits five seconds after a rate-limit reply.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://katapultpro.com/api/v2",
		timeout: 60 * time.Second,
		retry:   resilience.DefaultRetryConfig(),
		limiter: rate.NewLimiter(2, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = cleanhttp.DefaultPooledClient()
		c.http.Timeout = c.timeout
	}
	return c
}

func (c *httpClient) ListJobs(ctx context.Context) ([]Job, error) {
	body, err := c.fetch(ctx, "list_jobs", "/jobs")
	if err != nil {
		return nil, eris.Wrap(err, "katapult: list jobs")
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, eris.Wrapf(ErrShape, "katapult: list jobs: expected object, got %s", doc.Type)
	}

	var jobs []Job
	doc.ForEach(func(id, details gjson.Result) bool {
		jobs = append(jobs, Job{
			ID:     id.String(),
			Name:   details.Get("name").String(),
			Status: details.Get("status").String(),
		})
		return true
	})
	return jobs, nil
}

func (c *httpClient) GetJob(ctx context.Context, jobID string) (*JobData, error) {
	if jobID == "" {
		return nil, eris.New("katapult: get job: empty job id")
	}
	body, err := c.fetch(ctx, "get_job", "/jobs/"+url.PathEscape(jobID))
	if err != nil {
		return nil, eris.Wrapf(err, "katapult: get job %s", jobID)
	}
	if !gjson.ParseBytes(body).IsObject() {
		return nil, eris.Wrapf(ErrShape, "katapult: get job %s: expected object", jobID)
	}
	return ParseJobData(body), nil
}

// fetch runs one GET through the retry loop and returns a body that is known
// to be valid JSON and not a rate-limit rejection.
func (c *httpClient) fetch(ctx context.Context, op, path string) ([]byte, error) {
	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("katapult", op)
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return c.once(ctx, path)
	})
}

func (c *httpClient) once(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "katapult: rate limiter wait")
		}
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	reqURL := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "katapult: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "katapult: request failed"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "katapult: read response body"), resp.StatusCode)
	}

	if msg, ok := payloadError(body); ok && strings.EqualFold(msg, rateLimitMessage) {
		return nil, resilience.NewRateLimitError(eris.Errorf("katapult: %s", msg))
	}

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("katapult: status %d: %s", resp.StatusCode, truncate(body, 200)),
			resp.StatusCode,
		)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, eris.Errorf("katapult: unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if !gjson.ValidBytes(body) {
		return nil, resilience.NewTransientError(eris.New("katapult: malformed JSON body"), resp.StatusCode)
	}

	if msg, ok := payloadError(body); ok {
		return nil, eris.Errorf("katapult: api error: %s", msg)
	}

	return body, nil
}

// payloadError extracts the "error" string of an error payload.
func payloadError(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	v := gjson.GetBytes(body, "error")
	if v.Type != gjson.String {
		return "", false
	}
	return v.Str, true
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
