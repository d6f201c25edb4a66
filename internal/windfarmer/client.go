package windfarmer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

const (
	DefaultBaseURL = "https://windfarmer.dnv.com/api/v2/"

	endpointStatus     = "Status"
	endpointAEP        = "AnnualEnergyProduction"
	endpointAEPAsync   = "AnnualEnergyProductionAsync"
	defaultHTTPTimeout = 10 * time.Minute
)

// Client talks to the WindFarmer web API. It is immutable after New and safe for
// concurrent use; build one per credential set.
type Client struct {
	baseURL   string
	accessKey string
	http      *http.Client
	logger    *slog.Logger

	poll   PollPolicy
	clock  Clock
	random func() float64

	syncTurbineLimit int
	cache            *ResultCache
}

type Options struct {
	BaseURL   string
	AccessKey string

	// HTTPClient is shared by every call so concurrent jobs reuse one connection pool.
	HTTPClient *http.Client
	Logger     *slog.Logger

	Poll  PollPolicy
	Clock Clock
	// Random returns values in [0,1) and drives poll jitter.
	Random func() float64

	// Calculate uses the synchronous endpoint at or below this turbine count (0 = always async).
	SyncTurbineLimit int

	// Cache, when set, short-circuits Calculate for payloads it has already seen.
	Cache *ResultCache
}

// New creates a client. If BaseURL is empty, defaults to DefaultBaseURL.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.AccessKey) == "" {
		return nil, model.NewConfigurationError("access_key", "WindFarmer access key is required")
	}
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, model.NewConfigurationError("base_url", err.Error())
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	c := &Client{
		baseURL:          base,
		accessKey:        opts.AccessKey,
		http:             opts.HTTPClient,
		logger:           opts.Logger,
		poll:             opts.Poll,
		clock:            opts.Clock,
		random:           opts.Random,
		syncTurbineLimit: opts.SyncTurbineLimit,
		cache:            opts.Cache,
	}
	if c.http == nil {
		c.http = NewHTTPClient(defaultHTTPTimeout)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With(slog.String("module", "windfarmer"))
	if c.poll == (PollPolicy{}) {
		c.poll = DefaultPollPolicy()
	}
	if c.clock == nil {
		c.clock = realClock{}
	}
	if c.random == nil {
		c.random = rand.Float64
	}
	return c, nil
}

// NewHTTPClient returns the pooled client shared by concurrent calculations. A zero timeout
// falls back to the ten minute default, long enough for synchronous calculations.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 16
	return &http.Client{Timeout: timeout, Transport: t}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) PollPolicy() PollPolicy { return c.poll }

// StatusInfo is the body of GET Status.
type StatusInfo struct {
	Message           string `json:"message"`
	APIVersion        string `json:"windFarmerServicesAPIVersion"`
	CalculationLibVer string `json:"calculationLibraryVersion"`
}

// Status checks the access key and reports the API and calculation library versions.
func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	resp, body, err := c.do(ctx, http.MethodGet, endpointStatus, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.submissionError(endpointStatus, resp, body)
	}
	var info StatusInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	c.logger.Info("windfarmer API reachable",
		slog.String("message", info.Message),
		slog.String("apiVersion", info.APIVersion),
		slog.String("calculationVersion", info.CalculationLibVer))
	return &info, nil
}

// CalculateSync runs a single blocking AEP calculation. Suitable for small farms only.
// On a non-200 status the structured detail is logged and a nil result is returned along
// with the *SubmissionError, so batch callers can skip the item and carry on.
func (c *Client) CalculateSync(ctx context.Context, payload any) (*model.AepResultSet, error) {
	resp, body, err := c.do(ctx, http.MethodPost, endpointAEP, nil, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.submissionError(endpointAEP, resp, body)
	}
	var result model.AepResultSet
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode AEP response: %w", err)
	}
	return &result, nil
}

// Submit queues an asynchronous calculation. Anything but 202 Accepted is a *SubmissionError.
func (c *Client) Submit(ctx context.Context, payload any) (*Job, error) {
	resp, body, err := c.do(ctx, http.MethodPost, endpointAEPAsync, nil, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusAccepted {
		return nil, c.submissionError(endpointAEPAsync, resp, body)
	}
	var accepted struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(body, &accepted); err != nil {
		return nil, fmt.Errorf("failed to decode job submission response: %w", err)
	}
	if accepted.JobID == "" {
		return nil, fmt.Errorf("job submission response has no jobId")
	}
	c.logger.Info("job submitted", slog.String("jobId", accepted.JobID))
	job := newJob(accepted.JobID, c.clock.Now())
	notify(ctx, job)
	return job, nil
}

// Poll is one status response of an asynchronous job.
type Poll struct {
	Status   model.JobStatus
	Progress string
	Message  string
	Results  *model.AepResultSet
}

type jobStatusResponse struct {
	Status       string          `json:"status"`
	Progress     *float64        `json:"progress"`
	StageMessage string          `json:"stageMessage"`
	Message      string          `json:"message"`
	Results      json.RawMessage `json:"results"`
}

// JobStatus queries one asynchronous job once.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*Poll, error) {
	q := url.Values{}
	q.Set("jobId", jobID)
	resp, body, err := c.do(ctx, http.MethodGet, endpointAEPAsync, q, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.submissionError(endpointAEPAsync, resp, body)
	}
	var raw jobStatusResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode job status response: %w", err)
	}

	p := &Poll{
		Status:   model.JobStatus(strings.ToUpper(raw.Status)),
		Progress: progressMessage(raw.Progress, raw.StageMessage, raw.Message),
		Message:  raw.Message,
	}
	if len(raw.Results) > 0 && string(raw.Results) != "null" {
		var rs model.AepResultSet
		if err := json.Unmarshal(raw.Results, &rs); err != nil {
			return nil, fmt.Errorf("failed to decode job results: %w", err)
		}
		p.Results = &rs
	}
	return p, nil
}

// progressMessage joins "<n>%", the stage message and the message with " - ", skipping absent parts.
func progressMessage(progress *float64, stage, message string) string {
	parts := make([]string, 0, 3)
	if progress != nil {
		parts = append(parts, fmt.Sprintf("%s%%", trimFloat(*progress)))
	}
	if stage != "" {
		parts = append(parts, stage)
	}
	if message != "" {
		parts = append(parts, message)
	}
	return strings.Join(parts, " - ")
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, payload any) (*http.Response, []byte, error) {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessKey))
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.Debug("request failed", slog.String("method", method), slog.String("endpoint", endpoint),
			slog.Duration("duration", duration), slog.Any("error", err))
		return nil, nil, &TransportError{Op: fmt.Sprintf("%s %s", method, endpoint), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &TransportError{Op: fmt.Sprintf("read %s response", endpoint), Err: err}
	}

	c.logger.Debug("response",
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration))
	return resp, body, nil
}

func (c *Client) submissionError(endpoint string, resp *http.Response, body []byte) *SubmissionError {
	detail, fieldErrors := parseProblem(body)
	e := &SubmissionError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Detail:     detail,
		Errors:     fieldErrors,
	}
	attrs := []any{slog.String("endpoint", endpoint), slog.Int("status", resp.StatusCode)}
	if detail != "" {
		attrs = append(attrs, slog.String("detail", detail))
	}
	if len(fieldErrors) > 0 {
		attrs = append(attrs, slog.Any("errors", fieldErrors))
	}
	c.logger.Warn("bad request", attrs...)
	return e
}
