// Package api is the HTTP client for the remote anomaly-detection service.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/service"
)

// Endpoint paths.
const (
	PathAnalysisActivity = "/api/user-analysis-activity"
	PathDashboardStats   = "/api/dashboard-stats"
	PathAlertRead        = "/api/alerts/%s/read"
	PathUserAnalyses     = "/api/user-analyses"
	PathActivityLogs     = "/api/user-activity-logs"
	PathSendAnomalyEmail = "/api/send-anomaly-email"
	PathLiveData         = "/binance/live-data"
	PathMarketData       = "/binance/market-data"
	PathTestnetSimulate  = "/binance/testnet-simulate"
	PathTestnetHistory   = "/binance/testnet-history"
	PathUpload           = "/upload"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second
	// SessionCookie is the cookie carrying the authenticated session.
	SessionCookie = "session"

	maxResponseBytes = 16 << 20
)

var _ service.AnalysisAPI = (*Client)(nil)

// Config holds connection settings for the analysis service.
type Config struct {
	BaseURL string
	Session string
	Timeout time.Duration
}

// Client talks to the analysis service.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    *url.URL
	session    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRootCAs makes the default transport trust pool, for a service behind
// a self-signed certificate. It has no effect after WithHTTPClient.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(c *Client) {
		if pool == nil {
			return
		}
		if tr, ok := c.httpClient.Transport.(*http.Transport); ok {
			tr.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the service at cfg.BaseURL.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("%w: api base url is required", common.ErrMissingConfig)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: api base url: %w", common.ErrInvalidConfig, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: api base url must be http or https, got %q", common.ErrInvalidConfig, cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: base,
		session: cfg.Session,
		logger:  slog.Default(),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// envelope is the status part shared by every JSON response.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e envelope) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: c.session})
	}
	return req, nil
}

// transportError classifies a failed round trip. Cancellation is returned
// as is; anything else is a network failure the next tick may recover from.
func transportError(ctx context.Context, method, path string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s %s: %w", method, path, ctxErr)
	}
	return &common.RetryableError{
		Err:       fmt.Errorf("%s %s: %w: %w", method, path, common.ErrUnavailable, err),
		Retryable: true,
	}
}

// do sends a JSON request and decodes the response into out. A nil out
// only checks the envelope.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(ctx, method, path, err)
	}

	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"latency", time.Since(start))

	return decodeResponse(method, path, resp.StatusCode, raw, out)
}

func decodeResponse(method, path string, status int, raw []byte, out any) error {
	var env envelope
	hasJSON := len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &env) == nil

	if status < 200 || status > 299 {
		apiErr := &APIError{Method: method, Path: path, Status: status}
		if hasJSON {
			apiErr.Message = env.message()
		}
		return apiErr
	}

	if !hasJSON {
		if out == nil {
			return nil
		}
		return fmt.Errorf("%s %s: %w: response is not JSON", method, path, common.ErrAPIFailure)
	}

	if env.Success != nil && !*env.Success {
		return &APIError{Method: method, Path: path, Status: status, Message: env.message()}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: failed to parse response: %w", method, path, err)
	}
	return nil
}

// AnalysisActivity returns per-day analysis and anomaly counts.
func (c *Client) AnalysisActivity(ctx context.Context) (model.ActivityChart, error) {
	var resp struct {
		ChartData model.ActivityChart `json:"chart_data"`
	}
	if err := c.do(ctx, http.MethodGet, PathAnalysisActivity, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ChartData == nil {
		resp.ChartData = model.ActivityChart{}
	}
	return resp.ChartData, nil
}

// DashboardStats returns the user's analysis totals and recent activity.
func (c *Client) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	var resp struct {
		Stats model.DashboardStats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, PathDashboardStats, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

// MarkAlertRead marks a server-side alert as read.
func (c *Client) MarkAlertRead(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: alert id is required", common.ErrInvalidConfig)
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf(PathAlertRead, url.PathEscape(id)), nil, nil)
}

// ClearAnalyses deletes every analysis of the current user.
func (c *Client) ClearAnalyses(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, PathUserAnalyses, nil, nil)
}

// ClearActivityLogs deletes the current user's activity log.
func (c *Client) ClearActivityLogs(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, PathActivityLogs, nil, nil)
}

// LiveData fetches the latest trades and their analysis.
func (c *Client) LiveData(ctx context.Context) (*model.LiveSnapshot, error) {
	var resp struct {
		Trades     model.Batch        `json:"trades"`
		Data       model.LiveAnalysis `json:"data"`
		AnalysisID int                `json:"analysis_id"`
	}
	if err := c.do(ctx, http.MethodGet, PathLiveData, nil, &resp); err != nil {
		return nil, err
	}
	return &model.LiveSnapshot{
		Trades:     resp.Trades,
		Analysis:   resp.Data,
		AnalysisID: resp.AnalysisID,
	}, nil
}

// MarketData fetches the ticker and hourly candles.
func (c *Client) MarketData(ctx context.Context) (*model.MarketData, error) {
	var resp model.MarketData
	if err := c.do(ctx, http.MethodGet, PathMarketData, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendAnomalyEmail asks the server to email the user about an anomaly.
func (c *Client) SendAnomalyEmail(ctx context.Context, count int, details string) error {
	body := map[string]any{
		"anomaly_count": count,
		"details":       details,
	}
	return c.do(ctx, http.MethodPost, PathSendAnomalyEmail, body, nil)
}

// SimulateTestnet runs a simulation with cfg.
func (c *Client) SimulateTestnet(ctx context.Context, cfg model.SimulationConfig) (*model.SimulationResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var resp struct {
		Demo model.Batch             `json:"demo"`
		Data model.SimulationSummary `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, PathTestnetSimulate, cfg, &resp); err != nil {
		return nil, err
	}
	return &model.SimulationResult{Demo: resp.Demo, Summary: resp.Data}, nil
}

// TestnetHistory returns previous simulation runs, newest first.
func (c *Client) TestnetHistory(ctx context.Context) (*model.SimulationHistory, error) {
	var resp struct {
		History []model.SimulationRun `json:"history"`
		Stats   model.SimulationStats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, PathTestnetHistory, nil, &resp); err != nil {
		return nil, err
	}
	return &model.SimulationHistory{Runs: resp.History, Stats: resp.Stats}, nil
}

// ClearTestnetHistory deletes all simulation runs.
func (c *Client) ClearTestnetHistory(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, PathTestnetHistory, nil, nil)
}

// IsAPIError reports whether err carries a server response.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
