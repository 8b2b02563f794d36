package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"shopflow/internal/core/domain"
	"shopflow/internal/infrastructure/monitoring"
	"shopflow/pkg/circuitbreaker"
	apperrors "shopflow/pkg/errors"
	"shopflow/pkg/retry"
	"shopflow/pkg/tracing"

	"go.uber.org/zap"
)

// Client is the REST client for the analytics backend. Every request runs
// under its own timeout, through the shared circuit breaker, with the retry
// policy applied to idempotent reads.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	retryCfg       retry.Config
	breaker        *circuitbreaker.CircuitBreaker
	collector      *monitoring.Collector
	log            *zap.SugaredLogger
}

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	Retry          retry.Config
	Breaker        circuitbreaker.Config
}

func DefaultClientConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		RequestTimeout: 10 * time.Second,
		Retry:          retry.DefaultConfig(),
		Breaker:        circuitbreaker.DefaultConfig(),
	}
}

func NewClient(cfg Config, collector *monitoring.Collector, log *zap.SugaredLogger) *Client {
	breaker := circuitbreaker.New(cfg.Breaker)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		log.Warnw("backend circuit breaker state change", "from", from.String(), "to", to.String())
	})

	return &Client{
		baseURL:        cfg.BaseURL,
		httpClient:     &http.Client{},
		requestTimeout: cfg.RequestTimeout,
		retryCfg:       cfg.Retry,
		breaker:        breaker,
		collector:      collector,
		log:            log,
	}
}

// RealTimeMetrics fetches the live occupancy snapshot.
func (c *Client) RealTimeMetrics(ctx context.Context) (domain.LiveMetrics, error) {
	var m domain.LiveMetrics
	err := c.getJSON(ctx, "/api/analytics/real-time", nil, &m)
	return m, err
}

// DashboardMetrics fetches the full dashboard aggregate.
func (c *Client) DashboardMetrics(ctx context.Context) (domain.LiveMetrics, error) {
	var m domain.LiveMetrics
	err := c.getJSON(ctx, "/api/analytics/dashboard", nil, &m)
	return m, err
}

// FlowData fetches the time-bucketed flow series for the given range.
func (c *Client) FlowData(ctx context.Context, start, end time.Time, period string) ([]domain.FlowPoint, error) {
	q := url.Values{}
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))
	q.Set("period", period)

	var points []domain.FlowPoint
	if err := c.getJSON(ctx, "/api/analytics/flow-data", q, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// CameraStatus fetches the camera fleet's health.
func (c *Client) CameraStatus(ctx context.Context) ([]domain.Camera, error) {
	var cams []domain.Camera
	if err := c.getJSON(ctx, "/api/camera/status", nil, &cams); err != nil {
		return nil, err
	}
	return cams, nil
}

func (c *Client) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	var out []domain.Employee
	if err := c.getJSON(ctx, "/api/employees", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	var out domain.Employee
	if err := c.getJSON(ctx, "/api/employees/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateEmployee(ctx context.Context, e *domain.Employee) (*domain.Employee, error) {
	var out domain.Employee
	if err := c.writeJSON(ctx, http.MethodPost, "/api/employees", e, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateEmployee(ctx context.Context, e *domain.Employee) (*domain.Employee, error) {
	var out domain.Employee
	path := "/api/employees/" + url.PathEscape(e.ID)
	if err := c.writeJSON(ctx, http.MethodPut, path, e, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteEmployee(ctx context.Context, id string) error {
	return c.writeJSON(ctx, http.MethodDelete, "/api/employees/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := c.getJSON(ctx, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListCameras(ctx context.Context) ([]domain.Camera, error) {
	var out []domain.Camera
	if err := c.getJSON(ctx, "/api/cameras", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PrivacySettings(ctx context.Context) (*domain.PrivacySettings, error) {
	var out domain.PrivacySettings
	if err := c.getJSON(ctx, "/api/privacy/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePrivacySettings(ctx context.Context, s *domain.PrivacySettings) error {
	return c.writeJSON(ctx, http.MethodPut, "/api/privacy/settings", s, nil)
}

// getJSON performs an idempotent GET with retry; writeJSON performs a
// mutating request without retry.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return retry.Do(ctx, c.retryCfg, func() error {
		return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
	})
}

func (c *Client) writeJSON(ctx context.Context, method, path string, body, out any) error {
	return c.doJSON(ctx, method, path, nil, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	spanCtx, span := tracing.TraceFetch(reqCtx, method, path)
	defer span.End()

	started := time.Now()
	err := c.breaker.Execute(func() error {
		return c.roundTrip(spanCtx, method, path, query, body, out)
	})
	if c.collector != nil {
		c.collector.ObserveFetch(time.Since(started))
	}
	if err != nil {
		tracing.RecordError(spanCtx, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewParseError("encoding request body", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return apperrors.NewTransportError("building request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewFetchError(fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return apperrors.NewFetchError(fmt.Sprintf("%s %s", method, path),
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewParseError(fmt.Sprintf("decoding %s response", path), err)
	}
	return nil
}
