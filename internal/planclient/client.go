// Package planclient is the resilient HTTP client for the planning backend:
// bounded per-attempt timeouts, retry with exponential backoff, a circuit
// breaker, and a derived connection-status signal.
package planclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zentab/tabagent/api/schemas"
	"github.com/zentab/tabagent/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Typed failure categories. Callers branch on these to phrase the
// user-facing message; raw transport errors stay wrapped underneath.
var (
	// ErrUnreachable means the service could not be reached at all.
	ErrUnreachable = errors.New("cannot reach planning service")
	// ErrServerError means the service answered with a non-2xx status.
	ErrServerError = errors.New("planning service returned an error")
	// ErrTimeout means an attempt exceeded its per-attempt deadline.
	ErrTimeout = errors.New("planning request timed out")
	// ErrMalformedPlan means the response body did not parse into a plan.
	// Not retried; the plan is discarded.
	ErrMalformedPlan = errors.New("planning service returned a malformed plan")
)

// BreakerOpenError is returned without consuming a network attempt while
// the circuit breaker is open.
type BreakerOpenError struct {
	RetryIn time.Duration
}

func (e *BreakerOpenError) Error() string {
	secs := int(e.RetryIn.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("planning service temporarily unavailable, retry in %d seconds", secs)
}

// Client talks to a planning backend honoring the PlanRequest/PlanResponse
// contract. It is safe for concurrent use.
type Client struct {
	endpoint   string
	provider   string
	httpClient *http.Client
	cfg        config.ClientConfig
	breaker    *CircuitBreaker
	logger     *zap.Logger

	// healthLimiter throttles liveness probes so status polling cannot
	// hammer the backend.
	healthLimiter *rate.Limiter

	mu         sync.Mutex
	status     schemas.ConnectionStatus
	lastHealth schemas.HealthStatus
}

// New builds a client from config. The breaker starts closed and the status
// starts disconnected until the first successful call or probe.
func New(cfg config.ClientConfig, logger *zap.Logger) *Client {
	interval := cfg.HealthInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Client{
		endpoint:      cfg.Endpoint,
		provider:      cfg.Provider,
		httpClient:    &http.Client{},
		cfg:           cfg,
		breaker:       NewCircuitBreaker(cfg.FailureThreshold, cfg.Cooldown),
		logger:        logger.Named("planclient"),
		healthLimiter: rate.NewLimiter(rate.Every(interval), 1),
		status:        schemas.StatusDisconnected,
	}
}

// Breaker exposes the breaker for status display.
func (c *Client) Breaker() *CircuitBreaker { return c.breaker }

// ConnectionStatus returns the status derived from the most recent network
// attempt or health probe.
func (c *Client) ConnectionStatus() schemas.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) setStatus(s schemas.ConnectionStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// RequestPlan sends the goal plus snapshot to the backend, retrying per
// policy. The breaker is consulted once, before any network attempt.
func (c *Client) RequestPlan(ctx context.Context, req schemas.PlanRequest) (schemas.PlanResponse, error) {
	if ok, retryIn := c.breaker.Allow(); !ok {
		return schemas.PlanResponse{}, &BreakerOpenError{RetryIn: retryIn}
	}

	if c.provider != "" && req.Provider == "" {
		req.Provider = c.provider
	}

	body, err := json.Marshal(req)
	if err != nil {
		return schemas.PlanResponse{}, fmt.Errorf("failed to marshal plan request: %w", err)
	}

	c.setStatus(schemas.StatusConnecting)

	// Explicit schedule: initial delay doubled between attempts (1s, 2s,
	// 4s, ...), no jitter, capped at MaxAttempts network attempts.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.BackoffInitial
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0

	var resp schemas.PlanResponse
	attempt := 0
	operation := func() error {
		attempt++
		r, opErr := c.attempt(ctx, body)
		if opErr != nil {
			c.logger.Warn("plan attempt failed",
				zap.Int("attempt", attempt), zap.Error(opErr))
			return opErr
		}
		resp = r
		return nil
	}

	retries := uint64(0)
	if c.cfg.MaxAttempts > 1 {
		retries = uint64(c.cfg.MaxAttempts - 1)
	}
	err = backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx))

	if err != nil {
		c.breaker.RecordFailure()
		c.setStatus(schemas.StatusDisconnected)
		return schemas.PlanResponse{}, err
	}

	c.breaker.RecordSuccess()
	c.setStatus(schemas.StatusConnected)
	return resp, nil
}

// attempt performs one bounded network attempt.
func (c *Client) attempt(ctx context.Context, body []byte) (schemas.PlanResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint+"/plan", bytes.NewReader(body))
	if err != nil {
		return schemas.PlanResponse{}, backoff.Permanent(fmt.Errorf("failed to build plan request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return schemas.PlanResponse{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return schemas.PlanResponse{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return schemas.PlanResponse{}, fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return schemas.PlanResponse{}, fmt.Errorf("%w: status %d", ErrServerError, httpResp.StatusCode)
	}

	var resp schemas.PlanResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		// A body that does not parse will not parse on a retry either.
		return schemas.PlanResponse{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrMalformedPlan, err))
	}
	for _, step := range resp.Steps {
		if err := step.Validate(); err != nil {
			return schemas.PlanResponse{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrMalformedPlan, err))
		}
	}
	return resp, nil
}

// serverHealthBody is the backend's /health response shape.
type serverHealthBody struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// CheckHealth performs an independent lightweight liveness probe. It never
// touches the circuit breaker. Probes are rate limited; inside the limit
// window the previous result is returned.
func (c *Client) CheckHealth(ctx context.Context) schemas.HealthStatus {
	c.mu.Lock()
	cached := c.lastHealth
	c.mu.Unlock()
	if !c.healthLimiter.Allow() {
		return cached
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	status := schemas.HealthStatus{}
	httpReq, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		status.Error = err.Error()
	} else if httpResp, doErr := c.httpClient.Do(httpReq); doErr != nil {
		status.Error = "planning service unreachable"
		c.logger.Debug("health probe failed", zap.Error(doErr))
	} else {
		defer httpResp.Body.Close()
		var body serverHealthBody
		if httpResp.StatusCode == http.StatusOK && json.NewDecoder(httpResp.Body).Decode(&body) == nil {
			status.Healthy = true
			status.Version = body.Version
		} else {
			status.Error = fmt.Sprintf("health endpoint returned status %d", httpResp.StatusCode)
		}
	}

	if status.Healthy {
		c.setStatus(schemas.StatusConnected)
	} else {
		c.setStatus(schemas.StatusDisconnected)
	}

	c.mu.Lock()
	c.lastHealth = status
	c.mu.Unlock()
	return status
}
