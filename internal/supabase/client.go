// Package supabase contains hand-written HTTP clients for the hosted
// backend: the auth surface (signup, password grant, refresh, user
// resolution) and the data surface (table reads/writes and RPCs).
//
// All state lives upstream. These clients only move JSON and translate
// upstream failures into errors the service layer can map onto the
// application taxonomy.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/DukeRupert/medbank/internal/metrics"
)

const (
	// MaxRetries is the number of attempts for idempotent reads that fail
	// with a 5xx or a transport error.
	MaxRetries = 3

	// RetryBaseDelay is the backoff unit between retries (doubled each
	// attempt).
	RetryBaseDelay = 250 * time.Millisecond

	// maxErrorBody caps how much of an upstream error body is read.
	maxErrorBody = 64 * 1024
)

// Config contains shared configuration for the upstream clients.
type Config struct {
	BaseURL    string
	AnonKey    string
	ServiceKey string // optional, enables admin operations
	Timeout    time.Duration
}

// APIError is a non-2xx response from the hosted backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream %d: %s", e.Status, e.Message)
}

// ClientMessage returns the upstream message for surfacing to API callers.
func (e *APIError) ClientMessage() string {
	return e.Message
}

// client is the shared HTTP plumbing for AuthClient and DataClient.
type client struct {
	config  Config
	service string // metrics label: "auth" or "rest"
	http    *http.Client
	logger  *slog.Logger
}

func newClient(config Config, service string, logger *slog.Logger) (*client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("supabase base URL is required")
	}
	if config.AnonKey == "" {
		return nil, fmt.Errorf("supabase anon key is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &client{
		config:  config,
		service: service,
		http: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}, nil
}

// doJSON performs one JSON request against the backend. The bearer token
// is the caller's access token where row-level security should apply; an
// empty token falls back to the anon key. GET requests are retried on 5xx
// and transport errors.
func (c *client) doJSON(ctx context.Context, method, url, token string, headers map[string]string, body, dest any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	bearer := token
	if bearer == "" {
		bearer = c.config.AnonKey
	}

	build := func() (*http.Request, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("apikey", c.config.AnonKey)
		req.Header.Set("Authorization", "Bearer "+bearer)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}

	resp, err := c.execute(ctx, method, build)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(c.service, "error").Inc()
		return err
	}
	defer resp.Body.Close()

	metrics.UpstreamRequests.WithLabelValues(c.service, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// execute runs the request, retrying idempotent reads with exponential
// backoff. Writes are attempted once.
func (c *client) execute(ctx context.Context, method string, build func() (*http.Request, error)) (*http.Response, error) {
	attempts := 1
	if method == http.MethodGet || method == http.MethodHead {
		attempts = MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := RetryBaseDelay * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying upstream request", "service", c.service, "attempt", attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 && attempt < attempts-1 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			lastErr = fmt.Errorf("upstream returned %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("upstream request failed after %d attempts: %w", attempts, lastErr)
}

// decodeAPIError extracts the most useful message from an upstream error
// body. The auth and data surfaces use different shapes; all known fields
// are tried.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		apiErr.Message = resp.Status
		return apiErr
	}

	var shape struct {
		Code             any    `json:"code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorCode        string `json:"error_code"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		apiErr.Message = string(body)
		return apiErr
	}

	switch code := shape.Code.(type) {
	case string:
		apiErr.Code = code
	case float64:
		apiErr.Code = strconv.Itoa(int(code))
	}
	if apiErr.Code == "" {
		apiErr.Code = shape.ErrorCode
	}

	switch {
	case shape.Msg != "":
		apiErr.Message = shape.Msg
	case shape.Message != "":
		apiErr.Message = shape.Message
	case shape.ErrorDescription != "":
		apiErr.Message = shape.ErrorDescription
	case shape.Error != "":
		apiErr.Message = shape.Error
	default:
		apiErr.Message = resp.Status
	}
	return apiErr
}
