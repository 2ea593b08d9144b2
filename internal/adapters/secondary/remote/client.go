package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/metrics"
)

// LoginPath is where the presentation layer is sent after the remote rejects the session.
const LoginPath = "/login"

const maxResponseBytes = 10 << 20

// Client is the authenticated REST transport to the remote civic-issue service.
// It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     ports.TokenSource
	navigator  ports.Navigator
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Config holds the transport settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a transport. The token is read from tokens on every call.
func NewClient(cfg Config, tokens ports.TokenSource, navigator ports.Navigator, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tokens:    tokens,
		navigator: navigator,
		logger:    logger.With("component", "remote_client"),
		metrics:   m,
	}
}

// Do sends one request. body, when non-nil, is JSON encoded; a successful
// response is decoded into out when out is non-nil.
//
// Failures are classified: transport-level failures (refused, DNS, timeout)
// become *apperrors.NetworkError, caller cancellation is returned as the
// context error, and HTTP statuses >= 400 become *apperrors.AppError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.tokens.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	endpoint := endpointLabel(path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(ctx, method, path, endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.transportError(ctx, method, path, endpoint, err)
	}

	duration := time.Since(start)
	c.metrics.RemoteDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	c.metrics.RemoteRequests.WithLabelValues(method, endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.DebugContext(ctx, "remote request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(ctx, token)
		return apperrors.FromStatus(resp.StatusCode, serverMessage(payload))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return apperrors.FromStatus(resp.StatusCode, serverMessage(payload))
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &apperrors.AppError{
			Err:        errors.Join(apperrors.ErrRemote, err),
			Message:    "Unexpected response from the civic-issue service",
			Code:       "REMOTE_ERROR",
			StatusCode: http.StatusBadGateway,
		}
	}
	return nil
}

// Reachable reports whether the remote answers HTTP at all.
func (c *Client) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

func (c *Client) transportError(ctx context.Context, method, path, endpoint string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		c.metrics.RemoteRequests.WithLabelValues(method, endpoint, "canceled").Inc()
		return ctxErr
	}
	c.metrics.RemoteRequests.WithLabelValues(method, endpoint, "network_error").Inc()
	c.logger.WarnContext(ctx, "remote unreachable", "method", method, "path", path, "error", err)
	return &apperrors.NetworkError{Op: method + " " + path, Err: err}
}

// handleUnauthorized clears the token the request carried. Only the call
// that actually clears it triggers the redirect, so concurrent 401s for the
// same session redirect once.
func (c *Client) handleUnauthorized(ctx context.Context, token string) {
	if !c.tokens.ClearIfCurrent(token) {
		return
	}
	c.logger.InfoContext(ctx, "session rejected by remote, redirecting to login")
	if c.navigator != nil {
		c.navigator.Redirect(LoginPath)
	}
}

func serverMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// endpointLabel collapses numeric path segments so metric cardinality stays bounded.
func endpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
