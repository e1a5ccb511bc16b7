package qstash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stashed-tasks/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBaseURL is the hosted queue API.
const DefaultBaseURL = "https://qstash.upstash.io"

// APIError is returned for a non-2xx response from the queue API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("qstash api returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the queue's REST API. It never retries; redelivery and
// backoff are the provider's job.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
}

var (
	_ domain.Publisher        = (*Client)(nil)
	_ domain.ScheduleProvider = (*Client)(nil)
)

// NewClient creates a client. An empty baseURL selects DefaultBaseURL; any
// other value is meant for local development and logs a warning.
func NewClient(token, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	logger = logger.With("component", "qstash-client")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	} else {
		logger.Warn("using a custom QStash URL; this configuration should only be used in development", "url", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		tracer:  otel.Tracer("stashed-tasks-qstash"),
	}
}

// PublishJSON publishes req.Body to req.Destination.
func (c *Client) PublishJSON(ctx context.Context, req *domain.PublishRequest) (*domain.PublishResponse, error) {
	ctx, span := c.tracer.Start(ctx, "qstash.PublishJSON", trace.WithAttributes(
		attribute.String("qstash.destination", req.Destination),
		attribute.String("qstash.delay", req.Delay),
		attribute.Bool("qstash.deduplicated", req.Deduplicated),
	))
	defer span.End()

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	if req.Delay != "" {
		headers.Set("Upstash-Delay", req.Delay)
	}
	if req.Deduplicated {
		headers.Set("Upstash-Content-Based-Deduplication", "true")
	}
	if req.Retries != nil {
		headers.Set("Upstash-Retries", strconv.Itoa(*req.Retries))
	}

	var resp domain.PublishResponse
	if err := c.do(ctx, http.MethodPost, "/v2/publish/"+req.Destination, headers, req.Body, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("qstash.message_id", resp.MessageID))
	return &resp, nil
}

// do performs a single API request and decodes a JSON response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, headers http.Header, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create qstash request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("qstash request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read qstash response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("qstash request rejected", "method", method, "path", redactPath(path), "status", resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode qstash response: %w", err)
	}
	return nil
}

// redactPath drops query strings from destinations before logging.
func redactPath(p string) string {
	if u, err := url.Parse(p); err == nil {
		u.RawQuery = ""
		return u.String()
	}
	return p
}
