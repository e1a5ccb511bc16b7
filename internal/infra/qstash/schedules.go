package qstash

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"stashed-tasks/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type createScheduleResponse struct {
	ScheduleID string `json:"scheduleId"`
}

// CreateSchedule creates (or, with a known ScheduleID, overwrites) a provider schedule.
func (c *Client) CreateSchedule(ctx context.Context, req *domain.CreateScheduleRequest) (string, error) {
	ctx, span := c.tracer.Start(ctx, "qstash.CreateSchedule", trace.WithAttributes(
		attribute.String("qstash.destination", req.Destination),
		attribute.String("qstash.cron", req.Cron),
	))
	defer span.End()

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("Upstash-Cron", req.Cron)
	if req.Retries != nil {
		headers.Set("Upstash-Retries", strconv.Itoa(*req.Retries))
	}
	if req.ScheduleID != "" {
		headers.Set("Upstash-Schedule-Id", req.ScheduleID)
	}

	var resp createScheduleResponse
	if err := c.do(ctx, http.MethodPost, "/v2/schedules/"+req.Destination, headers, req.Body, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create schedule failed")
		return "", err
	}
	return resp.ScheduleID, nil
}

// GetSchedule fetches one provider schedule. A 404 maps to domain.ErrScheduleNotFound.
func (c *Client) GetSchedule(ctx context.Context, scheduleID string) (*domain.ProviderSchedule, error) {
	ctx, span := c.tracer.Start(ctx, "qstash.GetSchedule", trace.WithAttributes(attribute.String("qstash.schedule_id", scheduleID)))
	defer span.End()

	var s domain.ProviderSchedule
	if err := c.do(ctx, http.MethodGet, "/v2/schedules/"+url.PathEscape(scheduleID), nil, nil, &s); err != nil {
		return nil, notFound(span, err)
	}
	return &s, nil
}

// ListSchedules lists every provider schedule of the account.
func (c *Client) ListSchedules(ctx context.Context) ([]*domain.ProviderSchedule, error) {
	ctx, span := c.tracer.Start(ctx, "qstash.ListSchedules")
	defer span.End()

	var out []*domain.ProviderSchedule
	if err := c.do(ctx, http.MethodGet, "/v2/schedules", nil, nil, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list schedules failed")
		return nil, err
	}
	return out, nil
}

// DeleteSchedule removes a provider schedule. Deleting a missing schedule is not an error.
func (c *Client) DeleteSchedule(ctx context.Context, scheduleID string) error {
	return c.scheduleAction(ctx, "qstash.DeleteSchedule", http.MethodDelete, "/v2/schedules/"+url.PathEscape(scheduleID), true)
}

// PauseSchedule stops a provider schedule from firing.
func (c *Client) PauseSchedule(ctx context.Context, scheduleID string) error {
	return c.scheduleAction(ctx, "qstash.PauseSchedule", http.MethodPost, "/v2/schedules/"+url.PathEscape(scheduleID)+"/pause", false)
}

// ResumeSchedule restarts a paused provider schedule.
func (c *Client) ResumeSchedule(ctx context.Context, scheduleID string) error {
	return c.scheduleAction(ctx, "qstash.ResumeSchedule", http.MethodPost, "/v2/schedules/"+url.PathEscape(scheduleID)+"/resume", false)
}

func (c *Client) scheduleAction(ctx context.Context, spanName, method, path string, ignoreMissing bool) error {
	ctx, span := c.tracer.Start(ctx, spanName)
	defer span.End()

	err := c.do(ctx, method, path, nil, nil, nil)
	if err == nil {
		return nil
	}
	err = notFound(span, err)
	if ignoreMissing && errors.Is(err, domain.ErrScheduleNotFound) {
		return nil
	}
	return err
}

func notFound(span trace.Span, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return domain.ErrScheduleNotFound
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
