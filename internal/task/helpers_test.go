package task

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"stashed-tasks/internal/domain"

	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	requests []*domain.PublishRequest
	err      error
}

func (p *fakePublisher) PublishJSON(_ context.Context, req *domain.PublishRequest) (*domain.PublishResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &domain.PublishResponse{MessageID: "test-id-123"}, nil
}

func (p *fakePublisher) calls() []*domain.PublishRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.PublishRequest(nil), p.requests...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(pub domain.Publisher) *App {
	return NewApp(NewRegistry(), pub, func() string { return "https://example.com/hooks/" }, discardLogger())
}

func addInts(_ context.Context, args *Arguments) (any, error) {
	var a, b int
	if err := args.Arg(0, &a); err != nil {
		return nil, err
	}
	if err := args.Arg(1, &b); err != nil {
		return nil, err
	}
	return a + b, nil
}

func multiplyInts(_ context.Context, args *Arguments) (any, error) {
	var a, b int
	if err := args.Arg(0, &a); err != nil {
		return nil, err
	}
	if err := args.Arg(1, &b); err != nil {
		return nil, err
	}
	return a * b, nil
}

func decodePayload(t *testing.T, body []byte) domain.Payload {
	t.Helper()
	var p domain.Payload
	require.NoError(t, json.Unmarshal(body, &p))
	return p
}
