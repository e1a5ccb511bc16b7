package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"stashed-tasks/internal/domain"
	"stashed-tasks/internal/task"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	testCurrentKey = "sig_current_key_for_tests"
	testNextKey    = "sig_next_key_for_tests"
	testURL        = "https://example.com/qstash/webhook/"
)

var fixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type tokenSpec struct {
	key     string
	method  jwt.SigningMethod
	issuer  string
	subject string
	body    []byte
	issued  time.Time
	ttl     time.Duration
}

func defaultSpec(body []byte) tokenSpec {
	return tokenSpec{
		key:     testCurrentKey,
		method:  jwt.SigningMethodHS256,
		issuer:  "Upstash",
		subject: testURL,
		body:    body,
		issued:  fixedTime,
		ttl:     5 * time.Minute,
	}
}

// sign builds a provider-style signature; the body hash keeps its base64 padding.
func sign(t *testing.T, spec tokenSpec) string {
	t.Helper()
	sum := sha256.Sum256(spec.body)
	claims := signatureClaims{
		Body: base64.URLEncoding.EncodeToString(sum[:]),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    spec.issuer,
			Subject:   spec.subject,
			IssuedAt:  jwt.NewNumericDate(spec.issued),
			NotBefore: jwt.NewNumericDate(spec.issued),
			ExpiresAt: jwt.NewNumericDate(spec.issued.Add(spec.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(spec.method, claims).SignedString([]byte(spec.key))
	require.NoError(t, err)
	return signed
}

func newTestVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier(testCurrentKey, testNextKey, testURL, WithTimeFunc(func() time.Time { return fixedTime }))
	require.NoError(t, err)
	return v
}

type fakeResults struct {
	mu      sync.Mutex
	saved   []*domain.TaskResult
	failure bool
}

func (f *fakeResults) Save(_ context.Context, r *domain.TaskResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failure {
		return errors.New("store unavailable")
	}
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeResults) ListByTaskName(context.Context, string, int, int) ([]*domain.TaskResult, error) {
	return nil, nil
}

func (f *fakeResults) Get(context.Context, string, string) (*domain.TaskResult, error) {
	return nil, domain.ErrResultNotFound
}

func (f *fakeResults) all() []*domain.TaskResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.TaskResult(nil), f.saved...)
}

// fixture wires a registry with tasks that count their executions.
type fixture struct {
	app      *task.App
	add      *task.Task
	results  *fakeResults
	receiver *Receiver

	mu    sync.Mutex
	calls int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{results: &fakeResults{}}
	f.app = task.NewApp(task.NewRegistry(), nil, func() string { return testURL }, discardLogger())

	f.add = f.app.MustTask(func(_ context.Context, args *task.Arguments) (any, error) {
		f.mu.Lock()
		f.calls++
		f.mu.Unlock()
		var a, b int
		if err := args.Arg(0, &a); err != nil {
			return nil, err
		}
		if err := args.Arg(1, &b); err != nil {
			return nil, err
		}
		return a + b, nil
	}, task.WithName("Math adder"))

	f.app.MustTask(func(context.Context, *task.Arguments) (any, error) {
		return nil, errors.New("division by zero")
	}, task.WithName("failing"))

	f.app.MustTask(func(context.Context, *task.Arguments) (any, error) {
		panic("kaboom")
	}, task.WithName("panicking"))

	f.app.MustTask(func(context.Context, *task.Arguments) (any, error) {
		return make(chan int), nil
	}, task.WithName("unencodable"))

	f.receiver = NewReceiver(newTestVerifier(t), f.app.Registry(), f.results, discardLogger())
	f.receiver.now = func() time.Time { return fixedTime }
	return f
}

func (f *fixture) executions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
