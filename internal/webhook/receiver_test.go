package webhook

import (
	"context"
	"testing"

	"stashed-tasks/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedRequest(t *testing.T, body string) *Request {
	t.Helper()
	return &Request{
		Signature: sign(t, defaultSpec([]byte(body))),
		Body:      []byte(body),
		MessageID: "msg_123",
		Retried:   1,
	}
}

func TestReceiverExecutesTask(t *testing.T) {
	f := newFixture(t)

	out, err := f.receiver.Handle(context.Background(), signedRequest(t, `{"task_name":"Math adder","args":[2,3],"kwargs":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "Math adder", out.TaskName)
	assert.JSONEq(t, "5", string(out.Result))
	assert.Equal(t, 1, f.executions())

	saved := f.results.all()
	require.Len(t, saved, 1)
	assert.Equal(t, out.ResultID, saved[0].ID)
	assert.Equal(t, "msg_123", saved[0].MessageID)
	assert.Equal(t, domain.TaskStatusSuccess, saved[0].Status)
	assert.Equal(t, 1, saved[0].Retried)
	assert.JSONEq(t, "5", string(saved[0].Result))
	assert.NoError(t, saved[0].Validate())
}

func TestReceiverMatchesDirectCall(t *testing.T) {
	f := newFixture(t)

	direct, err := f.add.Call(context.Background(), 40, 2)
	require.NoError(t, err)

	out, err := f.receiver.Handle(context.Background(), signedRequest(t, `{"task_name":"Math adder","args":[40,2]}`))
	require.NoError(t, err)

	assert.JSONEq(t, "42", string(out.Result))
	assert.Equal(t, 42, direct)
}

func TestReceiverRejectsBadSignatureBeforeExecution(t *testing.T) {
	f := newFixture(t)
	body := `{"task_name":"Math adder","args":[2,3],"kwargs":{}}`

	for name, sig := range map[string]string{
		"missing": "",
		"forged": sign(t, func() tokenSpec {
			s := defaultSpec([]byte(body))
			s.key = "forged"
			return s
		}()),
		"other body": sign(t, defaultSpec([]byte(`{"task_name":"Math adder","args":[1,1]}`))),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.receiver.Handle(context.Background(), &Request{Signature: sig, Body: []byte(body)})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrSignature)
			assert.NotErrorIs(t, err, domain.ErrPayload)
			assert.NotErrorIs(t, err, domain.ErrTask)
		})
	}

	assert.Zero(t, f.executions(), "task must not run for an unauthenticated request")
	assert.Empty(t, f.results.all())
}

func TestReceiverRejectsMalformedPayload(t *testing.T) {
	f := newFixture(t)

	for name, body := range map[string]string{
		"not json":          `task_name=Math adder`,
		"empty":             ``,
		"array":             `[1,2]`,
		"null":              `null`,
		"missing task name": `{"args":[2,3]}`,
		"args not array":    `{"task_name":"Math adder","args":{"a":2}}`,
		"kwargs not object": `{"task_name":"Math adder","args":[],"kwargs":[1]}`,
		"truncated":         `{"task_name":"Math adder","args":[2,`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.receiver.Handle(context.Background(), signedRequest(t, body))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrPayload)
			assert.NotErrorIs(t, err, domain.ErrSignature)
		})
	}

	assert.Zero(t, f.executions())
}

func TestReceiverUnknownTask(t *testing.T) {
	f := newFixture(t)

	_, err := f.receiver.Handle(context.Background(), signedRequest(t, `{"task_name":"nope","args":[]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTask)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.NotErrorIs(t, err, domain.ErrSignature)
	assert.NotErrorIs(t, err, domain.ErrPayload)
	assert.Contains(t, err.Error(), "Available tasks: Math adder, failing, panicking, unencodable")
	assert.Empty(t, f.results.all())
}

func TestReceiverTaskFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"handler error", `{"task_name":"failing","args":[]}`, "division by zero"},
		{"panic", `{"task_name":"panicking","args":[]}`, "panic: kaboom"},
		{"bad arguments", `{"task_name":"Math adder","args":["x",1]}`, "failed to decode positional argument 0"},
		{"unencodable result", `{"task_name":"unencodable"}`, "not JSON encodable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.receiver.Handle(context.Background(), signedRequest(t, tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrTask)
			assert.NotErrorIs(t, err, domain.ErrTaskNotFound)
			assert.Contains(t, err.Error(), tt.message)

			saved := f.results.all()
			require.Len(t, saved, 1)
			assert.Equal(t, domain.TaskStatusExecutionError, saved[0].Status)
			assert.Contains(t, saved[0].Error, tt.message)
		})
	}
}

func TestReceiverIgnoresResultStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.results.failure = true

	out, err := f.receiver.Handle(context.Background(), signedRequest(t, `{"task_name":"Math adder","args":[1,2]}`))
	require.NoError(t, err)
	assert.JSONEq(t, "3", string(out.Result))
}

func TestReceiverWithoutResultStore(t *testing.T) {
	f := newFixture(t)
	r := NewReceiver(newTestVerifier(t), f.app.Registry(), nil, discardLogger())

	out, err := r.Handle(context.Background(), signedRequest(t, `{"task_name":"Math adder","args":[1,2]}`))
	require.NoError(t, err)
	assert.JSONEq(t, "3", string(out.Result))
}
