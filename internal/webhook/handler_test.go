package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postCallback(t *testing.T, h http.Handler, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/qstash/webhook/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	req.Header.Set(MessageIDHeader, "msg_abc")
	req.Header.Set(RetriedHeader, "2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandlerStatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		signed    bool
		status    int
		errorType string
	}{
		{"success", `{"task_name":"Math adder","args":[2,3],"kwargs":{}}`, true, http.StatusOK, ""},
		{"unsigned", `{"task_name":"Math adder","args":[2,3],"kwargs":{}}`, false, http.StatusForbidden, "signature"},
		{"malformed", `{"task_name":`, true, http.StatusBadRequest, "payload"},
		{"unknown task", `{"task_name":"nope","args":[]}`, true, http.StatusInternalServerError, "task"},
		{"task failure", `{"task_name":"failing","args":[]}`, true, http.StatusInternalServerError, "task"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			h := NewHandler(f.receiver, 0, discardLogger())

			sig := ""
			if tt.signed {
				sig = sign(t, defaultSpec([]byte(tt.body)))
			}
			rec := postCallback(t, h, tt.body, sig)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			out := decodeBody(t, rec)
			if tt.errorType == "" {
				assert.Equal(t, "success", out["status"])
				assert.Equal(t, "Math adder", out["task_name"])
				assert.EqualValues(t, 5, out["result"])
				return
			}
			assert.Equal(t, "error", out["status"])
			assert.Equal(t, tt.errorType, out["error_type"])
		})
	}
}

func TestHandlerHidesSignatureDetails(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.receiver, 0, discardLogger())

	rec := postCallback(t, h, `{"task_name":"Math adder","args":[2,3]}`, "not-a-jwt")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid signature", decodeBody(t, rec)["error"])
	assert.Zero(t, f.executions())
}

func TestHandlerPassesProviderHeaders(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.receiver, 0, discardLogger())
	body := `{"task_name":"Math adder","args":[2,3]}`

	rec := postCallback(t, h, body, sign(t, defaultSpec([]byte(body))))
	require.Equal(t, http.StatusOK, rec.Code)

	saved := f.results.all()
	require.Len(t, saved, 1)
	assert.Equal(t, "msg_abc", saved[0].MessageID)
	assert.Equal(t, 2, saved[0].Retried)
}

func TestHandlerRejectsOtherMethods(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.receiver, 0, discardLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qstash/webhook/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestHandlerBodyLimit(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.receiver, 16, discardLogger())
	body := `{"task_name":"Math adder","args":[2,3]}`

	rec := postCallback(t, h, body, sign(t, defaultSpec([]byte(body))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "payload", decodeBody(t, rec)["error_type"])
	assert.Zero(t, f.executions())
}
