package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"stashed-tasks/internal/domain"
)

// DefaultMaxBodyBytes bounds the size of a callback body.
const DefaultMaxBodyBytes int64 = 1 << 20

type successResponse struct {
	Status string `json:"status"`
	*Outcome
}

type errorResponse struct {
	Status    string `json:"status"`
	ErrorType string `json:"error_type"`
	Error     string `json:"error"`
	TaskName  string `json:"task_name,omitempty"`
}

// Handler serves the webhook endpoint over HTTP.
type Handler struct {
	receiver     *Receiver
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewHandler creates a Handler. maxBodyBytes <= 0 selects DefaultMaxBodyBytes.
func NewHandler(receiver *Receiver, maxBodyBytes int64, logger *slog.Logger) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		receiver:     receiver,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With("component", "webhook-handler"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.respondError(w, domain.PayloadError(err))
		return
	}

	retried, _ := strconv.Atoi(r.Header.Get(RetriedHeader))
	out, err := h.receiver.Handle(r.Context(), &Request{
		Signature: r.Header.Get(SignatureHeader),
		Body:      body,
		MessageID: r.Header.Get(MessageIDHeader),
		Retried:   retried,
	})
	if err != nil {
		var werr *domain.WebhookError
		if !errors.As(err, &werr) {
			werr = domain.TaskError("", err)
		}
		h.respondError(w, werr)
		return
	}

	h.respondJSON(w, http.StatusOK, successResponse{Status: "success", Outcome: out})
}

func (h *Handler) respondError(w http.ResponseWriter, werr *domain.WebhookError) {
	resp := errorResponse{
		Status:    "error",
		ErrorType: werr.Kind.String(),
		TaskName:  werr.TaskName,
	}
	switch werr.Kind {
	case domain.KindSignature:
		// the sender is untrusted; do not explain why verification failed
		resp.Error = "invalid signature"
	default:
		resp.Error = werr.Err.Error()
	}
	h.respondJSON(w, werr.StatusCode(), resp)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}
