// internal/domain/errors.go
package domain

import (
	"errors"
	"net/http"
)

var (
	// ErrSignature matches every webhook error caused by an untrusted or malformed sender.
	ErrSignature = errors.New("invalid or missing signature")
	// ErrPayload matches every webhook error caused by a malformed body.
	ErrPayload = errors.New("invalid payload")
	// ErrTask matches every webhook error raised while resolving or running a task.
	ErrTask = errors.New("task error")

	// ErrTaskNotFound is returned when a task name is not registered.
	ErrTaskNotFound = errors.New("task not found")
	// ErrDuplicateTask is returned when a task name is registered twice.
	ErrDuplicateTask = errors.New("task already registered")
)

// WebhookErrorKind tags a WebhookError with its place in the error taxonomy.
type WebhookErrorKind int

const (
	KindSignature WebhookErrorKind = iota + 1
	KindPayload
	KindTask
)

func (k WebhookErrorKind) String() string {
	switch k {
	case KindSignature:
		return "signature"
	case KindPayload:
		return "payload"
	case KindTask:
		return "task"
	default:
		return "unknown"
	}
}

// WebhookError is the single error type returned by the webhook receiver.
type WebhookError struct {
	Kind     WebhookErrorKind
	TaskName string
	Err      error
}

// SignatureError wraps err as a signature failure.
func SignatureError(err error) *WebhookError {
	return &WebhookError{Kind: KindSignature, Err: err}
}

// PayloadError wraps err as a malformed payload failure.
func PayloadError(err error) *WebhookError {
	return &WebhookError{Kind: KindPayload, Err: err}
}

// TaskError wraps err as a failure of the named task.
func TaskError(taskName string, err error) *WebhookError {
	return &WebhookError{Kind: KindTask, TaskName: taskName, Err: err}
}

func (e *WebhookError) Error() string {
	prefix := e.Kind.String() + " error"
	if e.TaskName != "" {
		prefix += " (task " + e.TaskName + ")"
	}
	if e.Err == nil {
		return prefix
	}
	return prefix + ": " + e.Err.Error()
}

func (e *WebhookError) Unwrap() error { return e.Err }

// Is lets errors.Is match the kind sentinels.
func (e *WebhookError) Is(target error) bool {
	switch target {
	case ErrSignature:
		return e.Kind == KindSignature
	case ErrPayload:
		return e.Kind == KindPayload
	case ErrTask:
		return e.Kind == KindTask
	}
	return false
}

// StatusCode is the HTTP status the webhook answers with for this error.
func (e *WebhookError) StatusCode() int {
	switch e.Kind {
	case KindSignature:
		return http.StatusForbidden
	case KindPayload:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
