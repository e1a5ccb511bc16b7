package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDuration matches every InvalidDurationStringValidationError.
	ErrInvalidDuration = errors.New("invalid duration string")
	// ErrInvalidCron matches every InvalidCronStringValidationError.
	ErrInvalidCron = errors.New("invalid cron string")
)

// InvalidDurationStringValidationError is returned for a malformed duration string.
type InvalidDurationStringValidationError struct {
	Value  string
	Reason string
}

func (e *InvalidDurationStringValidationError) Error() string {
	return fmt.Sprintf("invalid duration string %q: %s", e.Value, e.Reason)
}

func (e *InvalidDurationStringValidationError) Is(target error) bool {
	return target == ErrInvalidDuration
}

// InvalidCronStringValidationError is returned for a malformed cron expression.
type InvalidCronStringValidationError struct {
	Value string
	Err   error
}

func (e *InvalidCronStringValidationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid cron string %q", e.Value)
	}
	return fmt.Sprintf("invalid cron string %q: %s", e.Value, e.Err)
}

func (e *InvalidCronStringValidationError) Unwrap() error { return e.Err }

func (e *InvalidCronStringValidationError) Is(target error) bool {
	return target == ErrInvalidCron
}
