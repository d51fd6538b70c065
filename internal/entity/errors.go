package entity

import (
	"errors"
	"fmt"

	"github.com/roach88/telemetryd/internal/event"
)

// PayloadErrorCode categorizes payload failures.
type PayloadErrorCode string

const (
	// ErrCodeMissingField indicates a required payload field was absent.
	ErrCodeMissingField PayloadErrorCode = "MISSING_FIELD"

	// ErrCodeMalformedField indicates a numeric field did not parse.
	ErrCodeMalformedField PayloadErrorCode = "MALFORMED_FIELD"
)

// PayloadError reports an event whose payload could not be folded into
// state. The event's sequence number is still consumed.
type PayloadError struct {
	Code     PayloadErrorCode
	EntityID string
	Seq      int64
	Kind     event.Kind
	Field    string
	Value    string
	Err      error
}

// Error implements the error interface.
func (e *PayloadError) Error() string {
	msg := fmt.Sprintf("%s: %s#%d %s field %q", e.Code, e.EntityID, e.Seq, e.Kind, e.Field)
	if e.Code == ErrCodeMalformedField {
		msg += fmt.Sprintf(" = %q", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying parse error, if any.
func (e *PayloadError) Unwrap() error {
	return e.Err
}

// IsPayloadError returns true if err is or wraps a *PayloadError.
func IsPayloadError(err error) bool {
	var pe *PayloadError
	return errors.As(err, &pe)
}
