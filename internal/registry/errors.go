package registry

import (
	"errors"
	"fmt"
)

// RejectCode categorizes rejected submissions.
type RejectCode string

const (
	// ErrCodeMissingEntity indicates the event carried no entity id.
	ErrCodeMissingEntity RejectCode = "MISSING_ENTITY_ID"

	// ErrCodeInvalidSequence indicates a sequence number below 1.
	ErrCodeInvalidSequence RejectCode = "INVALID_SEQUENCE"
)

// RejectError is returned for events that can never be sequenced.
// Stale, duplicate and early events are not rejections.
type RejectError struct {
	Code     RejectCode
	EntityID string
	Seq      int64
}

// Error implements the error interface.
func (e *RejectError) Error() string {
	switch e.Code {
	case ErrCodeMissingEntity:
		return fmt.Sprintf("%s: event #%d has no entity id", e.Code, e.Seq)
	case ErrCodeInvalidSequence:
		return fmt.Sprintf("%s: %s sequence %d must be >= 1", e.Code, e.EntityID, e.Seq)
	default:
		return fmt.Sprintf("%s: %s#%d", e.Code, e.EntityID, e.Seq)
	}
}

// IsReject returns true if err is or wraps a *RejectError.
func IsReject(err error) bool {
	var re *RejectError
	return errors.As(err, &re)
}
