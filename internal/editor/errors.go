package editor

import (
	"errors"
	"fmt"
)

// InvariantError reports a broken store invariant.
//
// Invariant errors indicate a defect in the store or one of its
// collaborators. They are never the result of a rejected action: policy
// failures are silent no-ops.
type InvariantError struct {
	// Code identifies the invariant.
	Code InvariantCode

	// Message is a human-readable description.
	Message string

	// ClientID is the block the violation was detected on, if any.
	ClientID string
}

// InvariantCode categorizes invariant violations.
type InvariantCode string

const (
	// ErrCodeDanglingReference: an order or parent entry names a block with
	// no record.
	ErrCodeDanglingReference InvariantCode = "E400"

	// ErrCodeMissingParent: an order list holds a child without a parent entry.
	ErrCodeMissingParent InvariantCode = "E401"

	// ErrCodeTreeMiss: the tree cache has no node for a live block.
	ErrCodeTreeMiss InvariantCode = "E402"

	// ErrCodeNotifyOverflow: observers kept dispatching during notification.
	ErrCodeNotifyOverflow InvariantCode = "E403"

	// ErrCodeParentMismatch: a child's parent entry disagrees with the order
	// list it appears in.
	ErrCodeParentMismatch InvariantCode = "E404"

	// ErrCodeDuplicateChild: a client ID appears more than once in one
	// order list.
	ErrCodeDuplicateChild InvariantCode = "E405"
)

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.ClientID != "" {
		return fmt.Sprintf("%s: %s (client_id=%s)", e.Code, e.Message, e.ClientID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvariantError reports whether err wraps an *InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// violate reports an invariant violation: a panic when invariant checks are
// enabled, an error log otherwise.
func (s *Store) violate(code InvariantCode, clientID, format string, args ...any) {
	err := &InvariantError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		ClientID: clientID,
	}
	if s.checkInvariants {
		panic(err)
	}
	s.logger.Error("store invariant violated",
		"code", string(err.Code),
		"client_id", clientID,
		"error", err.Message,
	)
}
