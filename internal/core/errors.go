package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedMessage is returned when a message lacks the fields needed for classification
	ErrMalformedMessage = errors.New("malformed message")

	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrTransientNetwork = errors.New("transient network failure")
	ErrAuthRevoked      = errors.New("authorization revoked")
	ErrNotFound         = errors.New("message not found")
)

// BoundaryErrorKind classifies a failure reported by the mail service
type BoundaryErrorKind int

const (
	KindQuotaExceeded BoundaryErrorKind = iota + 1
	KindTransientNetwork
	KindAuthRevoked
	KindNotFound
)

func (k BoundaryErrorKind) String() string {
	switch k {
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindTransientNetwork:
		return "transient_network"
	case KindAuthRevoked:
		return "auth_revoked"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

func (k BoundaryErrorKind) sentinel() error {
	switch k {
	case KindQuotaExceeded:
		return ErrQuotaExceeded
	case KindTransientNetwork:
		return ErrTransientNetwork
	case KindAuthRevoked:
		return ErrAuthRevoked
	case KindNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// BoundaryError is a typed failure surfaced by the mail-service boundary
type BoundaryError struct {
	Kind BoundaryErrorKind
	Op   string
	Err  error
}

// NewBoundaryError creates a boundary error for an operation
func NewBoundaryError(kind BoundaryErrorKind, op string, err error) *BoundaryError {
	return &BoundaryError{Kind: kind, Op: op, Err: err}
}

func (e *BoundaryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *BoundaryError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind
func (e *BoundaryError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// IsRetryable reports whether err should be retried with backoff
func IsRetryable(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrTransientNetwork)
}

// IsFatal reports whether err must halt the scan
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthRevoked)
}
