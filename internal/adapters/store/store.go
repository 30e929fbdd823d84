// Package store provides the result log and correction log backends.
package store

import (
	"errors"

	"github.com/mikey/mail-triage/internal/core"
)

// ErrNotFound is returned when no result is stored for a session and message
var ErrNotFound = errors.New("record not found")

// Store is a result log and correction log sharing one backend
type Store interface {
	core.ResultLog
	core.CorrectionLog
	// Stop ends background cleanup and releases the backend
	Stop()
}
