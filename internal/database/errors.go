package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Failure modes surfaced to callers. All are recoverable: the state core
// turns them into user-facing messages, never process faults.
var (
	// ErrNotFound indicates the target record does not exist in storage
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable indicates storage could not be reached or was busy
	ErrUnavailable = errors.New("storage unavailable")
	// ErrConflict indicates a write violated a storage constraint
	ErrConflict = errors.New("storage conflict")
)

// mapError converts driver-level errors into the package's sentinel errors
// while keeping the original error in the chain.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "busy"):
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	case strings.Contains(msg, "constraint"):
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
