// Package repository persists engine state.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"conscience-engine/internal/engine"
	"conscience-engine/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
)

// Tx is one user's unit of work. Nothing written through it is visible to
// other callers until the surrounding InTx returns nil.
type Tx interface {
	// Load returns the user's state, or ErrUserNotFound.
	Load(ctx context.Context) (*engine.State, error)
	// Save writes the whole state. Badge ids not yet stored are recorded
	// as earned at now.
	Save(ctx context.Context, st *engine.State, now time.Time) error
	// AddJournalEntry stores a journal entry. The profile must exist.
	AddJournalEntry(ctx context.Context, entry model.JournalEntry) error
}

// SQLSTATE codes that are safe to retry.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// isRetryable reports whether err is a transient serialization conflict.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}
