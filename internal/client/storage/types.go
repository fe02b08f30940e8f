// Package storage persists the access/refresh credential pair between runs
// of the client.
package storage

import (
	"errors"

	"github.com/atinyakov/QuizDesk/internal/models"
)

// ErrHalfPair is returned when asked to persist only one of the two tokens.
var ErrHalfPair = errors.New("storage: credentials must hold both tokens")

// TokenStore is a durable key-value home for the credential pair.
type TokenStore interface {
	// Load returns the stored pair, or empty credentials if none is stored.
	Load() (models.Credentials, error)
	// Save replaces the stored pair. Both tokens must be present.
	Save(models.Credentials) error
	// Clear removes both tokens.
	Clear() error
}
