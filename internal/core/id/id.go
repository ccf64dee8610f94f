// Package id provides identifiers for movements, sales and products.
// New identifiers are UUIDv7, so they sort by creation time.
package id

import (
	"github.com/google/uuid"
)

// ID identifies every ledger record.
type ID = uuid.UUID

// New generates a time-ordered identifier.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts a string to ID.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts a string to ID and panics on error.
// Use only for fixtures and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil reports whether v is the zero identifier.
func IsNil(v ID) bool {
	return v == uuid.Nil
}
