// Package tokenstore persists one opaque credential record per provider.
// Each provider owns the shape of its record; the store only moves bytes.
package tokenstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no record exists for the provider.
var ErrNotFound = errors.New("tokenstore: no credential record")

// Store is the persistence port for provider credential records.
type Store interface {
	// Save replaces the record for the given provider wholesale.
	Save(ctx context.Context, provider string, record []byte) error
	// Load returns the last saved record, or ErrNotFound.
	Load(ctx context.Context, provider string) ([]byte, error)
}
