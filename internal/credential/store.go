package credential

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Read for an unknown identity.
var ErrNotFound = errors.New("credential not found")

// Store provides durable, record-per-identity persistence with read/write
// primitives only. Selection, normalization and refresh policy live in the
// Manager.
type Store interface {
	// List returns the stored identities in a stable order.
	List(ctx context.Context) ([]string, error)
	// Read returns the raw stored bytes for one identity.
	Read(ctx context.Context, identity string) ([]byte, error)
	// Write persists raw bytes under an identity, replacing any previous
	// value.
	Write(ctx context.Context, identity string, data []byte) error
}
