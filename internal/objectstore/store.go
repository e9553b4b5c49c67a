package objectstore

import (
	"context"
	"io"
)

// Store abstracts the durable upload area where submitted audio and
// its companion artifacts live. The returned reference is what gets
// persisted in the evaluation record as audio_path: a filesystem path
// for the local backend, an object key for MinIO.
type Store interface {
	// Save writes the data under the given name and returns the
	// stored reference.
	Save(ctx context.Context, name string, data io.Reader) (string, error)

	// GetBytes reads back a previously stored artifact by reference.
	GetBytes(ctx context.Context, ref string) ([]byte, error)
}
