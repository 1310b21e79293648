// Package dedupe tracks input content digests so that one recording copied
// under two names enters the dataset once.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records which source first carried each digest.
type Deduper interface {
	// SeenAndRecord atomically checks whether digest was recorded before.
	// If it was, it returns the first owner and true. Otherwise it records
	// owner against digest and returns owner and false.
	SeenAndRecord(ctx context.Context, digest, owner string) (string, bool)
}

// inMemoryDeduper implements Deduper with a map guarded by a mutex.
type inMemoryDeduper struct {
	mu       sync.Mutex
	owners   map[string]string // digest -> first source
	expected int
}

// NewInMemoryDeduper creates an empty deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	d.owners = make(map[string]string, d.expected)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, digest, owner string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if first, ok := d.owners[digest]; ok {
		return first, true
	}
	d.owners[digest] = owner
	return owner, false
}
