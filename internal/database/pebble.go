package database

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// NewPebbleDB opens the embedded store rooted at dir. A nil fs uses the
// operating system's filesystem.
func NewPebbleDB(dir string, fs vfs.FS) (*pebble.DB, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}

	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble store at %s: %w", dir, err)
	}
	return db, nil
}
