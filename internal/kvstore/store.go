// Package kvstore defines the record store contract shared by all backends:
// a flat key/value namespace with exact-key reads, last-write-wins upserts and
// prefix-range scans. No multi-key transaction is provided; each key's last
// write wins independently.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned when a requested key does not exist.
	ErrKeyNotFound = errors.New("key not found")
	// ErrUnavailable wraps any backend fault so callers can treat the store
	// as a single opaque dependency.
	ErrUnavailable = errors.New("record store unavailable")
)

// Store is the primary interface for reading and writing records.
// Values are JSON documents; entries are never deleted by this service.
type Store interface {
	// Get retrieves the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (json.RawMessage, error)
	// Put upserts val (marshaled to JSON) under key, replacing any prior value.
	Put(ctx context.Context, key string, val any) error
	// ScanPrefix returns the values of all entries whose key starts with
	// prefix. Order is unspecified; callers sort if they need an order.
	ScanPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error)
}

// faulted tags a backend error with ErrUnavailable while keeping the detail.
func faulted(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
