package store

import (
	"errors"
	"iter"
)

var (
	// ErrNoSpace indicates the store cannot take another entry.
	ErrNoSpace = errors.New("store: no space for entry")
	// ErrRejected indicates the store refused the key for the given scope.
	ErrRejected = errors.New("store: key rejected")
)

// Scope tags a bucket of the keyspace.
type Scope = uint8

// Entry is one stored (scope, key, value) triple.
type Entry struct {
	Scope Scope
	Key   string
	Value string
}

// Store maps (scope, key) pairs to values.
type Store interface {
	Lookup(scope Scope, key string) (string, bool)
	// Assign inserts or overwrites one entry. On error the store is
	// unchanged.
	Assign(scope Scope, key, value string) error
	// All yields every entry exactly once, keeping insertion order within
	// a scope. Entries of different scopes may interleave; MemoryStore
	// yields them grouped by scope.
	All() iter.Seq[Entry]
	Len(scope Scope) int
}
