package store

import (
	"fmt"
	"iter"
	"slices"
)

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCapacity caps the number of entries across all scopes. Zero or
// negative values mean unlimited.
func WithCapacity(n int) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.capacity = n
	}
}

// WithDeclaredKeys restricts scope to the listed keys. Assigning any other
// key in that scope fails with ErrRejected. Calling it twice for the same
// scope extends the declared set.
func WithDeclaredKeys(scope Scope, keys ...string) MemoryStoreOption {
	return func(s *MemoryStore) {
		declared, ok := s.declared[scope]
		if !ok {
			declared = make(map[string]struct{}, len(keys))
			s.declared[scope] = declared
		}
		for _, key := range keys {
			declared[key] = struct{}{}
		}
	}
}

// MemoryStore keeps entries in per-scope buckets that preserve insertion
// order.
type MemoryStore struct {
	buckets  map[Scope]*bucket
	declared map[Scope]map[string]struct{}
	capacity int
	size     int
}

type bucket struct {
	keys   []string
	values map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		buckets:  map[Scope]*bucket{},
		declared: map[Scope]map[string]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Lookup(scope Scope, key string) (string, bool) {
	b, ok := s.buckets[scope]
	if !ok {
		return "", false
	}
	value, ok := b.values[key]
	return value, ok
}

func (s *MemoryStore) Assign(scope Scope, key, value string) error {
	if declared, ok := s.declared[scope]; ok {
		if _, ok := declared[key]; !ok {
			return fmt.Errorf("%w: %q in scope %d", ErrRejected, key, scope)
		}
	}

	b, ok := s.buckets[scope]
	if ok {
		if _, exists := b.values[key]; exists {
			b.values[key] = value
			return nil
		}
	}

	if s.capacity > 0 && s.size >= s.capacity {
		return fmt.Errorf("%w: capacity %d reached", ErrNoSpace, s.capacity)
	}
	if !ok {
		b = &bucket{values: map[string]string{}}
		s.buckets[scope] = b
	}
	b.keys = append(b.keys, key)
	b.values[key] = value
	s.size++
	return nil
}

// All yields entries ordered by scope, then by insertion order.
func (s *MemoryStore) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		scopes := make([]Scope, 0, len(s.buckets))
		for scope := range s.buckets {
			scopes = append(scopes, scope)
		}
		slices.Sort(scopes)
		for _, scope := range scopes {
			b := s.buckets[scope]
			for _, key := range b.keys {
				if !yield(Entry{Scope: scope, Key: key, Value: b.values[key]}) {
					return
				}
			}
		}
	}
}

func (s *MemoryStore) Len(scope Scope) int {
	b, ok := s.buckets[scope]
	if !ok {
		return 0
	}
	return len(b.keys)
}

// Size returns the number of entries across all scopes.
func (s *MemoryStore) Size() int {
	return s.size
}

var _ Store = (*MemoryStore)(nil)
