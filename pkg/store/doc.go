// Package store holds the scoped (scope, key) -> value mapping that backs a
// kbopts registry.
//
// The Store contract is deliberately small:
//   - Lookup is a pure read.
//   - Assign inserts or overwrites exactly one entry; a failed Assign leaves
//     the store unchanged.
//   - All yields every entry exactly once, in insertion order within each
//     scope. MemoryStore groups entries by scope; other implementations
//     may interleave scopes. The sequence is lazy and can be ranged over
//     repeatedly.
//
// Scopes are plain uint8 tags here; range validation belongs to the caller.
// Implementations are not synchronized: the owning engine instance is the
// only writer.
package store
