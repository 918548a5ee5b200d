// Package layering composes per-scope key/value maps into effective values.
package layering

// Chain is an ordered sequence of scopes from strongest to weakest.
type Chain[S comparable] struct {
	ordered []S
}

// NewChain keeps the first occurrence of every scope and drops zero values,
// preserving the caller's order.
func NewChain[S comparable](scopes ...S) Chain[S] {
	var zero S
	filtered := make([]S, 0, len(scopes))
	seen := make(map[S]struct{}, len(scopes))
	for _, scope := range scopes {
		if scope == zero {
			continue
		}
		if _, exists := seen[scope]; exists {
			continue
		}
		seen[scope] = struct{}{}
		filtered = append(filtered, scope)
	}
	return Chain[S]{ordered: filtered}
}

// Ordered returns the layering sequence from strongest (index 0) to weakest.
func (c Chain[S]) Ordered() []S {
	out := make([]S, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of scopes in the chain.
func (c Chain[S]) Len() int {
	return len(c.ordered)
}

// Strongest returns the first scope in the chain (zero value if empty).
func (c Chain[S]) Strongest() S {
	var zero S
	if len(c.ordered) == 0 {
		return zero
	}
	return c.ordered[0]
}

// Weakest returns the final scope in the chain (zero value if empty).
func (c Chain[S]) Weakest() S {
	var zero S
	if len(c.ordered) == 0 {
		return zero
	}
	return c.ordered[len(c.ordered)-1]
}
