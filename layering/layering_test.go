package layering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewChainDropsZeroAndDuplicates(t *testing.T) {
	chain := NewChain[uint8](2, 0, 1, 2, 1)

	assert.Equal(t, []uint8{2, 1}, chain.Ordered())
	assert.Equal(t, 2, chain.Len())
	assert.Equal(t, uint8(2), chain.Strongest())
	assert.Equal(t, uint8(1), chain.Weakest())
}

func TestEmptyChain(t *testing.T) {
	chain := NewChain[uint8]()
	assert.Empty(t, chain.Ordered())
	assert.Zero(t, chain.Strongest())
	assert.Zero(t, chain.Weakest())
}

func TestOrderedReturnsCopy(t *testing.T) {
	chain := NewChain[uint8](1, 2)
	ordered := chain.Ordered()
	ordered[0] = 9
	assert.Equal(t, uint8(1), chain.Strongest())
}

func TestMergeStrongestWins(t *testing.T) {
	strong := map[string]string{"layout": "dvorak"}
	weak := map[string]string{"layout": "qwerty", "platform": "linux"}

	merged := Merge(strong, nil, weak)
	assert.Equal(t, map[string]string{"layout": "dvorak", "platform": "linux"}, merged)

	merged["layout"] = "changed"
	assert.Equal(t, "dvorak", strong["layout"], "merge must not alias inputs")
}

func TestMergeNoLayers(t *testing.T) {
	assert.Empty(t, Merge())
}

func TestFind(t *testing.T) {
	layers := []map[string]string{{"a": "1"}, {"a": "2", "b": "3"}}
	assert.Equal(t, 0, Find("a", layers...))
	assert.Equal(t, 1, Find("b", layers...))
	assert.Equal(t, -1, Find("c", layers...))
}
