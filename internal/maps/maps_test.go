package maps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	m := FromKeys([]string{"b", "a", "b"})
	assert.Len(t, m, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, Keys(m))
	assert.Equal(t, []string{"a", "b"}, SortedKeys(m, func(a, b string) bool { return a < b }))
}
