package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResetPoolClearsValues(t *testing.T) {
	p := NewResetPool(
		func() []int { return make([]int, 0, 4) },
		func(s []int) []int { return s[:0] },
	)
	s := p.Get()
	s = append(s, 1, 2, 3)
	p.Put(s)

	got := p.Get()
	assert.Empty(t, got)
}
