package sequence

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromFilterCollect(t *testing.T) {
	it := From([]int{1, 2, 3, 4, 5}).Filter(func(v int) bool { return v%2 == 1 })
	assert.Equal(t, []int{1, 3, 5}, it.Collect())
	assert.Equal(t, 3, it.Count())
}

func TestFromMap(t *testing.T) {
	got := FromMap(map[string]int{"a": 1, "b": 2}).Collect()
	sort.Ints(got)
	assert.Equal(t, []int{1, 2}, got)
}

func TestPullStopsEarly(t *testing.T) {
	next, stop := From([]string{"x", "y", "z"}).Pull()
	defer stop()

	v, ok := next()
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	v, ok = next()
	assert.True(t, ok)
	assert.Equal(t, "y", v)
}
