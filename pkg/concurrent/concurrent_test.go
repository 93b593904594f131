package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/enemyai/pkg/sequence"
)

func TestConcurrentVisitsAll(t *testing.T) {
	var sum atomic.Int64
	err := Concurrent(sequence.From([]int64{1, 2, 3, 4}), func(v int64) error {
		sum.Add(v)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum.Load())
}

func TestForEachLimitBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 32)
	err := ForEachLimit(context.Background(), sequence.From(items), 2, func(_ context.Context, _ int) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		inFlight.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestForEachLimitReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEachLimit(context.Background(), sequence.From([]int{1, 2, 3}), 1, func(_ context.Context, v int) error {
		if v == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestMapLimitPreservesOrder(t *testing.T) {
	out, err := MapLimit(context.Background(), []int{3, 1, 2}, 0, func(_ context.Context, v int) (int, error) {
		return v * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{30, 10, 20}, out)

	_, err = MapLimit(context.Background(), []int{1}, 1, func(context.Context, int) (int, error) {
		return 0, errors.New("bad")
	})
	assert.Error(t, err)
}
