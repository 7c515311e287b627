package threadpool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrgroupPoolCoversAllIndices(t *testing.T) {
	pool := NewErrgroupPool(4)
	n := 103
	var touched int64
	seen := make([]int32, n)
	err := pool.Run(context.Background(), n, func(p Partition) {
		for i := p.Start; i < p.Stop; i++ {
			atomic.AddInt64(&touched, 1)
			atomic.AddInt32(&seen[i], 1)
		}
	})
	require.NoError(t, err)
	assert.EqualValues(t, n, touched)
	for i, c := range seen {
		assert.Equalf(t, int32(1), c, "index %d touched %d times", i, c)
	}
}

func TestErrgroupPoolEmptyRange(t *testing.T) {
	pool := NewErrgroupPool(4)
	err := pool.Run(context.Background(), 0, func(Partition) {
		t.Fatal("fn should not be called for empty range")
	})
	require.NoError(t, err)
}
