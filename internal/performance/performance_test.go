package performance

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BenchmarkWorkerPool benchmarks the worker pool performance.
func BenchmarkWorkerPool(b *testing.B) {
	pool := NewWorkerPool(4)
	pool.Start()
	defer pool.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var wg sync.WaitGroup
		wg.Add(1)
		pool.Submit(func() {
			time.Sleep(time.Microsecond)
			wg.Done()
		})
		wg.Wait()
	}
}

// BenchmarkForEach benchmarks fan-out over a running pool.
func BenchmarkForEach(b *testing.B) {
	pool := NewWorkerPool(8)
	pool.Start()
	defer pool.Stop()

	out := make([]int, 1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ForEach(context.Background(), pool, len(out), func(j int) {
			out[j] = j * j
		})
	}
}

func TestWorkerPool(t *testing.T) {
	pool := NewWorkerPool(4)
	assert.False(t, pool.Submit(func() {}), "submit before start is rejected")

	pool.Start()
	defer pool.Stop()

	var counter atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		for !pool.Submit(func() {
			counter.Add(1)
			wg.Done()
		}) {
			time.Sleep(time.Millisecond)
		}
	}
	wg.Wait()
	assert.Equal(t, int64(50), counter.Load())

	stats := pool.Stats()
	assert.Equal(t, 4, stats.Workers)
	assert.True(t, stats.Running)
	assert.Equal(t, uint64(50), stats.TasksTotal)
}

func TestWorkerPoolStop(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	pool.Stop()
	pool.Stop()

	assert.False(t, pool.Stats().Running)
	assert.False(t, pool.Submit(func() {}))
}

func TestForEach(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Start()
	defer pool.Stop()

	out := make([]int, 500)
	require.NoError(t, ForEach(context.Background(), pool, len(out), func(i int) {
		out[i] = i * 2
	}))
	for i, v := range out {
		assert.Equal(t, i*2, v)
	}
}

func TestForEachWithoutPool(t *testing.T) {
	out := make([]int, 10)
	require.NoError(t, ForEach(context.Background(), nil, len(out), func(i int) {
		out[i] = i + 1
	}))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, out)
}

func TestForEachCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := ForEach(ctx, nil, 10, func(int) { calls++ })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestBatchProcessor(t *testing.T) {
	var batches [][]int
	b := NewBatchProcessor(3, func(items []int) error {
		batches = append(batches, items)
		return nil
	})

	for i := 1; i <= 7; i++ {
		require.NoError(t, b.Add(i))
	}
	require.NoError(t, b.Flush())
	require.NoError(t, b.Flush())

	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, batches)
}
