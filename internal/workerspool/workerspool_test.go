package workerspool

import (
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_Run(t *testing.T) {
	for _, parallelism := range []int{0, 1, 3, -1} {
		pool := New(parallelism)
		var running, maxRunning, count atomic.Int32
		done := make([]bool, 50)
		pool.Run(len(done), func(idx int) {
			current := running.Add(1)
			for {
				prev := maxRunning.Load()
				if current <= prev || maxRunning.CompareAndSwap(prev, current) {
					break
				}
			}
			runtime.Gosched()
			done[idx] = true
			count.Add(1)
			running.Add(-1)
		})
		require.Equal(t, int32(len(done)), count.Load(), "parallelism=%d", parallelism)
		for idx, ok := range done {
			require.True(t, ok, "task %d not run with parallelism=%d", idx, parallelism)
		}
		if parallelism > 0 {
			assert.LessOrEqual(t, int(maxRunning.Load()), parallelism)
		}
		if parallelism == 0 {
			assert.Equal(t, int32(1), maxRunning.Load())
		}
	}
}

func TestPool_Flags(t *testing.T) {
	assert.False(t, New(0).IsEnabled())
	assert.True(t, New(-1).IsUnlimited())
	assert.True(t, NewDefault().IsEnabled())
	assert.Equal(t, runtime.NumCPU(), NewDefault().MaxParallelism())
}
