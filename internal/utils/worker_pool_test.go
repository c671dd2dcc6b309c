package utils

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_RunsAllJobs(t *testing.T) {
	pool := NewWorkerPool(4, 8)

	var ran atomic.Int32
	for i := 0; i < 100; i++ {
		assert.True(t, pool.Submit(func() { ran.Add(1) }))
	}
	pool.Shutdown()

	assert.Equal(t, int32(100), ran.Load())
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	pool.Shutdown()
	pool.Shutdown()

	assert.False(t, pool.Submit(func() {}))
}

func TestWorkerPool_NestedSubmitOnSingleWorker(t *testing.T) {
	pool := NewWorkerPool(1, 1)

	var ran atomic.Int32
	done := make(chan struct{})
	pool.Submit(func() {
		for i := 0; i < 50; i++ {
			assert.True(t, pool.Submit(func() { ran.Add(1) }))
		}
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submit from a worker blocked")
	}
	pool.Shutdown()
	assert.Equal(t, int32(50), ran.Load())
}

func TestSliceToSet(t *testing.T) {
	set := SliceToSet([]string{"a", "b", "a"})
	assert.Len(t, set, 2)
	assert.Contains(t, set, "b")
}
