package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_StartsAtGivenValue(t *testing.T) {
	assert.Equal(t, int64(0), NewClock().Current())
	assert.Equal(t, int64(100), NewClockAt(100).Current())
}

func TestClock_NextIncrementsFirst(t *testing.T) {
	c := NewClockAt(7)

	assert.Equal(t, int64(8), c.Next())
	assert.Equal(t, int64(9), c.Next())
	assert.Equal(t, int64(9), c.Current())
}

func TestClock_ConcurrentNextIsUnique(t *testing.T) {
	c := NewClock()
	const goroutines, perGoroutine = 50, 100

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				seq := c.Next()
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, int64(goroutines*perGoroutine), c.Current())
}

func TestClock_StampsOperations(t *testing.T) {
	store := newFixture(t, 1).store
	e := New(store, store, WithClock(NewClockAt(41)))

	op := e.Begin(context.Background())
	require.NotEmpty(t, op.Token)
	assert.Equal(t, int64(42), op.Seq)
}
