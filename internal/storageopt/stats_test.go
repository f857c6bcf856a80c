package storageopt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestCounter(t *testing.T) {
	var c RequestCounter

	s := c.Snapshot()
	assert.Equal(t, Snapshot{}, s)
	assert.Zero(t, s.HitRate())
	assert.Zero(t, s.Misses())

	c.Record(true)
	c.Record(false)
	c.IncRequest()
	c.IncHit()

	s = c.Snapshot()
	assert.Equal(t, uint64(3), s.Requests)
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses())
	assert.InDelta(t, 2.0/3.0, s.HitRate(), 1e-9)
}

func TestRequestCounterConcurrent(t *testing.T) {
	var c RequestCounter
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(hit bool) {
			defer wg.Done()
			for range 1000 {
				c.Record(hit)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	s := c.Snapshot()
	assert.Equal(t, uint64(8000), s.Requests)
	assert.Equal(t, uint64(4000), s.Hits)
	assert.InDelta(t, 0.5, s.HitRate(), 1e-9)
}

func TestSnapshotMissesNeverUnderflow(t *testing.T) {
	assert.Zero(t, Snapshot{Requests: 1, Hits: 2}.Misses())
}

func TestEvictionCounter(t *testing.T) {
	var e EvictionCounter

	e.IncTick()
	e.IncTick()
	e.AddEvicted(5)
	e.AddEvicted(0)
	e.AddEvicted(-3)
	e.IncFailure()

	assert.Equal(t, uint64(2), e.Ticks())
	assert.Equal(t, uint64(5), e.Evicted())
	assert.Equal(t, uint64(1), e.Failures())
}
