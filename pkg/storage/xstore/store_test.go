package xstore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 可手动推进的时钟。
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var policies = []Policy{PolicyTinyLFU, PolicyLRU}

func newStore(t *testing.T, p Policy, capacity int, opts ...Option) Store[int] {
	t.Helper()
	s, err := New[int](capacity, append([]Option{WithPolicy(p)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewValidation(t *testing.T) {
	_, err := New[int](0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New[int](MaxCapacity + 1)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New[int](10, WithPolicy("arc"))
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(" LRU ")
	require.NoError(t, err)
	assert.Equal(t, PolicyLRU, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyTinyLFU, p)

	_, err = ParsePolicy("clockpro")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestBasicOperations(t *testing.T) {
	for _, p := range policies {
		t.Run(string(p), func(t *testing.T) {
			s := newStore(t, p, 10)
			assert.Equal(t, p, s.Policy())
			assert.Equal(t, 10, s.Capacity())

			_, ok := s.Get("a")
			assert.False(t, ok)

			require.NoError(t, s.Set("a", 1))
			v, ok := s.Get("a")
			require.True(t, ok)
			assert.Equal(t, 1, v)
			assert.Equal(t, 1, s.Len())

			require.NoError(t, s.Set("a", 2))
			v, _ = s.Get("a")
			assert.Equal(t, 2, v)
			assert.Equal(t, 1, s.Len())

			assert.True(t, s.Delete("a"))
			assert.False(t, s.Delete("a"))
			_, ok = s.Get("a")
			assert.False(t, ok)

			require.NoError(t, s.Set("b", 1))
			require.NoError(t, s.Set("c", 1))
			s.Clear()
			assert.Zero(t, s.Len())
		})
	}
}

func TestInvalidTTL(t *testing.T) {
	clock := newFakeClock()
	for _, p := range policies {
		t.Run(string(p), func(t *testing.T) {
			s := newStore(t, p, 10, WithClock(clock.Now))

			assert.ErrorIs(t, s.SetWithTTL("a", 1, 0), ErrInvalidTTL)
			assert.ErrorIs(t, s.SetWithTTL("a", 1, -time.Second), ErrInvalidTTL)
			assert.ErrorIs(t, s.SetAt("a", 1, clock.Now()), ErrInvalidTTL)
			_, ok := s.Get("a")
			assert.False(t, ok)
			assert.Zero(t, s.Len())

			require.NoError(t, s.SetAt("b", 1, time.Time{}))
			assert.Equal(t, 1, s.Len())
		})
	}
}

func TestLazyAndProactiveExpiry(t *testing.T) {
	for _, p := range policies {
		t.Run(string(p), func(t *testing.T) {
			clock := newFakeClock()
			var mu sync.Mutex
			reasons := map[string]EvictReason{}
			s := newStore(t, p, 10, WithClock(clock.Now), WithOnEvict(func(key string, r EvictReason) {
				mu.Lock()
				reasons[key] = r
				mu.Unlock()
			}))

			require.NoError(t, s.SetWithTTL("short", 1, 100*time.Millisecond))
			require.NoError(t, s.SetWithTTL("long", 2, time.Hour))
			require.NoError(t, s.Set("forever", 3))

			clock.Advance(150 * time.Millisecond)

			// 惰性过期：Get 未命中，但条目仍占位直到主动清理。
			_, ok := s.Get("short")
			assert.False(t, ok)
			assert.Equal(t, 3, s.Len())

			n, err := s.EvictExpired(clock.Now())
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			assert.Equal(t, 2, s.Len())

			n, err = s.EvictExpired(clock.Now())
			require.NoError(t, err)
			assert.Zero(t, n)

			mu.Lock()
			assert.Equal(t, ReasonExpired, reasons["short"])
			mu.Unlock()

			v, ok := s.Get("forever")
			require.True(t, ok)
			assert.Equal(t, 3, v)
		})
	}
}

func TestOverwriteChangesDeadline(t *testing.T) {
	for _, p := range policies {
		t.Run(string(p), func(t *testing.T) {
			clock := newFakeClock()
			s := newStore(t, p, 10, WithClock(clock.Now))

			require.NoError(t, s.SetWithTTL("k", 1, time.Second))
			require.NoError(t, s.Set("k", 2))
			clock.Advance(time.Minute)

			n, err := s.EvictExpired(clock.Now())
			require.NoError(t, err)
			assert.Zero(t, n)
			v, ok := s.Get("k")
			require.True(t, ok)
			assert.Equal(t, 2, v)

			require.NoError(t, s.SetWithTTL("k", 3, time.Second))
			clock.Advance(2 * time.Second)
			n, err = s.EvictExpired(clock.Now())
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestEvictBatch(t *testing.T) {
	clock := newFakeClock()
	s := newStore(t, PolicyLRU, 100, WithClock(clock.Now), WithEvictBatch(3))

	for i := range 10 {
		require.NoError(t, s.SetWithTTL(string(rune('a'+i)), i, time.Duration(i+1)*time.Millisecond))
	}
	clock.Advance(time.Second)

	n, err := s.EvictExpired(clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 7, s.Len())

	// 剩余过期条目留给后续调用。
	total := n
	for range 5 {
		n, err = s.EvictExpired(clock.Now())
		require.NoError(t, err)
		total += n
	}
	assert.Equal(t, 10, total)
	assert.Zero(t, s.Len())
}

func TestLRUCapacityEviction(t *testing.T) {
	var evicted []string
	s := newStore(t, PolicyLRU, 2, WithOnEvict(func(key string, r EvictReason) {
		assert.Equal(t, ReasonCapacity, r)
		evicted = append(evicted, key)
	}))

	require.NoError(t, s.Set("a", 1))
	require.NoError(t, s.Set("b", 2))
	_, _ = s.Get("a") // a 变为最近使用
	require.NoError(t, s.Set("c", 3))

	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("b")
	assert.False(t, ok)
}

func TestTLFUNeverExceedsCapacity(t *testing.T) {
	s := newStore(t, PolicyTinyLFU, 8)
	for i := range 200 {
		require.NoError(t, s.Set(string(rune('A'+i%64)), i))
		assert.LessOrEqual(t, s.Len(), 8)
	}
}

func TestClosedStore(t *testing.T) {
	for _, p := range policies {
		t.Run(string(p), func(t *testing.T) {
			s, err := New[int](4, WithPolicy(p))
			require.NoError(t, err)
			require.NoError(t, s.Set("a", 1))

			require.NoError(t, s.Close())
			require.NoError(t, s.Close())

			_, ok := s.Get("a")
			assert.False(t, ok)
			assert.ErrorIs(t, s.Set("a", 1), ErrClosed)
			assert.False(t, s.Delete("a"))
			assert.Zero(t, s.Len())
			_, err = s.EvictExpired(time.Now())
			assert.ErrorIs(t, err, ErrClosed)
			s.Clear()
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	for _, p := range policies {
		t.Run(string(p), func(t *testing.T) {
			s := newStore(t, p, 64)
			var wg sync.WaitGroup
			for g := range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := range 200 {
						key := string(rune('a' + (g*7+i)%26))
						switch i % 4 {
						case 0:
							_ = s.SetWithTTL(key, i, time.Millisecond)
						case 1:
							_, _ = s.Get(key)
						case 2:
							_, _ = s.EvictExpired(time.Now())
						default:
							s.Delete(key)
						}
					}
				}()
			}
			wg.Wait()
			assert.LessOrEqual(t, s.Len(), 64)
		})
	}
}

// 同一 key 上并发写入、删除和过期清理，静止后 Len 必须与 Get 的结果一致。
func TestSameKeyRaceKeepsIndexConsistent(t *testing.T) {
	for _, p := range policies {
		t.Run(string(p), func(t *testing.T) {
			s := newStore(t, p, 16)
			const key = "hot"

			for round := range 200 {
				var wg sync.WaitGroup
				for g := range 8 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						for i := range 20 {
							switch (g + i) % 4 {
							case 0:
								_ = s.Set(key, i)
							case 1:
								_ = s.SetWithTTL(key, i, time.Nanosecond)
							case 2:
								s.Delete(key)
							default:
								_, _ = s.EvictExpired(time.Now())
							}
						}
					}()
				}
				wg.Wait()

				// 清掉已过期但尚未清理的条目，剩下的只可能是无 TTL 写入。
				_, err := s.EvictExpired(time.Now().Add(time.Hour))
				require.NoError(t, err)

				n := s.Len()
				_, ok := s.Get(key)
				require.LessOrEqual(t, n, 1, "round %d", round)
				require.Equal(t, ok, n == 1, "round %d: len=%d found=%v", round, n, ok)
			}
		})
	}
}

func TestClearReportsNothing(t *testing.T) {
	for _, p := range policies {
		t.Run(string(p), func(t *testing.T) {
			var mu sync.Mutex
			reasons := map[EvictReason]int{}
			s := newStore(t, p, 16, WithOnEvict(func(_ string, r EvictReason) {
				mu.Lock()
				reasons[r]++
				mu.Unlock()
			}))

			for i := range 5 {
				require.NoError(t, s.Set(string(rune('a'+i)), i))
			}
			s.Clear()
			assert.Zero(t, s.Len())
			_, ok := s.Get("a")
			assert.False(t, ok)

			// Clear 之后仍可写入，索引与缓存同步。
			require.NoError(t, s.Set("z", 26))
			assert.Equal(t, 1, s.Len())

			mu.Lock()
			defer mu.Unlock()
			assert.Empty(t, reasons)
		})
	}
}

func TestEvictReasonString(t *testing.T) {
	assert.Equal(t, "capacity", ReasonCapacity.String())
	assert.Equal(t, "expired", ReasonExpired.String())
	assert.Equal(t, "rejected", ReasonRejected.String())
	assert.Equal(t, "unknown", EvictReason(0).String())
}
