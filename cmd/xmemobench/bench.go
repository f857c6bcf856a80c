package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omeyang/xmemo/pkg/lifecycle/xrun"
	"github.com/omeyang/xmemo/pkg/observability/xlog"
	"github.com/omeyang/xmemo/pkg/storage/xcache"
)

// =============================================================================
// throughput
// =============================================================================

type throughputConfig struct {
	Workers   int
	Ops       int
	Keys      int
	ReadRatio float64
	TTL       time.Duration
	Seed      uint64
}

type throughputResult struct {
	Ops     int64
	Elapsed time.Duration
	Stats   xcache.Stats
}

func (r throughputResult) OpsPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

func (c throughputConfig) validate() error {
	switch {
	case c.Workers <= 0:
		return usagef("workers must be positive, got %d", c.Workers)
	case c.Ops <= 0:
		return usagef("ops must be positive, got %d", c.Ops)
	case c.Keys <= 0:
		return usagef("keys must be positive, got %d", c.Keys)
	case c.ReadRatio < 0 || c.ReadRatio > 1:
		return usagef("read ratio must be in [0, 1], got %v", c.ReadRatio)
	case c.TTL < 0:
		return usagef("ttl must not be negative, got %v", c.TTL)
	}
	return nil
}

// runThroughput 用 Workers 个 goroutine 共执行 Ops 次 Get/Set。
func runThroughput(ctx context.Context, c *xcache.Cache[int], cfg throughputConfig, logger xlog.Logger) (throughputResult, error) {
	if err := cfg.validate(); err != nil {
		return throughputResult{}, err
	}

	var done atomic.Int64
	g, _ := xrun.NewGroup(ctx, xrun.WithName("throughput"), xrun.WithLogger(logger))
	per := cfg.Ops / cfg.Workers
	start := time.Now()
	for w := range cfg.Workers {
		n := per
		if w == 0 {
			n += cfg.Ops % cfg.Workers
		}
		g.GoWithName(fmt.Sprintf("worker-%d", w), func(ctx context.Context) error {
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(w)))
			for i := range n {
				if i&1023 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				key := strconv.Itoa(rng.IntN(cfg.Keys))
				var err error
				switch {
				case rng.Float64() < cfg.ReadRatio:
					c.Get(key)
				case cfg.TTL > 0:
					err = c.SetWithTTL(key, i, cfg.TTL)
				default:
					err = c.Set(key, i)
				}
				if err != nil {
					return err
				}
				done.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	res := throughputResult{Ops: done.Load(), Elapsed: time.Since(start)}
	if err != nil {
		return res, err
	}
	stats, err := c.Stats()
	res.Stats = stats
	return res, err
}

// =============================================================================
// hitratio
// =============================================================================

type hitRatioConfig struct {
	Items    uint64
	Requests int
	Skew     float64
	Seed     uint64
}

func (c hitRatioConfig) validate() error {
	switch {
	case c.Items == 0:
		return usagef("items must be positive")
	case c.Requests <= 0:
		return usagef("requests must be positive, got %d", c.Requests)
	case c.Skew <= 1:
		return usagef("zipf skew must be > 1, got %v", c.Skew)
	}
	return nil
}

// runHitRatio 按 Zipf 分布回放请求，未命中时经 Resolve 填充。
func runHitRatio(ctx context.Context, c *xcache.Cache[uint64], cfg hitRatioConfig) (xcache.Stats, error) {
	if err := cfg.validate(); err != nil {
		return xcache.Stats{}, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	zipf := rand.NewZipf(rng, cfg.Skew, 1, cfg.Items-1)

	for i := range cfg.Requests {
		if i&1023 == 0 && ctx.Err() != nil {
			return xcache.Stats{}, ctx.Err()
		}
		k := zipf.Uint64()
		if _, err := c.Resolve(strconv.FormatUint(k, 10), func() (uint64, error) { return k, nil }, 0); err != nil {
			return xcache.Stats{}, err
		}
	}
	return c.Stats()
}

// =============================================================================
// stampede
// =============================================================================

type stampedeConfig struct {
	Callers int
	Delay   time.Duration
}

type stampedeResult struct {
	Computations int64
	Errors       int
	Elapsed      time.Duration
}

// runStampede 让 Callers 个调用方同时 Resolve 同一个 key，
// 一半阻塞式一半协作式，返回计算函数实际执行的次数。
func runStampede(ctx context.Context, c *xcache.Cache[int], cfg stampedeConfig) (stampedeResult, error) {
	if cfg.Callers <= 0 {
		return stampedeResult{}, usagef("callers must be positive, got %d", cfg.Callers)
	}

	var computations atomic.Int64
	compute := func(ctx context.Context) (int, error) {
		computations.Add(1)
		select {
		case <-time.After(cfg.Delay):
			return 42, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		errs   []error
		gate   = make(chan struct{})
		start  = time.Now()
		record = func(v int, err error) {
			if err == nil && v != 42 {
				err = fmt.Errorf("unexpected value %d", v)
			}
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}
	)
	for i := range cfg.Callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-gate
			if i%2 == 0 {
				record(c.Resolve("stampede", func() (int, error) { return compute(ctx) }, 0))
				return
			}
			record(c.ResolveContext(ctx, "stampede", compute, 0))
		}()
	}
	close(gate)
	wg.Wait()

	res := stampedeResult{
		Computations: computations.Load(),
		Errors:       len(errs),
		Elapsed:      time.Since(start),
	}
	return res, errors.Join(errs...)
}

// =============================================================================
// soak
// =============================================================================

type soakConfig struct {
	Duration time.Duration
	Report   time.Duration
	Workers  int
	Keys     int
	TTL      time.Duration
}

func (c soakConfig) validate() error {
	switch {
	case c.Duration < 0:
		return usagef("duration must not be negative, got %v", c.Duration)
	case c.Report <= 0:
		return usagef("report interval must be positive, got %v", c.Report)
	case c.Workers <= 0:
		return usagef("workers must be positive, got %d", c.Workers)
	case c.Keys <= 0:
		return usagef("keys must be positive, got %d", c.Keys)
	case c.TTL <= 0:
		return usagef("ttl must be positive, got %v", c.TTL)
	}
	return nil
}

// errSoakDone 达到 --duration，用于结束 xrun 组。
var errSoakDone = errors.New("soak duration reached")

// runSoak 持续以 TTL 写入并经 Resolve 读取，周期调用 report。
// 收到信号、达到 Duration 或 ctx 取消时返回；正常结束返回 nil。
// extra 为附加服务（例如配置监视）。
func runSoak(ctx context.Context, c *xcache.Cache[int], cfg soakConfig, opts []xrun.Option, report func(xcache.Stats), extra ...func(context.Context) error) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	services := []func(context.Context) error{
		xrun.Ticker(cfg.Report, false, func(context.Context) error {
			stats, err := c.Stats()
			if err != nil {
				return err
			}
			report(stats)
			return nil
		}),
	}
	for w := range cfg.Workers {
		services = append(services, func(ctx context.Context) error {
			rng := rand.New(rand.NewPCG(uint64(w), uint64(time.Now().UnixNano())))
			for ctx.Err() == nil {
				key := strconv.Itoa(rng.IntN(cfg.Keys))
				_, err := c.ResolveContext(ctx, key, func(context.Context) (int, error) {
					return len(key), nil
				}, cfg.TTL)
				if err != nil && ctx.Err() == nil {
					return err
				}
			}
			return ctx.Err()
		})
	}
	if cfg.Duration > 0 {
		services = append(services, func(ctx context.Context) error {
			select {
			case <-time.After(cfg.Duration):
				return errSoakDone
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	services = append(services, extra...)

	err := xrun.RunWithOptions(ctx, opts, services...)
	if errors.Is(err, errSoakDone) || errors.Is(err, xrun.ErrSignal) {
		stats, serr := c.Stats()
		if serr == nil {
			report(stats)
		}
		return nil
	}
	return err
}
