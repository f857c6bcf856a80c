package xexpire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xmemo/internal/storageopt"
	"github.com/omeyang/xmemo/pkg/lifecycle/xrun"
	"github.com/omeyang/xmemo/pkg/observability/xlog"
	"github.com/omeyang/xmemo/pkg/observability/xmetrics"
)

const (
	componentName  = "xexpire"
	metricEvicted  = "xmemo.expire.evicted"
	metricFailures = "xmemo.expire.failures"
)

// Evicter 是可被协调器周期清理的实例。
//
// 实现必须并发安全。动态类型必须可比较（通常为指针），协调器以其身份去重注册。
type Evicter interface {
	// EvictExpired 清理过期时间不晚于 now 的条目，返回清理数量。
	EvictExpired(now time.Time) (int, error)
}

// =============================================================================
// 状态
// =============================================================================

// State 协调器调度循环的状态。
type State int32

const (
	// StateStopped 无注册实例，调度循环未运行。
	StateStopped State = iota
	// StateRunning 至少一个实例已注册，调度循环运行中。
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Stats 协调器统计快照。
type Stats struct {
	Ticks      uint64
	Evicted    uint64
	Failures   uint64
	Registered int
	State      State
}

// =============================================================================
// Handle
// =============================================================================

// Handle 是一次注册的凭据。
type Handle struct {
	id      string
	name    string
	evicter Evicter
	coord   *Coordinator
	closed  atomic.Bool
}

// ID 返回注册令牌。
func (h *Handle) ID() string { return h.id }

// Name 返回注册时的名称。
func (h *Handle) Name() string { return h.name }

// Close 注销，幂等。
func (h *Handle) Close() error {
	h.coord.Deregister(h)
	return nil
}

// =============================================================================
// Coordinator
// =============================================================================

// Coordinator 用一个调度循环周期性清理所有已注册实例的过期条目。
//
// 状态机 Stopped → Running → Stopped：第一次注册时启动循环，
// 最后一个实例注销时停止。每一轮先在锁内拷贝注册集合，再在锁外逐个清理，
// 清理期间注册集合可以并发变化。单个实例的失败或 panic 被隔离，
// 通过日志、观测器和 WithOnTickError 回调暴露，不影响其他实例，
// 也不会注销该实例或终止循环。
//
// 进程内通常使用 [Default]；测试可用 [NewCoordinator] 创建独立实例。
type Coordinator struct {
	mu   sync.Mutex
	regs map[Evicter]*Handle
	loop *xrun.Group

	// loopTicking 调度循环正在执行的清理轮数，非零时注销不等待循环退出，
	// 避免 EvictExpired 在循环内注销自身时死锁。TickNow 不计入：
	// 它不在循环 goroutine 上运行，注销可以安全地等待循环退出。
	loopTicking atomic.Int32

	stats storageopt.EvictionCounter
	opts  *options
}

var defaultCoordinator = sync.OnceValue(func() *Coordinator {
	return NewCoordinator()
})

// Default 返回进程级协调器，首次调用时创建。调度循环仍按注册情况惰性启停。
func Default() *Coordinator {
	return defaultCoordinator()
}

// NewCoordinator 创建协调器。创建后处于 StateStopped，不占用 goroutine。
func NewCoordinator(opts ...Option) *Coordinator {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &Coordinator{
		regs: make(map[Evicter]*Handle),
		opts: o,
	}
}

// Register 注册实例，必要时启动调度循环。
// 同一 Evicter 重复注册返回已有 Handle，不会重复清理。
func (c *Coordinator) Register(name string, e Evicter) (*Handle, error) {
	if e == nil {
		return nil, ErrNilEvicter
	}

	c.mu.Lock()
	if h, ok := c.regs[e]; ok {
		c.mu.Unlock()
		return h, nil
	}
	h := &Handle{id: uuid.NewString(), name: name, evicter: e, coord: c}
	c.regs[e] = h
	started := c.loop == nil
	if started {
		c.startLocked()
	}
	n := len(c.regs)
	c.mu.Unlock()

	ctx := context.Background()
	if started {
		c.opts.logger.Debug(ctx, "expire loop started", xlog.Duration(c.opts.interval))
	}
	c.opts.logger.Debug(ctx, "instance registered", xlog.Cache(name), slog.String("id", h.id), xlog.Count(int64(n)))
	return h, nil
}

// Deregister 注销实例，最后一个实例注销时停止调度循环。
// 重复注销或 nil Handle 为空操作。
func (c *Coordinator) Deregister(h *Handle) {
	if h == nil || h.coord != c || !h.closed.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	if c.regs[h.evicter] == h {
		delete(c.regs, h.evicter)
	}
	var stopped *xrun.Group
	if len(c.regs) == 0 && c.loop != nil {
		stopped = c.stopLocked()
	}
	c.mu.Unlock()

	ctx := context.Background()
	c.opts.logger.Debug(ctx, "instance deregistered", xlog.Cache(h.name), slog.String("id", h.id))
	if stopped != nil {
		c.waitLoop(stopped)
		c.opts.logger.Debug(ctx, "expire loop stopped")
	}
}

// Stop 注销所有实例并等待调度循环退出。之后仍可重新注册。
// 不得在 EvictExpired 内部调用。
func (c *Coordinator) Stop() {
	c.mu.Lock()
	for e, h := range c.regs {
		h.closed.Store(true)
		delete(c.regs, e)
	}
	var stopped *xrun.Group
	if c.loop != nil {
		stopped = c.stopLocked()
	}
	c.mu.Unlock()

	if stopped != nil {
		_ = stopped.Wait()
	}
}

func (c *Coordinator) startLocked() {
	g, _ := xrun.NewGroup(context.Background(),
		xrun.WithName(componentName),
		xrun.WithLogger(c.opts.logger),
	)
	g.GoWithName("expire-loop", xrun.Ticker(c.opts.interval, false, c.tick))
	c.loop = g
}

func (c *Coordinator) stopLocked() *xrun.Group {
	g := c.loop
	c.loop = nil
	g.Cancel(nil)
	return g
}

// waitLoop 等待已取消的循环退出。清理进行中时不等待，循环在本轮结束后自行退出。
func (c *Coordinator) waitLoop(g *xrun.Group) {
	if c.loopTicking.Load() > 0 {
		return
	}
	_ = g.Wait()
}

// State 返回调度循环状态。
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loop != nil {
		return StateRunning
	}
	return StateStopped
}

// Len 返回已注册实例数。
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.regs)
}

// Stats 返回统计快照。
func (c *Coordinator) Stats() Stats {
	return Stats{
		Ticks:      c.stats.Ticks(),
		Evicted:    c.stats.Evicted(),
		Failures:   c.stats.Failures(),
		Registered: c.Len(),
		State:      c.State(),
	}
}

// TickNow 立即同步执行一轮清理，返回清理总数和各实例失败的合并错误。
// 与调度循环互不排斥。
func (c *Coordinator) TickNow(ctx context.Context) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	n, errs := c.runTick(ctx, c.opts.clock())
	return n, errors.Join(errs...)
}

func (c *Coordinator) tick(ctx context.Context) error {
	c.loopTicking.Add(1)
	defer c.loopTicking.Add(-1)

	c.runTick(ctx, c.opts.clock())
	// 单个实例的失败不终止循环。
	return nil
}

func (c *Coordinator) snapshot() []*Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	handles := make([]*Handle, 0, len(c.regs))
	for _, h := range c.regs {
		handles = append(handles, h)
	}
	return handles
}

func (c *Coordinator) runTick(ctx context.Context, now time.Time) (int, []error) {
	c.stats.IncTick()
	handles := c.snapshot()
	if len(handles) == 0 {
		return 0, nil
	}

	ctx, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "tick",
		Attrs:     []xmetrics.Attr{xmetrics.Int("instances", len(handles))},
	})

	var (
		mu    sync.Mutex
		total int
		errs  []error
		eg    errgroup.Group
	)
	eg.SetLimit(c.opts.concurrency)
	for _, h := range handles {
		eg.Go(func() error {
			n, err := c.evict(ctx, h, now)
			mu.Lock()
			total += max(n, 0)
			if err != nil {
				errs = append(errs, err)
			}
			mu.Unlock()
			if err != nil {
				c.reportFailure(ctx, h, err)
			}
			return nil
		})
	}
	_ = eg.Wait()

	c.stats.AddEvicted(total)
	xmetrics.Count(ctx, c.opts.observer, metricEvicted, int64(total))
	span.End(xmetrics.Result{
		Err:   errors.Join(errs...),
		Attrs: []xmetrics.Attr{xmetrics.Int("evicted", total), xmetrics.Int("failures", len(errs))},
	})
	return total, errs
}

// evict 清理单个实例，panic 转为 *TickError。轮内已注销的实例跳过。
func (c *Coordinator) evict(ctx context.Context, h *Handle, now time.Time) (n int, err error) {
	if h.closed.Load() {
		return 0, nil
	}

	_, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "evict",
		Attrs:     []xmetrics.Attr{xmetrics.Cache(h.name)},
	})
	defer func() {
		if p := recover(); p != nil {
			n, err = 0, fmt.Errorf("%w: %v", ErrEvictPanic, p)
		}
		if err != nil {
			err = &TickError{Name: h.name, ID: h.id, Cause: err}
		}
		span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.Int("evicted", n)}})
	}()

	return h.evicter.EvictExpired(now)
}

func (c *Coordinator) reportFailure(ctx context.Context, h *Handle, err error) {
	c.stats.IncFailure()
	c.opts.logger.Warn(ctx, "evict expired failed",
		xlog.Cache(h.name),
		slog.String("id", h.id),
		xlog.Err(err),
	)
	xmetrics.Count(ctx, c.opts.observer, metricFailures, 1, xmetrics.Cache(h.name))

	if fn := c.opts.onTickError; fn != nil {
		defer func() {
			if p := recover(); p != nil {
				c.opts.logger.Error(ctx, "tick error hook panicked", slog.Any("panic", p))
			}
		}()
		fn(h, err)
	}
}
