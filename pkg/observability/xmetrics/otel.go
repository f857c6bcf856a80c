package xmetrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xmemo/xmetrics"
	unknown                    = "unknown"

	metricOperationTotal    = "xmemo.operation.total"
	metricOperationDuration = "xmemo.operation.duration"
)

// Option 配置 OTel Observer。
type Option func(*otelOptions)

type otelOptions struct {
	name   string
	tracer trace.TracerProvider
	meter  metric.MeterProvider
}

// WithInstrumentationName 设置 tracer 和 meter 的 instrumentation 名称。
func WithInstrumentationName(name string) Option {
	return func(o *otelOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithTracerProvider 默认 otel.GetTracerProvider()。
func WithTracerProvider(p trace.TracerProvider) Option {
	return func(o *otelOptions) {
		if p != nil {
			o.tracer = p
		}
	}
}

// WithMeterProvider 默认 otel.GetMeterProvider()。
func WithMeterProvider(p metric.MeterProvider) Option {
	return func(o *otelOptions) {
		if p != nil {
			o.meter = p
		}
	}
}

// =============================================================================
// Observer
// =============================================================================

// otelObserver 每个跨度产生一条 trace span，并记录 xmemo.operation.total 与
// xmemo.operation.duration，维度为 component、operation、status。
type otelObserver struct {
	tracer   trace.Tracer
	meter    metric.Meter
	total    metric.Int64Counter
	duration metric.Float64Histogram

	counters sync.Map // name -> metric.Int64Counter
}

var (
	_ Observer = (*otelObserver)(nil)
	_ Counter  = (*otelObserver)(nil)
)

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer，返回值同时实现 [Counter]。
func NewOTelObserver(opts ...Option) (Observer, error) {
	o := otelOptions{
		name:   defaultInstrumentationName,
		tracer: otel.GetTracerProvider(),
		meter:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(&o)
	}

	obs := &otelObserver{
		tracer: o.tracer.Tracer(o.name),
		meter:  o.meter.Meter(o.name),
	}
	var err error
	if obs.total, err = obs.meter.Int64Counter(metricOperationTotal,
		metric.WithDescription("cache operations"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, metricOperationTotal, err)
	}
	if obs.duration, err = obs.meter.Float64Histogram(metricOperationDuration,
		metric.WithDescription("cache operation latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, metricOperationDuration, err)
	}
	return obs, nil
}

func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &otelSpan{
		obs:       o,
		component: orUnknown(opts.Component),
		operation: orUnknown(opts.Operation),
		start:     time.Now(),
	}

	kind := trace.SpanKindInternal
	if opts.Kind == KindClient {
		kind = trace.SpanKindClient
	}
	attrs := append(s.baseAttrs(), toOTel(opts.Attrs)...)
	ctx, s.span = o.tracer.Start(ctx, s.component+"/"+s.operation,
		trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
	s.ctx = ctx
	return ctx, s
}

// Count 累加名为 name 的计数器。n <= 0 或 name 为空时忽略；
// 计数器创建失败同样忽略，不影响缓存调用方。
func (o *otelObserver) Count(ctx context.Context, name string, n int64, attrs ...Attr) {
	if name == "" || n <= 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	counter, ok := o.counters.Load(name)
	if !ok {
		c, err := o.meter.Int64Counter(name, metric.WithUnit("1"))
		if err != nil {
			return
		}
		counter, _ = o.counters.LoadOrStore(name, c)
	}
	counter.(metric.Int64Counter).Add(context.WithoutCancel(ctx), n, metric.WithAttributes(toOTel(attrs)...))
}

// =============================================================================
// Span
// =============================================================================

type otelSpan struct {
	obs       *otelObserver
	span      trace.Span
	ctx       context.Context
	component string
	operation string
	start     time.Time
	once      sync.Once
}

func (s *otelSpan) baseAttrs() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(KeyComponent, s.component),
		attribute.String(KeyOperation, s.operation),
	}
}

func (s *otelSpan) End(r Result) {
	if s == nil {
		return
	}
	s.once.Do(func() { s.finish(r) })
}

func (s *otelSpan) finish(r Result) {
	status := r.status()
	if r.Err != nil {
		s.span.RecordError(r.Err)
	}
	switch {
	case status == StatusOK:
		s.span.SetStatus(codes.Ok, "")
	case r.Err != nil:
		s.span.SetStatus(codes.Error, r.Err.Error())
	default:
		s.span.SetStatus(codes.Error, "operation failed")
	}
	if len(r.Attrs) > 0 {
		s.span.SetAttributes(toOTel(r.Attrs)...)
	}
	s.span.End()

	// 调用方的 ctx 可能已取消，指标照常记录。
	ctx := context.WithoutCancel(s.ctx)
	set := metric.WithAttributes(append(s.baseAttrs(), attribute.String(KeyStatus, string(status)))...)
	s.obs.total.Add(ctx, 1, set)
	s.obs.duration.Record(ctx, time.Since(s.start).Seconds(), set)
}

// =============================================================================
// 属性转换
// =============================================================================

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

func toOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "" || a.Value == nil {
			continue
		}
		out = append(out, a.keyValue())
	}
	return out
}

func (a Attr) keyValue() attribute.KeyValue {
	k := attribute.Key(a.Key)
	switch v := a.Value.(type) {
	case string:
		return k.String(v)
	case bool:
		return k.Bool(v)
	case int:
		return k.Int(v)
	case int64:
		return k.Int64(v)
	case float64:
		return k.Float64(v)
	case time.Duration:
		return k.Int64(v.Nanoseconds())
	default:
		return k.String(fmt.Sprint(v))
	}
}
