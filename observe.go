package inject

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const tracerName = "github.com/junioryono/inject"

// Hooks are callbacks invoked as values are built and resolved. Nil fields
// are skipped. Hooks run synchronously on the resolving goroutine and must
// not resolve from the scope that invoked them.
type Hooks struct {
	// OnConstructed runs after a provider built a value.
	OnConstructed func(ctx context.Context, key TypeKey, lifetime Lifetime, value any, duration time.Duration)

	// OnResolved runs after a successful Resolve or ResolveAll.
	OnResolved func(ctx context.Context, key TypeKey, value any)

	// OnError runs after a failed Resolve or ResolveAll.
	OnError func(ctx context.Context, key TypeKey, err error)
}

// observer fans events out to the logger, metrics, tracer and hooks of a scope.
type observer struct {
	logger  *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer
	hooks   []Hooks
}

func newObserver(opts *scopeOptions) *observer {
	logger := opts.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tp := opts.tracer
	if tp == nil {
		tp = noop.NewTracerProvider()
	}

	return &observer{
		logger:  logger,
		metrics: opts.metrics,
		tracer:  tp.Tracer(tracerName),
		hooks:   opts.hooks,
	}
}

func (o *observer) startResolve(ctx context.Context, key TypeKey) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, "inject.resolve", trace.WithAttributes(
		attribute.String("inject.key", key.String()),
	))
}

func (o *observer) endResolve(ctx context.Context, span trace.Span, key TypeKey, v any, err error) {
	defer span.End()

	o.metrics.resolved(err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Debug("resolve failed", zap.Stringer("key", key), zap.Error(err))
		for _, h := range o.hooks {
			if h.OnError != nil {
				h.OnError(ctx, key, err)
			}
		}
		return
	}

	for _, h := range o.hooks {
		if h.OnResolved != nil {
			h.OnResolved(ctx, key, v)
		}
	}
}

func (o *observer) startBuild(ctx context.Context, p *Provider) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, "inject.build", trace.WithAttributes(
		attribute.String("inject.key", p.key.String()),
		attribute.String("inject.lifetime", p.lifetime.String()),
		attribute.String("inject.provider", p.id.String()),
	))
}

func (o *observer) endBuild(ctx context.Context, span trace.Span, p *Provider, v any, d time.Duration, err error) {
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Debug("build failed",
			zap.Stringer("key", p.key),
			zap.Stringer("lifetime", p.lifetime),
			zap.Duration("duration", d),
			zap.Error(err),
		)
		return
	}

	o.metrics.constructed(p.lifetime, d)
	o.logger.Debug("built",
		zap.Stringer("key", p.key),
		zap.Stringer("lifetime", p.lifetime),
		zap.Duration("duration", d),
	)

	for _, h := range o.hooks {
		if h.OnConstructed != nil {
			h.OnConstructed(ctx, p.key, p.lifetime, v, d)
		}
	}
}

func (o *observer) cacheHit(p *Provider) {
	o.metrics.cacheHit(p.lifetime)
}

func (o *observer) released(scope *Scope, errs []error) {
	o.metrics.releaseFailed(len(errs))
	for _, err := range errs {
		o.logger.Warn("release failed", zap.Stringer("scope", scope.id), zap.Error(err))
	}
}
