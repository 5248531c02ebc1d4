package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"sysdict/pkg/logger"
)

// Lookup is a named cache region in front of an expensive query.
//
// Concurrent misses on the same key run the loader once and share its result.
// A failed load is returned to every waiting caller and nothing is stored.
type Lookup[V any] struct {
	region  string
	store   Store[V]
	group   singleflight.Group
	metrics *Metrics

	// generation is bumped by InvalidateAll. Loads are shared only within
	// one generation, and a load that spans an invalidation is not stored.
	generation atomic.Uint64
}

// NewLookup creates a cache region backed by store. metrics may be nil.
func NewLookup[V any](region string, store Store[V], metrics *Metrics) *Lookup[V] {
	return &Lookup[V]{
		region:  region,
		store:   store,
		metrics: metrics,
	}
}

// Region returns the region name.
func (l *Lookup[V]) Region() string {
	return l.region
}

// GetOrLoad returns the cached value for key, or runs load and caches its result.
func (l *Lookup[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	value, ok, err := l.store.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "cache read failed, loading from source",
			"region", l.region, "key", key, "error", err)
	}
	if ok {
		l.inc(hits)
		return value, nil
	}
	l.inc(misses)

	gen := l.generation.Load()
	flightKey := strconv.FormatUint(gen, 10) + ":" + key

	res, err, _ := l.group.Do(flightKey, func() (any, error) {
		// The loader must not be cancelled by whichever caller happened to arrive first.
		loadCtx := context.WithoutCancel(ctx)
		l.inc(loads)
		v, err := load(loadCtx)
		if err != nil {
			l.inc(loadErrors)
			return v, err
		}

		if l.generation.Load() == gen {
			if err := l.store.Set(loadCtx, key, v); err != nil {
				logger.Warn(ctx, "cache write failed",
					"region", l.region, "key", key, "error", err)
			}
		}
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// InvalidateAll drops every entry of the region.
func (l *Lookup[V]) InvalidateAll(ctx context.Context) error {
	l.generation.Add(1)
	l.inc(invalidations)
	if err := l.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache region %s: %w", l.region, err)
	}
	logger.Debug(ctx, "cache region invalidated", "region", l.region)
	return nil
}

func (l *Lookup[V]) inc(counter func(m *Metrics) *prometheus.CounterVec) {
	if l.metrics == nil {
		return
	}
	counter(l.metrics).WithLabelValues(l.region).Inc()
}

func hits(m *Metrics) *prometheus.CounterVec          { return m.Hits }
func misses(m *Metrics) *prometheus.CounterVec        { return m.Misses }
func loads(m *Metrics) *prometheus.CounterVec         { return m.Loads }
func loadErrors(m *Metrics) *prometheus.CounterVec    { return m.LoadErrors }
func invalidations(m *Metrics) *prometheus.CounterVec { return m.Invalidations }
