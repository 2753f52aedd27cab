package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultWait     = 2 * time.Millisecond
	DefaultMaxBatch = 500
)

var ErrResultCount = errors.New("batch returned wrong number of results")

// Cardinality describes the shape of one loader's result per key.
type Cardinality int

const (
	One Cardinality = iota
	Many
	Value
)

func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	case Value:
		return "value"
	default:
		return "unknown"
	}
}

// BatchFunc fetches every key in one round trip. It must return exactly one
// result per key, in key order.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// Thunk waits for the result of a buffered key.
type Thunk[V any] func(ctx context.Context) (V, error)

type Options struct {
	Wait     time.Duration
	MaxBatch int
	Logger   *slog.Logger
}

type result[V any] struct {
	done  chan struct{}
	value V
	err   error
}

func (r *result[V]) resolve(value V, err error) {
	r.value = value
	r.err = err
	close(r.done)
}

func (r *result[V]) wait(ctx context.Context) (V, error) {
	select {
	case <-r.done:
		return r.value, r.err
	default:
	}

	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

type batch[K comparable, V any] struct {
	ctx     context.Context
	keys    []K
	results []*result[V]
	timer   *time.Timer
}

// Loader coalesces single-key lookups into batched fetches and memoizes every
// key it has seen. A Loader is meant to live for one request.
type Loader[K comparable, V any] struct {
	name        string
	cardinality Cardinality
	fetch       BatchFunc[K, V]
	wait        time.Duration
	maxBatch    int
	logger      *slog.Logger

	mu    sync.Mutex
	cache map[K]*result[V]
	batch *batch[K, V]
}

func New[K comparable, V any](name string, cardinality Cardinality, fetch BatchFunc[K, V], opts Options) *Loader[K, V] {
	if opts.Wait <= 0 {
		opts.Wait = DefaultWait
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Loader[K, V]{
		name:        name,
		cardinality: cardinality,
		fetch:       fetch,
		wait:        opts.Wait,
		maxBatch:    opts.MaxBatch,
		logger:      logger.With("component", "loader", "loader", name),
		cache:       make(map[K]*result[V]),
	}
}

func (l *Loader[K, V]) Name() string {
	return l.name
}

func (l *Loader[K, V]) Cardinality() Cardinality {
	return l.cardinality
}

// LoadThunk buffers key into the open batch and returns a thunk for its
// result. Keys seen before return the same cached result and are never
// fetched twice.
func (l *Loader[K, V]) LoadThunk(ctx context.Context, key K) Thunk[V] {
	l.mu.Lock()
	if r, ok := l.cache[key]; ok {
		l.mu.Unlock()
		cacheHits.WithLabelValues(l.name, l.cardinality.String()).Inc()
		return r.wait
	}

	r := &result[V]{done: make(chan struct{})}
	l.cache[key] = r

	b := l.batch
	if b == nil {
		b = &batch[K, V]{ctx: context.WithoutCancel(ctx)}
		l.batch = b
		b.timer = time.AfterFunc(l.wait, func() { l.dispatch(b) })
	}
	b.keys = append(b.keys, key)
	b.results = append(b.results, r)

	if len(b.keys) >= l.maxBatch {
		b.timer.Stop()
		l.batch = nil
		l.mu.Unlock()
		go l.run(b)
		return r.wait
	}
	l.mu.Unlock()

	return r.wait
}

func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	return l.LoadThunk(ctx, key)(ctx)
}

// LoadMany buffers every key before waiting on any of them, so they share
// batches. Results and errors are aligned with keys; errs is nil when every
// key succeeded.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, []error) {
	thunks := make([]Thunk[V], len(keys))
	for i, key := range keys {
		thunks[i] = l.LoadThunk(ctx, key)
	}

	values := make([]V, len(keys))
	var errs []error
	for i, thunk := range thunks {
		value, err := thunk(ctx)
		if err != nil {
			if errs == nil {
				errs = make([]error, len(keys))
			}
			errs[i] = err
			continue
		}
		values[i] = value
	}
	return values, errs
}

// Prime seeds the cache with value unless key is already present.
func (l *Loader[K, V]) Prime(key K, value V) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.cache[key]; ok {
		return false
	}
	r := &result[V]{done: make(chan struct{})}
	r.resolve(value, nil)
	l.cache[key] = r
	return true
}

func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, key)
}

func (l *Loader[K, V]) dispatch(b *batch[K, V]) {
	l.mu.Lock()
	if l.batch != b {
		l.mu.Unlock()
		return
	}
	l.batch = nil
	l.mu.Unlock()

	l.run(b)
}

func (l *Loader[K, V]) run(b *batch[K, V]) {
	labels := []string{l.name, l.cardinality.String()}
	batchesTotal.WithLabelValues(labels...).Inc()
	batchKeys.WithLabelValues(labels...).Observe(float64(len(b.keys)))

	start := time.Now()
	values, err := l.call(b.ctx, b.keys)
	elapsed := time.Since(start)
	batchDuration.WithLabelValues(labels...).Observe(elapsed.Seconds())
	if err == nil && len(values) != len(b.keys) {
		err = fmt.Errorf("%w: %s got %d for %d keys", ErrResultCount, l.name, len(values), len(b.keys))
	}

	if err != nil {
		batchFailures.WithLabelValues(labels...).Inc()
		l.logger.Error("batch failed", "error", err, "keys", len(b.keys))

		l.mu.Lock()
		for i, key := range b.keys {
			if l.cache[key] == b.results[i] {
				delete(l.cache, key)
			}
		}
		l.mu.Unlock()

		var zero V
		for _, r := range b.results {
			r.resolve(zero, err)
		}
		return
	}

	l.logger.Debug("batch loaded", "keys", len(b.keys), "duration", elapsed)
	for i, r := range b.results {
		r.resolve(values[i], nil)
	}
}

func (l *Loader[K, V]) call(ctx context.Context, keys []K) (values []V, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s batch panicked: %v", l.name, p)
		}
	}()

	values, err = l.fetch(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%s batch: %w", l.name, err)
	}
	return values, nil
}
