package loader

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu      sync.Mutex
	batches [][]int
}

func (r *recorder) record(keys []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, slices.Clone(keys))
}

func (r *recorder) calls() [][]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.batches)
}

func squareLoader(rec *recorder, opts Options) *Loader[int, int] {
	return New("square", Value, func(_ context.Context, keys []int) ([]int, error) {
		rec.record(keys)
		out := make([]int, len(keys))
		for i, k := range keys {
			out[i] = k * k
		}
		return out, nil
	}, opts)
}

func testOptions() Options {
	return Options{Wait: 20 * time.Millisecond}
}

func TestLoader_BatchesConcurrentLoads(t *testing.T) {
	rec := &recorder{}
	l := squareLoader(rec, Options{Wait: 50 * time.Millisecond})
	ctx := context.Background()

	keys := []int{1, 2, 3, 2, 4, 1, 5}
	results := make([]int, len(keys))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, k := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, err := l.Load(ctx, k)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	close(start)
	wg.Wait()

	calls := rec.calls()
	require.Len(t, calls, 1, "all keys should share one batch")
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, calls[0], "keys are de-duplicated")
	for i, k := range keys {
		assert.Equal(t, k*k, results[i])
	}
}

func TestLoader_MemoizesKeys(t *testing.T) {
	rec := &recorder{}
	l := squareLoader(rec, testOptions())
	ctx := context.Background()

	first, err := l.Load(ctx, 7)
	require.NoError(t, err)
	second, err := l.Load(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, 49, first)
	assert.Equal(t, 49, second)
	assert.Len(t, rec.calls(), 1, "cached key must not be fetched again")
}

func TestLoader_LoadMany(t *testing.T) {
	rec := &recorder{}
	l := squareLoader(rec, testOptions())

	values, errs := l.LoadMany(context.Background(), []int{3, 1, 3, 2})
	assert.Nil(t, errs)
	assert.Equal(t, []int{9, 1, 9, 4}, values)

	calls := rec.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []int{3, 1, 2}, calls[0], "first-seen order without duplicates")
}

func TestLoader_MaxBatch(t *testing.T) {
	rec := &recorder{}
	l := squareLoader(rec, Options{Wait: 20 * time.Millisecond, MaxBatch: 2})

	values, errs := l.LoadMany(context.Background(), []int{1, 2, 3, 4, 5})
	require.Nil(t, errs)
	assert.Equal(t, []int{1, 4, 9, 16, 25}, values)

	calls := rec.calls()
	require.Len(t, calls, 3)
	sizes := []int{len(calls[0]), len(calls[1]), len(calls[2])}
	slices.Sort(sizes)
	assert.Equal(t, []int{1, 2, 2}, sizes)
}

func TestLoader_BatchErrorEvictsKeys(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	l := New("flaky", One, func(_ context.Context, keys []string) ([]string, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return nil, errors.New("connection reset")
		}
		return keys, nil
	}, testOptions())
	ctx := context.Background()

	_, errs := l.LoadMany(ctx, []string{"a", "b"})
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorContains(t, err, "connection reset")
	}

	v, err := l.Load(ctx, "a")
	require.NoError(t, err, "a failed key is retried")
	assert.Equal(t, "a", v)
	assert.Equal(t, 2, attempts)
}

func TestLoader_ResultCountMismatch(t *testing.T) {
	l := New("short", Many, func(_ context.Context, keys []int) ([]int, error) {
		return keys[:len(keys)-1], nil
	}, testOptions())

	_, errs := l.LoadMany(context.Background(), []int{1, 2})
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], ErrResultCount)
	assert.ErrorIs(t, errs[1], ErrResultCount)
}

func TestLoader_PanicBecomesError(t *testing.T) {
	l := New("boom", One, func(_ context.Context, keys []int) ([]int, error) {
		panic("bad row")
	}, testOptions())

	_, err := l.Load(context.Background(), 1)
	assert.ErrorContains(t, err, "bad row")
}

func TestLoader_WaiterCancellation(t *testing.T) {
	release := make(chan struct{})
	fetched := make(chan error, 1)
	l := New("slow", Value, func(ctx context.Context, keys []int) ([]int, error) {
		<-release
		fetched <- ctx.Err()
		return keys, nil
	}, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	thunk := l.LoadThunk(ctx, 1)
	cancel()

	_, err := thunk(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.NoError(t, <-fetched, "the batch itself is not cancelled")

	v, err := l.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestLoader_PrimeAndClear(t *testing.T) {
	rec := &recorder{}
	l := squareLoader(rec, testOptions())
	ctx := context.Background()

	assert.True(t, l.Prime(3, 100))
	assert.False(t, l.Prime(3, 200), "prime never overwrites")

	v, err := l.Load(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 100, v)
	assert.Empty(t, rec.calls())

	l.Clear(3)
	v, err = l.Load(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	assert.Len(t, rec.calls(), 1)
}

func TestLoader_Defaults(t *testing.T) {
	l := New("defaults", Many, func(_ context.Context, keys []int) ([]int, error) { return keys, nil }, Options{})

	assert.Equal(t, "defaults", l.Name())
	assert.Equal(t, Many, l.Cardinality())
	assert.Equal(t, DefaultWait, l.wait)
	assert.Equal(t, DefaultMaxBatch, l.maxBatch)
}

func TestCardinality_String(t *testing.T) {
	tests := []struct {
		c    Cardinality
		want string
	}{
		{One, "one"},
		{Many, "many"},
		{Value, "value"},
		{Cardinality(9), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.c.String())
	}
}
