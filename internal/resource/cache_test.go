package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type netErr struct{}

func (netErr) Error() string   { return "connection reset" }
func (netErr) Retryable() bool { return true }

func TestQuery_CoalescesConcurrentReads(t *testing.T) {
	c := New(Options{StaleTime: time.Minute})
	var calls atomic.Int32
	release := make(chan struct{})

	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "cars", nil
	}

	var wg sync.WaitGroup
	results := make([]State[string], 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Query(context.Background(), c, Cars, fetch)
		}(i)
	}

	require.Eventually(t, func() bool { return Peek[string](c, Cars).IsLoading }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, st := range results {
		assert.Equal(t, "cars", st.Data)
		assert.NoError(t, st.Err)
		assert.False(t, st.IsLoading)
	}
}

func TestQuery_FreshThenInvalidated(t *testing.T) {
	c := New(Options{StaleTime: time.Minute})
	n := 0
	fetch := func(context.Context) (int, error) {
		n++
		return n, nil
	}
	ctx := context.Background()

	assert.Equal(t, 1, Query(ctx, c, Cart, fetch).Data)
	assert.Equal(t, 1, Query(ctx, c, Cart, fetch).Data)

	c.Invalidate(Cart)
	assert.Equal(t, 2, Query(ctx, c, Cart, fetch).Data)

	// other keys are untouched by invalidation
	assert.Equal(t, 3, Query(ctx, c, CarKey(5), fetch).Data)
	c.Invalidate(Cart)
	assert.Equal(t, 3, Query(ctx, c, CarKey(5), fetch).Data)
}

func TestQuery_ZeroStaleTimeAlwaysRefetches(t *testing.T) {
	c := New(Options{})
	n := 0
	fetch := func(context.Context) (int, error) {
		n++
		return n, nil
	}
	Query(context.Background(), c, Users, fetch)
	assert.Equal(t, 2, Query(context.Background(), c, Users, fetch).Data)
}

func TestQuery_DiscardsReadSupersededByInvalidation(t *testing.T) {
	c := New(Options{StaleTime: time.Minute})
	var calls atomic.Int32
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})

	fetch := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(firstStarted)
			<-releaseFirst
			return "old", nil
		}
		return "new", nil
	}

	done := make(chan State[string])
	go func() { done <- Query(context.Background(), c, Cart, fetch) }()

	<-firstStarted
	c.Invalidate(Cart)
	close(releaseFirst)

	st := <-done
	assert.Equal(t, "new", st.Data)
	assert.Equal(t, "new", Peek[string](c, Cart).Data)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQuery_RetriesReadsOnceOnRetryableErrors(t *testing.T) {
	tests := []struct {
		name      string
		retry     int
		err       error
		wantCalls int32
	}{
		{"retryable with retry", 1, netErr{}, 2},
		{"retry capped at one", 5, netErr{}, 2},
		{"retry disabled", 0, netErr{}, 1},
		{"not retryable", 1, errors.New("400 bad request"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Options{Retry: tt.retry})
			var calls atomic.Int32
			st := Query(context.Background(), c, Cars, func(context.Context) ([]string, error) {
				calls.Add(1)
				return nil, tt.err
			})
			assert.Equal(t, tt.wantCalls, calls.Load())
			assert.ErrorIs(t, st.Err, tt.err)
			assert.False(t, st.HasData())
		})
	}
}

func TestQuery_ErrorKeepsPreviousData(t *testing.T) {
	c := New(Options{StaleTime: time.Minute})
	ctx := context.Background()
	Query(ctx, c, Me, func(context.Context) (string, error) { return "jdoe", nil })

	c.Invalidate(Me)
	st := Query(ctx, c, Me, func(context.Context) (string, error) { return "", errors.New("boom") })
	assert.Error(t, st.Err)
	assert.Equal(t, "jdoe", st.Data)
	assert.True(t, st.HasData())

	// a failed read is not served as fresh
	st = Query(ctx, c, Me, func(context.Context) (string, error) { return "jdoe2", nil })
	assert.NoError(t, st.Err)
	assert.Equal(t, "jdoe2", st.Data)
}

func TestCache_Reset(t *testing.T) {
	c := New(Options{StaleTime: time.Minute})
	ctx := context.Background()
	Query(ctx, c, Cart, func(context.Context) (int, error) { return 7, nil })

	c.Reset()
	assert.False(t, Peek[int](c, Cart).HasData())
	assert.Equal(t, 8, Query(ctx, c, Cart, func(context.Context) (int, error) { return 8, nil }).Data)
}
