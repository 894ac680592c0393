package auth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvcrn/ups-proxy/internal/upserr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

// fakeRefresher issues tok-1, tok-2, ... each valid for ttl. When gate is set,
// every call blocks until it is closed or the refresh context ends.
type fakeRefresher struct {
	clock   *fakeClock
	ttl     time.Duration
	calls   int32
	gate    chan struct{}
	started chan struct{}
	err     error
	fn      func(ctx context.Context, n int32) (*Token, error)
}

func (f *fakeRefresher) Refresh(ctx context.Context) (*Token, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.fn != nil {
		return f.fn(ctx, n)
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Token{
		AccessToken: "tok-" + strconv.Itoa(int(n)),
		TokenType:   "Bearer",
		ExpiresAt:   f.clock.Now().Add(f.ttl),
	}, nil
}

func newTestCache(r *fakeRefresher) *TokenCache {
	return NewTokenCache(r, TokenCacheConfig{
		Threshold: time.Minute,
		Now:       r.clock.Now,
		Logger:    zerolog.Nop(),
	})
}

func TestTokenCacheReturnsCachedToken(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	r := &fakeRefresher{clock: clock, ttl: time.Hour}
	cache := newTestCache(r)

	first, err := cache.Token(context.Background())
	require.NoError(t, err)
	second, err := cache.Token(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))
}

func TestTokenCacheRefreshesInsideThreshold(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	r := &fakeRefresher{clock: clock, ttl: 5 * time.Minute}
	cache := newTestCache(r)

	tok, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.AccessToken)

	clock.Advance(3*time.Minute + 59*time.Second)
	tok, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.AccessToken)

	clock.Advance(time.Second)
	tok, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok.AccessToken)
	assert.Equal(t, int32(2), atomic.LoadInt32(&r.calls))
}

func TestTokenCacheSingleFlight(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	r := &fakeRefresher{clock: clock, ttl: time.Hour, gate: make(chan struct{}), started: make(chan struct{}, 1)}
	cache := newTestCache(r)

	const callers = 50
	var wg sync.WaitGroup
	tokens := make([]*Token, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = cache.Token(context.Background())
		}(i)
	}

	<-r.started
	time.Sleep(20 * time.Millisecond)
	close(r.gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, tokens[0], tokens[i])
	}
}

func TestTokenCacheSharesRefreshFailure(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	r := &fakeRefresher{
		clock:   clock,
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
		err:     upserr.InvalidCredentials(),
	}
	cache := newTestCache(r)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.Token(context.Background())
		}(i)
	}

	<-r.started
	time.Sleep(20 * time.Millisecond)
	close(r.gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))
	for _, err := range errs {
		assert.True(t, upserr.IsKind(err, upserr.KindInvalidCredentials), "got %v", err)
	}
	assert.False(t, cache.Status().Cached)
}

func TestTokenCacheWrapsForeignRefreshError(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	r := &fakeRefresher{clock: clock, err: errors.New("boom")}
	cache := newTestCache(r)

	_, err := cache.Token(context.Background())
	assert.True(t, upserr.IsKind(err, upserr.KindTokenRefreshFailed))
}

func TestTokenCacheInvalidateDuringRefresh(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	started := make(chan struct{}, 2)
	r := &fakeRefresher{clock: clock, started: started}
	r.fn = func(ctx context.Context, n int32) (*Token, error) {
		if n == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &Token{AccessToken: "fresh", ExpiresAt: clock.Now().Add(time.Hour)}, nil
	}
	cache := newTestCache(r)

	type result struct {
		tok *Token
		err error
	}
	done := make(chan result, 1)
	go func() {
		tok, err := cache.Token(context.Background())
		done <- result{tok, err}
	}()

	<-started
	cache.Invalidate()

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "fresh", res.tok.AccessToken)
	assert.Equal(t, int32(2), atomic.LoadInt32(&r.calls))
}

func TestTokenCacheCallerCancellationLeavesOthers(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	r := &fakeRefresher{clock: clock, ttl: time.Hour, gate: make(chan struct{}), started: make(chan struct{}, 1)}
	cache := newTestCache(r)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := cache.Token(ctx)
		cancelled <- err
	}()
	<-r.started

	waiting := make(chan *Token, 1)
	go func() {
		tok, err := cache.Token(context.Background())
		assert.NoError(t, err)
		waiting <- tok
	}()

	cancel()
	err := <-cancelled
	assert.True(t, upserr.IsKind(err, upserr.KindNetwork))
	assert.ErrorIs(t, err, context.Canceled)

	close(r.gate)
	tok := <-waiting
	require.NotNil(t, tok)
	assert.Equal(t, "tok-1", tok.AccessToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))
}

func TestTokenCacheInvalidateForcesRefresh(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	r := &fakeRefresher{clock: clock, ttl: time.Hour}
	cache := newTestCache(r)

	_, err := cache.Token(context.Background())
	require.NoError(t, err)
	cache.Invalidate()
	assert.False(t, cache.Status().Cached)

	tok, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok.AccessToken)
}

func TestTokenCacheStatus(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	r := &fakeRefresher{clock: clock, ttl: 10 * time.Minute}
	cache := newTestCache(r)

	assert.Equal(t, "No token cached", cache.Status().String())

	_, err := cache.Token(context.Background())
	require.NoError(t, err)

	st := cache.Status()
	assert.True(t, st.Cached)
	assert.Equal(t, int64(600), st.SecondsLeft)
	assert.False(t, st.NeedsRefresh)
	assert.False(t, st.RefreshInFlight)
	assert.Equal(t, int64(1), st.Refreshes)
	assert.Contains(t, st.String(), "Token Status: VALID")
	assert.Contains(t, st.String(), "Scope: none")

	clock.Advance(9*time.Minute + 30*time.Second)
	st = cache.Status()
	assert.True(t, st.NeedsRefresh)
	assert.False(t, st.Expired)
	assert.Contains(t, st.String(), "Token Status: EXPIRED")
}

func TestTokenCacheInvalidateIfCurrent(t *testing.T) {
	r := &fakeRefresher{clock: &fakeClock{now: fixedNow}, ttl: time.Hour}
	cache := newTestCache(r)

	first, err := cache.Token(context.Background())
	require.NoError(t, err)

	assert.True(t, cache.InvalidateIfCurrent(first))
	assert.False(t, cache.InvalidateIfCurrent(first))
	assert.False(t, cache.InvalidateIfCurrent(nil))

	second, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", second.AccessToken)

	// A stale token must not evict its replacement.
	assert.False(t, cache.InvalidateIfCurrent(first))
	again, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, again)
	assert.Equal(t, int32(2), atomic.LoadInt32(&r.calls))
}
