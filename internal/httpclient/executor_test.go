package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvcrn/ups-proxy/internal/upserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequenceServer answers with the given statuses in order, repeating the last.
func sequenceServer(t *testing.T, statuses []int, header http.Header) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		for k, vs := range header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(statuses[n])
		_, _ = w.Write([]byte(`{"attempt":` + strconv.Itoa(n+1) + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestClient(policy RetryPolicy, sleeper *recordingSleeper) *Client {
	return New(http.DefaultClient, policy,
		WithSleeper(sleeper.sleep),
		WithJitterSource(func() float64 { return 0 }),
	)
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	policy := NewRetryPolicy(3, time.Second, 60*time.Second)

	for failures := 0; failures <= policy.MaxRetries; failures++ {
		statuses := make([]int, 0, failures+1)
		for i := 0; i < failures; i++ {
			statuses = append(statuses, http.StatusServiceUnavailable)
		}
		statuses = append(statuses, http.StatusOK)

		srv, calls := sequenceServer(t, statuses, nil)
		sleeper := &recordingSleeper{}
		client := newTestClient(policy, sleeper)

		resp, err := client.Execute(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(failures+1), atomic.LoadInt32(calls), "failures=%d", failures)
		assert.Len(t, sleeper.delays, failures)
	}
}

func TestExecuteReturnsRetryLimitExceeded(t *testing.T) {
	policy := NewRetryPolicy(3, time.Second, 60*time.Second)
	srv, calls := sequenceServer(t, []int{http.StatusServiceUnavailable}, nil)
	sleeper := &recordingSleeper{}
	client := newTestClient(policy, sleeper)

	resp, err := client.Execute(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, int32(policy.MaxRetries+1), atomic.LoadInt32(calls))

	e, ok := upserr.As(err)
	require.True(t, ok)
	assert.Equal(t, upserr.KindRetryLimitExceeded, e.Kind)

	cause, ok := upserr.As(e.Unwrap())
	require.True(t, ok)
	assert.Equal(t, upserr.KindServerError, cause.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, cause.StatusCode)
}

func TestExecuteZeroRetries(t *testing.T) {
	srv, calls := sequenceServer(t, []int{http.StatusBadGateway}, nil)
	client := newTestClient(NewRetryPolicy(0, time.Second, time.Minute), &recordingSleeper{})

	_, err := client.Execute(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	assert.True(t, upserr.IsKind(err, upserr.KindRetryLimitExceeded))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestExecuteDoesNotRetryNonRetryableStatus(t *testing.T) {
	srv, calls := sequenceServer(t, []int{http.StatusUnauthorized, http.StatusOK}, nil)
	client := newTestClient(DefaultRetryPolicy(), &recordingSleeper{})

	resp, err := client.Execute(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestExecuteHonorsRetryAfter(t *testing.T) {
	policy := NewRetryPolicy(3, time.Second, 60*time.Second)
	srv, _ := sequenceServer(t, []int{http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK},
		http.Header{"Retry-After": {"5"}})
	sleeper := &recordingSleeper{}
	client := newTestClient(policy, sleeper)

	_, err := client.Execute(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleeper.delays)
}

func TestExecuteExampleScenario(t *testing.T) {
	policy := NewRetryPolicy(3, time.Second, 60*time.Second, http.StatusTooManyRequests, http.StatusServiceUnavailable)
	srv, calls := sequenceServer(t, []int{503, 503, 200}, nil)
	sleeper := &recordingSleeper{}
	client := newTestClient(policy, sleeper)

	resp, err := client.Execute(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.JSONEq(t, `{"attempt":3}`, string(resp.Body))

	var total time.Duration
	for _, d := range sleeper.delays {
		total += d
	}
	assert.GreaterOrEqual(t, total, policy.BaseDelay+2*policy.BaseDelay)
}

type failingDoer struct {
	calls int32
	err   error
}

func (f *failingDoer) Do(*http.Request) (*http.Response, error) {
	atomic.AddInt32(&f.calls, 1)
	return nil, f.err
}

func TestExecuteRetriesTransportErrors(t *testing.T) {
	doer := &failingDoer{err: errors.New("connection reset by peer")}
	sleeper := &recordingSleeper{}
	client := New(doer, NewRetryPolicy(2, 10*time.Millisecond, time.Second),
		WithSleeper(sleeper.sleep), WithJitterSource(func() float64 { return 0 }))

	_, err := client.Execute(context.Background(), Request{Method: http.MethodPost, URL: "http://carrier.invalid/x"})
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&doer.calls))
	assert.True(t, upserr.IsKind(err, upserr.KindRetryLimitExceeded))

	e, _ := upserr.As(err)
	assert.True(t, upserr.IsKind(e.Unwrap(), upserr.KindNetwork))
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, sleeper.delays)
}

func TestExecuteInvalidURLIsTerminal(t *testing.T) {
	doer := &failingDoer{}
	client := New(doer, DefaultRetryPolicy())

	_, err := client.Execute(context.Background(), Request{Method: "BAD METHOD", URL: "http://x"})
	assert.True(t, upserr.IsKind(err, upserr.KindInvalidURL))
	assert.Equal(t, int32(0), atomic.LoadInt32(&doer.calls))
}

func TestExecuteCancelledDuringBackoff(t *testing.T) {
	srv, calls := sequenceServer(t, []int{http.StatusServiceUnavailable}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	client := New(http.DefaultClient, NewRetryPolicy(5, time.Hour, time.Hour),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			cancel()
			return sleepContext(ctx, d)
		}))

	_, err := client.Execute(ctx, Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestExecuteSendsSameDescriptorEachAttempt(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
		auths  []string
	)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		auths = append(auths, r.Header.Get("authorization"))
		mu.Unlock()
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, err := NewJSONRequest(http.MethodPost, srv.URL, map[string]string{"a": "b"})
	require.NoError(t, err)
	req = req.WithHeader("Authorization", "Bearer abc")

	client := newTestClient(DefaultRetryPolicy(), &recordingSleeper{})
	_, err = client.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{`{"a":"b"}`, `{"a":"b"}`, `{"a":"b"}`}, bodies)
	assert.Equal(t, []string{"Bearer abc", "Bearer abc", "Bearer abc"}, auths)
}
