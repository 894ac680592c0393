package httpclient

import (
	"math"
	"net/http"
	"time"

	"github.com/dvcrn/ups-proxy/internal/upserr"
)

// DefaultRetryableStatusCodes are the statuses retried when a policy does not
// name its own.
var DefaultRetryableStatusCodes = []int{
	http.StatusRequestTimeout,
	http.StatusTooManyRequests,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// jitterFraction bounds the random spread applied to exponential delays.
const jitterFraction = 0.25

// RetryPolicy configures the Client's retry loop. It is read-only once built.
type RetryPolicy struct {
	MaxRetries           int
	BaseDelay            time.Duration
	MaxDelay             time.Duration
	RetryableStatusCodes map[int]struct{}
}

// NewRetryPolicy builds a policy; an empty codes list selects the defaults.
func NewRetryPolicy(maxRetries int, baseDelay, maxDelay time.Duration, codes ...int) RetryPolicy {
	if len(codes) == 0 {
		codes = DefaultRetryableStatusCodes
	}
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return RetryPolicy{
		MaxRetries:           maxRetries,
		BaseDelay:            baseDelay,
		MaxDelay:             maxDelay,
		RetryableStatusCodes: set,
	}
}

func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(3, time.Second, 60*time.Second)
}

func (p RetryPolicy) IsRetryableStatus(code int) bool {
	_, ok := p.RetryableStatusCodes[code]
	return ok
}

// Backoff is baseDelay * 2^(attempt-1), spread by jitter in [-1, 1] scaled to
// ±25%, and capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if jitter < -1 {
		jitter = -1
	} else if jitter > 1 {
		jitter = 1
	}
	exp := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	d := exp + exp*jitterFraction*jitter
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Delay picks the wait before the next attempt. A numeric Retry-After header
// wins over backoff regardless of attempt number.
func (p RetryPolicy) Delay(attempt int, retryAfter string, jitter float64) time.Duration {
	if d, ok := upserr.ParseRetryAfter(retryAfter); ok {
		if p.MaxDelay > 0 && d > p.MaxDelay {
			return p.MaxDelay
		}
		return d
	}
	return p.Backoff(attempt, jitter)
}
