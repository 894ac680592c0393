package upserr

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which failure variant an Error represents.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindAuthFailed
	KindInvalidCredentials
	KindInvalidURL
	KindTokenExpired
	KindTokenRefreshFailed
	KindNetwork
	KindHTTPStatus
	KindInvalidResponse
	KindDecoding
	KindRateLimited
	KindServerError
	KindServiceUnavailable
	KindRetryLimitExceeded
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindConfiguration:      "configuration",
	KindAuthFailed:         "auth_failed",
	KindInvalidCredentials: "invalid_credentials",
	KindInvalidURL:         "invalid_url",
	KindTokenExpired:       "token_expired",
	KindTokenRefreshFailed: "token_refresh_failed",
	KindNetwork:            "network",
	KindHTTPStatus:         "http_status",
	KindInvalidResponse:    "invalid_response",
	KindDecoding:           "decoding",
	KindRateLimited:        "rate_limited",
	KindServerError:        "server_error",
	KindServiceUnavailable: "service_unavailable",
	KindRetryLimitExceeded: "retry_limit_exceeded",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Error is the single failure type returned across package boundaries.
// Only the fields relevant to its Kind are populated.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	// Body holds the raw response payload, preserved for diagnostics.
	Body []byte
	// RetryAfter is set for rate limiting when the server sent a usable hint.
	RetryAfter *time.Duration
	// ProviderCode is the first UPS error code from the response body, if any.
	ProviderCode string
	Cause        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConfiguration:
		return "configuration error: " + e.Message
	case KindAuthFailed:
		return fmt.Sprintf("authentication failed (HTTP %d): %s", e.StatusCode, orDefault(e.Message, "unknown error"))
	case KindInvalidCredentials:
		return "invalid UPS credentials provided"
	case KindInvalidURL:
		return "invalid URL: " + e.Message
	case KindTokenExpired:
		return "UPS access token has expired"
	case KindTokenRefreshFailed:
		return "failed to refresh UPS token: " + causeText(e.Cause)
	case KindNetwork:
		return "network error: " + causeText(e.Cause)
	case KindHTTPStatus:
		return fmt.Sprintf("HTTP error %d", e.StatusCode)
	case KindInvalidResponse:
		return "invalid response from UPS API: " + e.Message
	case KindDecoding:
		return "failed to decode UPS response: " + causeText(e.Cause)
	case KindRateLimited:
		if e.RetryAfter != nil {
			return fmt.Sprintf("rate limited, retry after %d seconds", int(e.RetryAfter.Seconds()))
		}
		return "rate limited, please try again later"
	case KindServerError:
		return fmt.Sprintf("UPS server error (HTTP %d): %s", e.StatusCode, orDefault(e.Message, "unknown server error"))
	case KindServiceUnavailable:
		return "UPS service is temporarily unavailable"
	case KindRetryLimitExceeded:
		if e.Cause != nil {
			return "maximum retry attempts exceeded: " + e.Cause.Error()
		}
		return "maximum retry attempts exceeded"
	default:
		return "unknown error: " + causeText(e.Cause)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by Kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// IsRetryable reports whether the failure may succeed if the call is repeated.
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case KindNetwork, KindRateLimited, KindServerError, KindServiceUnavailable:
		return true
	case KindHTTPStatus:
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
	case KindTokenExpired, KindTokenRefreshFailed:
		return true
	default:
		return false
	}
}

// RetryDelay is the suggested wait before retrying, or zero when there is none.
func (e *Error) RetryDelay() time.Duration {
	switch e.Kind {
	case KindRateLimited:
		if e.RetryAfter != nil {
			return *e.RetryAfter
		}
		return 0
	case KindTokenExpired, KindTokenRefreshFailed:
		return time.Second
	case KindServerError, KindServiceUnavailable:
		return 5 * time.Second
	default:
		return 0
	}
}

func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func AuthFailed(code int, message string) *Error {
	return &Error{Kind: KindAuthFailed, StatusCode: code, Message: message}
}

func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, StatusCode: http.StatusUnauthorized}
}

func InvalidURL(detail string) *Error {
	return &Error{Kind: KindInvalidURL, Message: detail}
}

func TokenExpired() *Error {
	return &Error{Kind: KindTokenExpired}
}

func TokenRefreshFailed(cause error) *Error {
	return &Error{Kind: KindTokenRefreshFailed, Cause: cause}
}

func Network(cause error) *Error {
	return &Error{Kind: KindNetwork, Cause: cause}
}

func HTTPStatus(code int, body []byte) *Error {
	return &Error{Kind: KindHTTPStatus, StatusCode: code, Body: body}
}

func InvalidResponse(detail string) *Error {
	return &Error{Kind: KindInvalidResponse, Message: detail}
}

func Decoding(cause error, body []byte) *Error {
	return &Error{Kind: KindDecoding, Cause: cause, Body: body}
}

func RateLimited(retryAfter *time.Duration) *Error {
	return &Error{Kind: KindRateLimited, StatusCode: http.StatusTooManyRequests, RetryAfter: retryAfter}
}

func ServerError(code int, message string) *Error {
	return &Error{Kind: KindServerError, StatusCode: code, Message: message}
}

func ServiceUnavailable() *Error {
	return &Error{Kind: KindServiceUnavailable, StatusCode: http.StatusServiceUnavailable}
}

func RetryLimitExceeded(attempts int, last error) *Error {
	return &Error{Kind: KindRetryLimitExceeded, Message: fmt.Sprintf("%d attempts", attempts), Cause: last}
}

func Unknown(cause error) *Error {
	return &Error{Kind: KindUnknown, Cause: cause}
}

// As returns err as an *Error when it is one (or wraps one).
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// Wrap keeps *Error values as they are and turns anything else into Unknown.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	return Unknown(err)
}

// ParseRetryAfter reads a numeric Retry-After value in seconds. HTTP-date
// values and garbage are reported as absent.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return 0, false
	}
	d := secs * float64(time.Second)
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(d), true
}

// FromStatus maps a non-2xx carrier API response to an Error.
func FromStatus(code int, header http.Header, body []byte) *Error {
	var first *ProviderError
	if errs, ok := ParseProviderErrors(body); ok && len(errs) > 0 {
		first = &errs[0]
	}

	switch {
	case code == http.StatusUnauthorized:
		if first != nil {
			return AuthFailed(code, first.Message)
		}
		return AuthFailed(code, "")
	case code == http.StatusTooManyRequests:
		if header != nil {
			if d, ok := ParseRetryAfter(header.Get("Retry-After")); ok {
				return RateLimited(&d)
			}
		}
		return RateLimited(nil)
	case code >= 500 && code <= 599:
		e := ServerError(code, "")
		if first != nil {
			e.Message = first.Message
			e.ProviderCode = first.Code
		}
		e.Body = body
		return e
	default:
		e := HTTPStatus(code, body)
		if first != nil {
			e.ProviderCode = first.Code
		}
		return e
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func causeText(err error) string {
	if err == nil {
		return "unknown cause"
	}
	return err.Error()
}
