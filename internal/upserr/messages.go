package upserr

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// UserMessage returns text suitable for showing to an end user.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindConfiguration:
		return "Configuration error: " + e.Message
	case KindAuthFailed:
		return fmt.Sprintf("Authentication failed (HTTP %d): %s", e.StatusCode,
			orDefault(e.Message, "Please check your UPS API credentials."))
	case KindInvalidCredentials:
		return "Authentication failed. Please check your UPS API credentials."
	case KindInvalidURL:
		return "Invalid request: " + e.Message
	case KindTokenExpired:
		return "Access token expired. Please try again."
	case KindTokenRefreshFailed:
		return "Failed to refresh token: " + causeText(e.Cause)
	case KindNetwork:
		return networkMessage(e.Cause)
	case KindHTTPStatus:
		return fmt.Sprintf("HTTP error occurred (code: %d)", e.StatusCode)
	case KindInvalidResponse:
		return "Invalid response from server: " + e.Message
	case KindDecoding:
		return "Failed to process server response: " + causeText(e.Cause)
	case KindRateLimited:
		if e.RetryAfter != nil {
			return fmt.Sprintf("Too many requests. Please try again in %d seconds.", int(e.RetryAfter.Seconds()))
		}
		return "Too many requests. Please try again later."
	case KindServerError:
		switch e.ProviderCode {
		case "100910":
			return "The address you entered could not be validated. Please check the address and try again."
		case "120002":
			return "Invalid address format. Please check all required fields are filled correctly."
		case "160002":
			return "The postal code is invalid for the specified city and state."
		}
		if e.Message != "" {
			return e.Message
		}
		return fmt.Sprintf("Server error occurred (code: %d)", e.StatusCode)
	case KindServiceUnavailable:
		return "UPS service is currently unavailable. Please try again later."
	case KindRetryLimitExceeded:
		if inner, ok := As(e.Cause); ok {
			return "The request kept failing after several attempts. " + inner.UserMessage()
		}
		return "The request kept failing after several attempts. Please try again later."
	default:
		return "An unexpected error occurred: " + causeText(e.Cause)
	}
}

// UserMessage renders any error for display, falling back to Unknown wording.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return Wrap(err).UserMessage()
}

func networkMessage(cause error) string {
	var netErr net.Error
	if errors.As(cause, &netErr) && netErr.Timeout() {
		return "Request timed out. Please try again."
	}
	if errors.Is(cause, syscall.ECONNREFUSED) || errors.Is(cause, syscall.ENETUNREACH) {
		return "No internet connection. Please check your network and try again."
	}
	var dnsErr *net.DNSError
	if errors.As(cause, &dnsErr) {
		return "No internet connection. Please check your network and try again."
	}
	return "Network error: " + causeText(cause)
}
