package upserr

import (
	"encoding/json"
)

// ProviderErrorType classifies the error codes UPS documents for its APIs.
type ProviderErrorType int

const (
	ProviderErrorUnknown ProviderErrorType = iota
	ProviderErrorInvalidAddress
	ProviderErrorAuthentication
	ProviderErrorInvalidRequest
	ProviderErrorRateLimitExceeded
)

// ProviderError is one entry of the error list UPS returns in
// {"response":{"errors":[...]}}.
type ProviderError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

func (p ProviderError) Type() ProviderErrorType {
	switch p.Code {
	case "100910":
		return ProviderErrorInvalidAddress
	case "120002":
		return ProviderErrorAuthentication
	case "160002":
		return ProviderErrorInvalidRequest
	case "250003":
		return ProviderErrorRateLimitExceeded
	default:
		return ProviderErrorUnknown
	}
}

type providerErrorEnvelope struct {
	Response *struct {
		Errors []ProviderError `json:"errors"`
	} `json:"response"`
}

// ParseProviderErrors decodes a UPS error body. ok is false for bodies that
// are not JSON or do not have the expected shape.
func ParseProviderErrors(body []byte) ([]ProviderError, bool) {
	if len(body) == 0 {
		return nil, false
	}
	var env providerErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, false
	}
	if env.Response == nil || len(env.Response.Errors) == 0 {
		return nil, false
	}
	return env.Response.Errors, true
}
