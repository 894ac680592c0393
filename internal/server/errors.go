package server

import (
	"net/http"
	"strconv"

	"github.com/dvcrn/ups-proxy/internal/upserr"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// httpStatusFor picks the façade status for an error outcome. Carrier 4xx
// answers pass through since they describe the caller's input.
func httpStatusFor(e *upserr.Error) int {
	switch e.Kind {
	case upserr.KindInvalidURL:
		return http.StatusBadRequest
	case upserr.KindInvalidResponse:
		return http.StatusUnprocessableEntity
	case upserr.KindRateLimited:
		return http.StatusTooManyRequests
	case upserr.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case upserr.KindHTTPStatus:
		if e.StatusCode >= 400 && e.StatusCode <= 499 {
			return e.StatusCode
		}
		return http.StatusBadGateway
	case upserr.KindNetwork, upserr.KindRetryLimitExceeded:
		return http.StatusBadGateway
	case upserr.KindAuthFailed, upserr.KindInvalidCredentials, upserr.KindTokenExpired,
		upserr.KindTokenRefreshFailed, upserr.KindServerError, upserr.KindDecoding:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := upserr.Wrap(err)
	status := httpStatusFor(e)

	evt := s.logger.Error()
	if status < 500 {
		evt = s.logger.Warn()
	}
	evt.Err(err).
		Str("kind", e.Kind.String()).
		Str("uri", r.RequestURI).
		Int("status", status).
		Msg("❌ Request failed")

	if e.Kind == upserr.KindRateLimited && e.RetryAfter != nil {
		w.Header().Set("Retry-After", strconv.Itoa(int(e.RetryAfter.Seconds())))
	}
	writeJSONError(w, status, e.Kind.String(), e.UserMessage(), e.StatusCode)
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string, upstreamStatus int) {
	writeJSON(w, status, errorBody{Error: errorDetail{
		Kind:    kind,
		Message: message,
		Status:  upstreamStatus,
	}})
}
