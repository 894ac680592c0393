package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dvcrn/ups-proxy/internal/auth"
	"github.com/dvcrn/ups-proxy/internal/ups"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies accepted by the façade.
const maxBodyBytes = 1 << 20

type AddressValidator interface {
	Validate(ctx context.Context, req ups.AddressValidationRequest) (*ups.XAVResponse, error)
}

type Rater interface {
	Rate(ctx context.Context, option ups.RateOption, req ups.RateRequest, version string) (*ups.RateResponse, error)
	QuickShop(ctx context.Context, q ups.QuickShipment) (*ups.RateResponse, error)
}

// TokenManager is the admin view of the token cache.
type TokenManager interface {
	Token(ctx context.Context) (*auth.Token, error)
	Invalidate()
	Status() auth.TokenStatus
}

type Server struct {
	validator AddressValidator
	rater     Rater
	tokens    TokenManager
	adminKey  string
	router    *mux.Router
	logger    zerolog.Logger
}

func New(logger zerolog.Logger, validator AddressValidator, rater Rater, tokens TokenManager, adminKey string) *Server {
	s := &Server{
		validator: validator,
		rater:     rater,
		tokens:    tokens,
		adminKey:  adminKey,
		router:    mux.NewRouter(),
		logger:    logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/address/validate", s.validateAddressHandler).Methods(http.MethodPost)
	v1.HandleFunc("/rating/quick", s.quickShopHandler).Methods(http.MethodPost)
	v1.HandleFunc("/rating/{option}", s.rateHandler).Methods(http.MethodPost)

	admin := s.router.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminMiddleware)
	admin.HandleFunc("/token/status", s.tokenStatusHandler).Methods(http.MethodGet)
	admin.HandleFunc("/token/invalidate", s.tokenInvalidateHandler).Methods(http.MethodPost)
	admin.HandleFunc("/token/refresh", s.tokenRefreshHandler).Methods(http.MethodPost)

	// Subrouters do not inherit the root's handlers.
	methodNotAllowed := http.HandlerFunc(s.methodNotAllowedHandler)
	s.router.NotFoundHandler = http.HandlerFunc(s.notFoundHandler)
	s.router.MethodNotAllowedHandler = methodNotAllowed
	v1.MethodNotAllowedHandler = methodNotAllowed
	admin.MethodNotAllowedHandler = methodNotAllowed
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.loggingMiddleware(s.router).ServeHTTP(w, r)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("Incoming request")
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Finished request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn().
		Str("method", r.Method).
		Str("uri", r.RequestURI).
		Str("remote_addr", r.RemoteAddr).
		Str("user_agent", r.UserAgent()).
		Msg("Unhandled route")
	writeJSONError(w, http.StatusNotFound, "not_found", "Not found", 0)
}

func (s *Server) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", 0)
}

func (s *Server) validateAddressHandler(w http.ResponseWriter, r *http.Request) {
	var req ups.AddressValidationRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.RequestOption == 0 {
		req.RequestOption = ups.OptionValidation
	}
	if req.Address.CountryCode == "" {
		req.Address.CountryCode = "US"
	}

	res, err := s.validator.Validate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		*ups.XAVResponse
		Valid     bool `json:"valid"`
		Ambiguous bool `json:"ambiguous"`
		NoMatch   bool `json:"noCandidates"`
	}{res, res.IsValid(), res.IsAmbiguous(), res.HasNoCandidates()})
}

func (s *Server) rateHandler(w http.ResponseWriter, r *http.Request) {
	option, ok := ups.ParseRateOption(mux.Vars(r)["option"])
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "Unknown rating option, expected shop, rate or shoptimeintransit", 0)
		return
	}

	var req ups.RateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.rater.Rate(r.Context(), option, req, r.URL.Query().Get("version"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// quickShopHandler prices a single package between two postal codes and
// returns a flattened summary alongside the raw rates.
func (s *Server) quickShopHandler(w http.ResponseWriter, r *http.Request) {
	var q ups.QuickShipment
	if !s.decodeBody(w, r, &q) {
		return
	}
	if q.FromZip == "" || q.ToZip == "" || q.WeightLbs <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "fromZip, toZip and a positive weightLbs are required", 0)
		return
	}

	res, err := s.rater.QuickShop(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	type quote struct {
		ServiceCode string `json:"serviceCode"`
		Service     string `json:"service"`
		Price       string `json:"price"`
		Delivery    string `json:"delivery,omitempty"`
	}
	quotes := make([]quote, 0, len(res.RatedShipment))
	for _, rs := range res.RatedShipment {
		quotes = append(quotes, quote{
			ServiceCode: rs.Service.Code,
			Service:     rs.ServiceName(),
			Price:       rs.FormattedPrice(),
			Delivery:    rs.DeliveryEstimate(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quotes":       quotes,
		"rateResponse": res,
	})
}

func (s *Server) tokenStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tokens.Status())
}

func (s *Server) tokenInvalidateHandler(w http.ResponseWriter, r *http.Request) {
	s.tokens.Invalidate()
	s.logger.Info().Msg("Token invalidated via admin API")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Token invalidated",
	})
}

// tokenRefreshHandler forces a new token exchange and reports the result.
func (s *Server) tokenRefreshHandler(w http.ResponseWriter, r *http.Request) {
	s.tokens.Invalidate()
	if _, err := s.tokens.Token(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tokens.Status())
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.logger.Warn().Err(err).Str("uri", r.RequestURI).Msg("Failed to parse request body")
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body: "+err.Error(), 0)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
