package auth

import (
	"strconv"
	"strings"
	"time"
)

// DefaultExpiresIn is used when the token response carries no usable expires_in.
const DefaultExpiresIn = 3600 * time.Second

// Token is an issued bearer credential. It is replaced wholesale on refresh and
// never mutated after creation.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	Scope       string
}

// NeedsRefresh reports whether the token expires within threshold of now.
// A token inside the threshold is still usable; it is refreshed proactively.
func (t *Token) NeedsRefresh(now time.Time, threshold time.Duration) bool {
	return !now.Before(t.ExpiresAt.Add(-threshold))
}

// Expired reports whether the token is past its expiry.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *Token) TimeUntilExpiry(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}

// AuthorizationHeader renders "{tokenType} {accessToken}".
func (t *Token) AuthorizationHeader() string {
	typ := strings.TrimSpace(t.TokenType)
	if typ == "" || strings.EqualFold(typ, "bearer") {
		typ = "Bearer"
	}
	return typ + " " + t.AccessToken
}

// tokenResponse is the body of a successful client-credentials exchange.
type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   flexibleSecs `json:"expires_in"`
	Scope       string       `json:"scope,omitempty"`
	IssuedAt    flexibleSecs `json:"issued_at,omitempty"`
	ClientID    string       `json:"client_id,omitempty"`
	Status      string       `json:"status,omitempty"`
}

// flexibleSecs accepts both "14399" and 14399. Anything else decodes as 0.
type flexibleSecs int64

func (f *flexibleSecs) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexibleSecs(n)
	return nil
}

// expiresAt computes the absolute expiry, defaulting to one hour.
func (r *tokenResponse) expiresAt(now time.Time) time.Time {
	d := time.Duration(r.ExpiresIn) * time.Second
	if d <= 0 {
		d = DefaultExpiresIn
	}
	return now.Add(d)
}

func tokenPreview(tok string) string {
	if len(tok) > 12 {
		return tok[:6] + "…" + tok[len(tok)-6:]
	}
	return "…"
}
