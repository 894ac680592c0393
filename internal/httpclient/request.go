package httpclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Request describes one logical HTTP call. It is copied by value for every
// attempt so retries never observe mutations made by a previous attempt.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Clone returns a copy whose header map and body can be modified freely.
func (r Request) Clone() Request {
	out := r
	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// WithHeader returns a copy of r with key set to value.
func (r Request) WithHeader(key, value string) Request {
	out := r.Clone()
	out.Header.Set(key, value)
	return out
}

// NewJSONRequest encodes v as the body and sets JSON content headers.
func NewJSONRequest(method, rawURL string, v any) (Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Request{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	return Request{Method: method, URL: rawURL, Header: h, Body: body}, nil
}

// NewFormRequest encodes form as an application/x-www-form-urlencoded body.
func NewFormRequest(method, rawURL string, form url.Values) Request {
	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return Request{Method: method, URL: rawURL, Header: h, Body: []byte(form.Encode())}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Preview returns the body truncated for logging.
func (r *Response) Preview(limit int) string {
	s := string(r.Body)
	if limit > 0 && len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "…(truncated)"
	}
	return strings.TrimSpace(s)
}
