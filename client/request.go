package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Request is a replayable description of an HTTP call. The body is kept as bytes
// so the same Request can be sent again after a token refresh.
type Request struct {
	Method string
	// Path is resolved against the client's base URL unless it is already absolute.
	Path   string
	Header http.Header
	Body   []byte

	// Retried marks a request that has already been replayed once after an
	// authentication failure. A second authentication failure is returned as-is.
	Retried bool
	// NoRefresh opts the request out of refresh handling entirely (login calls).
	NoRefresh bool
}

// NewRequest builds a Request. A non-nil body is encoded as JSON.
func NewRequest(method, path string, body any) (*Request, error) {
	req := &Request{Method: method, Path: path, Header: make(http.Header)}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		req.Body = data
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// SetBearer sets the Authorization header.
func (r *Request) SetBearer(token string) {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set("Authorization", "Bearer "+token)
}

// Response is a fully read HTTP response.
type Response struct {
	Request    *Request
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", r.Request.Path, err)
	}
	return nil
}

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Request  *Request
	Response *Response
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: unexpected HTTP status: %d %s. Body: %s",
		e.Request.Method, e.Request.Path, e.Response.StatusCode,
		http.StatusText(e.Response.StatusCode), preview(e.Response.Body))
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Response != nil {
		return httpErr.Response.StatusCode
	}
	return 0
}

// IsStatus reports whether err is an HTTPError with the given status.
func IsStatus(err error, code int) bool {
	return StatusCode(err) == code
}

func preview(body []byte) string {
	return string(body[:min(len(body), 200)])
}
