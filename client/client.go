package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RequestInterceptor may mutate an outgoing request. Returning an error aborts the call.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor observes the outcome of a call and may replace it.
// It receives the client so it can replay req through the same pipeline.
type ResponseInterceptor func(ctx context.Context, c *Client, req *Request, resp *Response, err error) (*Response, error)

// Client sends Requests against one backend.
type Client struct {
	name    string
	baseURL string
	header  http.Header
	doer    Doer

	mu       sync.RWMutex
	requestI []RequestInterceptor
	respI    []ResponseInterceptor
}

// Option configures a Client.
type Option func(*Client)

// WithHeader adds a default header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if value != "" {
			c.header.Set(key, value)
		}
	}
}

// New creates a Client named name (used in logs) rooted at baseURL.
func New(name, baseURL string, doer Doer, opts ...Option) *Client {
	c := &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  make(http.Header),
		doer:    doer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string    { return c.name }
func (c *Client) BaseURL() string { return c.baseURL }

// UseRequest appends a request interceptor.
func (c *Client) UseRequest(fn RequestInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestI = append(c.requestI, fn)
}

// UseResponse appends a response interceptor.
func (c *Client) UseResponse(fn ResponseInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.respI = append(c.respI, fn)
}

// Do runs the request interceptors, sends req, and passes the outcome through the
// response interceptors in registration order.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	c.mu.RLock()
	reqI := append([]RequestInterceptor(nil), c.requestI...)
	respI := append([]ResponseInterceptor(nil), c.respI...)
	c.mu.RUnlock()

	if req.Header == nil {
		req.Header = make(http.Header)
	}
	for _, fn := range reqI {
		if err := fn(ctx, req); err != nil {
			return nil, err
		}
	}

	resp, err := c.send(ctx, req)
	for _, fn := range respI {
		resp, err = fn(ctx, c, req, resp, err)
	}
	return resp, err
}

// Get is a shorthand for a body-less GET.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	req, err := NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Post sends body as JSON.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	req, err := NewRequest(http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// send performs a single HTTP exchange and checks the status.
func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	urlStr := c.resolve(req.Path)

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, urlStr, body)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", urlStr).Msg("Failed to create HTTP request object")
		return nil, err
	}
	for k, vs := range c.header {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range req.Header {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	httpReq.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-Id", requestID)

	logger := log.With().Str("backend", c.name).Str("method", req.Method).Str("url", urlStr).Str("request_id", requestID).Logger()
	logger.Debug().Bool("retried", req.Retried).Msg("Sending HTTP request")

	httpResp, err := c.doer.DoWithContext(ctx, httpReq)
	if err != nil {
		logger.Error().Err(err).Msg("HTTP request failed")
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}

	data, err := readResponseBody(httpResp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	resp := &Response{Request: req, StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Debug().Int("status", resp.StatusCode).Str("body", preview(data)).Msg("HTTP request returned non-OK status")
		return nil, &HTTPError{Request: req, Response: resp}
	}
	logger.Debug().Int("status", resp.StatusCode).Msg("HTTP request successful")
	return resp, nil
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read response body")
		return nil, err
	}
	return body, nil
}
