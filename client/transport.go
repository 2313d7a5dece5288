package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	retry "github.com/appleboy/go-httpretry"
)

// Doer executes a prepared *http.Request. *retry.Client satisfies it.
type Doer interface {
	DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error)
}

// NewTransport returns a retrying Doer. Transport errors and 5xx responses are
// retried with backoff; authentication failures (401) are returned immediately.
func NewTransport(timeout time.Duration) (Doer, error) {
	base := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
	rc, err := retry.NewClient(retry.WithHTTPClient(base))
	if err != nil {
		return nil, fmt.Errorf("failed to create retry client: %w", err)
	}
	return rc, nil
}

// Plain adapts an *http.Client to Doer without retries.
func Plain(hc *http.Client) Doer {
	if hc == nil {
		hc = http.DefaultClient
	}
	return plainDoer{hc}
}

type plainDoer struct{ hc *http.Client }

func (p plainDoer) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return p.hc.Do(req.WithContext(ctx))
}
