package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/qodetech/pulsectl/client"
	"github.com/qodetech/pulsectl/store"
	"golang.org/x/oauth2"
)

// HTTPRefresher calls POST <URL> with {"refreshToken": ...} and expects
// {"accessToken": ..., "refreshToken": ...} back.
type HTTPRefresher struct {
	URL      string
	ClientID string
	doer     client.Doer
}

// NewHTTPRefresher creates a refresher for the given endpoint. The doer should not
// retry: a rotated refresh token must never be spent twice.
func NewHTTPRefresher(url, clientID string, doer client.Doer) *HTTPRefresher {
	if doer == nil {
		doer = client.Plain(nil)
	}
	return &HTTPRefresher{URL: url, ClientID: clientID, doer: doer}
}

// Refresh implements TokenRefresher.
func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (store.TokenPair, error) {
	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return store.TokenPair{}, fmt.Errorf("failed to encode refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(payload))
	if err != nil {
		return store.TokenPair{}, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Type", "native")
	if r.ClientID != "" {
		req.Header.Set("X-Client-Id", r.ClientID)
	}

	resp, err := r.doer.DoWithContext(ctx, req)
	if err != nil {
		return store.TokenPair{}, fmt.Errorf("%w: %w", ErrRefreshTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return store.TokenPair{}, fmt.Errorf("%w: failed to read response: %w", ErrRefreshTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return store.TokenPair{}, fmt.Errorf("%w: %w", ErrRefreshRejected, &oauth2.RetrieveError{Response: resp, Body: body})
	}

	var result struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return store.TokenPair{}, fmt.Errorf("%w: failed to parse response: %w", ErrRefreshRejected, err)
	}
	if result.AccessToken == "" {
		return store.TokenPair{}, fmt.Errorf("%w: response has no access token", ErrRefreshRejected)
	}

	// Servers without rotation omit the refresh token; keep using the current one.
	if result.RefreshToken == "" {
		result.RefreshToken = refreshToken
	}
	return store.TokenPair{AccessToken: result.AccessToken, RefreshToken: result.RefreshToken}, nil
}
