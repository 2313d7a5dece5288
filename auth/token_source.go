package auth

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// TokenSource exposes the stored session as an oauth2.TokenSource so
// oauth2-aware libraries can share the same credentials and refresh cycle.
func (c *Coordinator) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, co: c}
}

type tokenSource struct {
	ctx context.Context
	co  *Coordinator
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	access, err := ts.co.tokens.Access(ts.ctx)
	if err != nil {
		return nil, err
	}
	exp, hasExp := AccessTokenExpiry(access)
	if access == "" || (hasExp && !time.Now().Before(exp)) {
		if access, err = ts.co.EnsureFreshToken(ts.ctx); err != nil {
			return nil, err
		}
		exp, hasExp = AccessTokenExpiry(access)
	}

	refresh, err := ts.co.tokens.Refresh(ts.ctx)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
	if hasExp {
		tok.Expiry = exp
	}
	return tok, nil
}
