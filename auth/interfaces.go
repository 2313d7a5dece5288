package auth

import (
	"context"

	"github.com/qodetech/pulsectl/store"
)

// TokenRefresher defines the contract for any component that can exchange a refresh
// token for a new token pair.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (store.TokenPair, error)
}

// TokenRefresherFunc adapts a function to TokenRefresher.
type TokenRefresherFunc func(ctx context.Context, refreshToken string) (store.TokenPair, error)

func (f TokenRefresherFunc) Refresh(ctx context.Context, refreshToken string) (store.TokenPair, error) {
	return f(ctx, refreshToken)
}
