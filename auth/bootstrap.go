package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// bootstrapSkew is how close to expiry an access token may be before startup refreshes it.
const bootstrapSkew = 5 * time.Minute

// Bootstrap restores a session at startup. It reports false when there is no
// refresh token or the refresh failed (the store is cleared in that case). A JWT
// access token that is still valid for more than five minutes is kept as-is.
func (c *Coordinator) Bootstrap(ctx context.Context) (bool, error) {
	refreshToken, err := c.tokens.Refresh(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to retrieve refresh token: %w", err)
	}
	if refreshToken == "" {
		log.Info().Msg("No stored session")
		return false, nil
	}

	access, err := c.tokens.Access(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to retrieve access token: %w", err)
	}
	if exp, ok := AccessTokenExpiry(access); ok && time.Now().Add(bootstrapSkew).Before(exp) {
		log.Info().Time("expires_at", exp).Msg("Access token is still valid")
		return true, nil
	}

	if _, err := c.EnsureFreshToken(ctx); err != nil {
		return false, err
	}
	return true, nil
}
