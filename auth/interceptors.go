package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qodetech/pulsectl/client"
	"github.com/rs/zerolog/log"
)

// Attach installs the token injector and the auth failure handler on cl. Every
// client sharing this coordinator's store must be attached to the same coordinator.
func (c *Coordinator) Attach(cl *client.Client) {
	cl.UseRequest(c.InjectToken)
	cl.UseResponse(c.HandleAuthFailure)
}

// InjectToken sets "Authorization: Bearer <access token>" when one is stored.
// A store failure is logged and the request goes out unauthenticated.
func (c *Coordinator) InjectToken(ctx context.Context, req *client.Request) error {
	rctx, cancel := context.WithTimeout(ctx, storeReadTimeout)
	defer cancel()

	token, err := c.tokens.Access(rctx)
	if err != nil {
		log.Warn().Err(err).Str("path", req.Path).Msg("Failed to read access token, sending request without it")
		return nil
	}
	if token != "" {
		c.observeAccess(token)
		req.SetBearer(token)
	}
	return nil
}

// HandleAuthFailure refreshes the session and replays req once when the backend
// rejects it as unauthenticated. Every other outcome passes through untouched.
// When the session cannot be recovered the caller gets the original error back.
func (c *Coordinator) HandleAuthFailure(ctx context.Context, cl *client.Client, req *client.Request, resp *client.Response, err error) (out *client.Response, outErr error) {
	if err == nil || req.NoRefresh || !c.isAuthFailure(err) {
		return resp, err
	}
	if req.Retried {
		log.Debug().Str("path", req.Path).Msg("Request rejected again after token refresh")
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			outErr = errors.Join(err, fmt.Errorf("auth failure handling panicked: %v", r))
			c.terminate(ctx, outErr)
		}
	}()

	rctx, cancel := context.WithTimeout(ctx, storeReadTimeout)
	defer cancel()

	// The store already holds a newer access token than the one this request was
	// sent with: a refresh finished after it went out. Replay without refreshing again.
	stored, aerr := c.tokens.Access(rctx)
	if aerr != nil {
		log.Debug().Err(aerr).Str("path", req.Path).Msg("Failed to read access token after auth failure")
	}
	if stored != "" && stored != sentBearer(req) {
		req.Retried = true
		req.SetBearer(stored)
		log.Debug().Str("backend", cl.Name()).Str("path", req.Path).Msg("Replaying request with newer stored token")
		return cl.Do(ctx, req)
	}

	refreshToken, rerr := c.tokens.Refresh(rctx)
	if rerr != nil {
		rerr = fmt.Errorf("failed to read refresh token: %w", rerr)
		c.terminate(ctx, rerr)
		return nil, errors.Join(err, rerr)
	}
	if refreshToken == "" {
		c.terminate(ctx, ErrNoRefreshToken)
		return nil, err
	}

	req.Retried = true
	token, ferr := c.EnsureFreshToken(ctx)
	if ferr != nil {
		log.Debug().Err(ferr).Str("path", req.Path).Msg("Token refresh failed, rejecting request")
		return nil, err
	}

	req.SetBearer(token)
	log.Debug().Str("backend", cl.Name()).Str("path", req.Path).Msg("Replaying request with refreshed token")
	return cl.Do(ctx, req)
}

// sentBearer returns the bearer token req was sent with, if any.
func sentBearer(req *client.Request) string {
	token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}
