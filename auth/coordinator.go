package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qodetech/pulsectl/client"
	"github.com/qodetech/pulsectl/events"
	"github.com/qodetech/pulsectl/store"
	"github.com/rs/zerolog/log"
)

const (
	defaultRefreshTimeout = 10 * time.Second
	storeReadTimeout      = 2 * time.Second
)

// RefreshState is Idle or Refreshing.
type RefreshState int

const (
	Idle RefreshState = iota
	Refreshing
)

func (s RefreshState) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

type refreshResult struct {
	token string
	err   error
}

// Coordinator guarantees at most one refresh in flight for a token store and is
// shared by every client that uses that store.
type Coordinator struct {
	tokens        *store.Tokens
	refresher     TokenRefresher
	bus           *events.Bus
	timeout       time.Duration
	isAuthFailure func(error) bool

	mu          sync.Mutex
	state       RefreshState
	waiters     []chan refreshResult
	terminated  bool
	endedAccess string // access token stored when the last session ended

	refreshes atomic.Int64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRefreshTimeout bounds the refresh network call. Followers are gated on it.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAuthFailure replaces the default "HTTP 401" test for backends that signal
// an unauthenticated caller differently.
func WithAuthFailure(fn func(error) bool) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.isAuthFailure = fn
		}
	}
}

// NewCoordinator creates a Coordinator in the Idle state.
func NewCoordinator(tokens *store.Tokens, refresher TokenRefresher, bus *events.Bus, opts ...Option) *Coordinator {
	c := &Coordinator{
		tokens:    tokens,
		refresher: refresher,
		bus:       bus,
		timeout:   defaultRefreshTimeout,
		isAuthFailure: func(err error) bool {
			return client.IsStatus(err, http.StatusUnauthorized)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Tokens() *store.Tokens { return c.tokens }
func (c *Coordinator) Bus() *events.Bus      { return c.bus }

// State returns the current refresh state.
func (c *Coordinator) State() RefreshState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Waiting returns the number of followers blocked on the in-flight refresh.
func (c *Coordinator) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Refreshes returns how many refresh calls have been issued so far.
func (c *Coordinator) Refreshes() int64 {
	return c.refreshes.Load()
}

// MarkAuthenticated re-arms session termination after a fresh token pair was stored.
func (c *Coordinator) MarkAuthenticated() {
	c.mu.Lock()
	c.terminated = false
	c.mu.Unlock()
}

// observeAccess re-arms session termination when the store holds an access token
// other than the one of the session that ended last. The store may be shared with
// other processes that log in on their own.
func (c *Coordinator) observeAccess(token string) {
	if token == "" {
		return
	}
	c.mu.Lock()
	if c.terminated && token != c.endedAccess {
		c.terminated = false
	}
	c.mu.Unlock()
}

// EnsureFreshToken returns a newly refreshed access token. The first caller while
// Idle becomes the leader and performs the refresh; callers arriving during the
// refresh wait for the leader's outcome. On failure the session has already been
// terminated when this returns.
func (c *Coordinator) EnsureFreshToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == Refreshing {
		w := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, w)
		position := len(c.waiters)
		c.mu.Unlock()

		log.Debug().Int("position", position).Msg("Waiting for in-flight token refresh")
		select {
		case r := <-w:
			return r.token, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.state = Refreshing
	c.mu.Unlock()

	return c.lead(ctx)
}

func (c *Coordinator) lead(ctx context.Context) (token string, err error) {
	defer func() {
		if r := recover(); r != nil {
			token = ""
			err = fmt.Errorf("%w: %v", ErrRefreshPanicked, r)
			c.terminate(ctx, err)
		}
		c.finish(token, err)
	}()
	return c.refresh(ctx)
}

func (c *Coordinator) refresh(ctx context.Context) (string, error) {
	// The refresh is shared with every follower, so one caller cancelling must not abort it.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	refreshToken, err := c.tokens.Refresh(rctx)
	if err != nil {
		err = fmt.Errorf("failed to read refresh token: %w", err)
		c.terminate(rctx, err)
		return "", err
	}
	if refreshToken == "" {
		c.terminate(rctx, ErrNoRefreshToken)
		return "", ErrNoRefreshToken
	}

	c.refreshes.Add(1)
	log.Info().Str("refresh_token", store.Mask(refreshToken)).Msg("Refreshing access token")
	pair, err := c.refresher.Refresh(rctx, refreshToken)
	if err != nil {
		c.terminate(rctx, err)
		return "", err
	}
	if err := c.tokens.Save(rctx, pair); err != nil {
		err = fmt.Errorf("failed to save refreshed token: %w", err)
		c.terminate(rctx, err)
		return "", err
	}
	c.MarkAuthenticated()
	log.Info().Msg("Token refreshed and saved successfully.")
	return pair.AccessToken, nil
}

// finish returns the coordinator to Idle and releases every waiter exactly once, in enqueue order.
func (c *Coordinator) finish(token string, err error) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.state = Idle
	c.mu.Unlock()

	for _, w := range waiters {
		w <- refreshResult{token: token, err: err}
	}
	log.Debug().Int("waiters", len(waiters)).Bool("ok", err == nil).Msg("Token refresh cycle finished")
}

// terminate clears the store and, once per termination episode, emits the
// unauthenticated event.
func (c *Coordinator) terminate(ctx context.Context, cause error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeReadTimeout)
	defer cancel()
	access, err := c.tokens.Access(cctx)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to read access token before clearing")
	}
	if err := c.tokens.Clear(cctx); err != nil {
		log.Error().Err(err).Msg("Failed to clear token store")
	}

	c.mu.Lock()
	if access != "" {
		c.endedAccess = access
	}
	first := !c.terminated
	c.terminated = true
	c.mu.Unlock()

	if !first {
		log.Debug().Err(cause).Msg("Session already terminated")
		return
	}
	log.Warn().Err(cause).Msg("Session terminated")
	if c.bus != nil {
		c.bus.Emit()
	}
}

// Terminate ends the session explicitly (e.g. the server revoked it out of band).
func (c *Coordinator) Terminate(ctx context.Context, cause error) {
	if cause == nil {
		cause = errors.New("session terminated")
	}
	c.terminate(ctx, cause)
}
