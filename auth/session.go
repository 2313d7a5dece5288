package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/qodetech/pulsectl/client"
	"github.com/qodetech/pulsectl/store"
	"github.com/rs/zerolog/log"
)

// User is the account returned by the login and profile endpoints.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// Paths are the account endpoints of the backend a Session talks to.
type Paths struct {
	Login      string
	Logout     string
	Me         string
	OAuthLogin string
}

// DefaultPaths are the python API routes.
func DefaultPaths() Paths {
	return Paths{
		Login:      "/login",
		Logout:     "/logout",
		Me:         "/auth/me",
		OAuthLogin: "/auth/oauth-login",
	}
}

// OAuthIdentity is what a social login screen hands over after the provider flow.
type OAuthIdentity struct {
	Provider       string         `json:"provider"`
	ProviderUserID string         `json:"provider_user_id"`
	Email          string         `json:"email"`
	Username       string         `json:"username"`
	FullName       *string        `json:"full_name"`
	OAuthPayload   map[string]any `json:"oauth_payload"`
}

// Session implements login, logout and profile calls on top of a client that is
// attached to the coordinator.
type Session struct {
	client *client.Client
	coord  *Coordinator
	paths  Paths
}

func NewSession(cl *client.Client, coord *Coordinator, paths Paths) *Session {
	return &Session{client: cl, coord: coord, paths: paths}
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

// Login exchanges email and password for a token pair and stores it.
func (s *Session) Login(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password cannot be empty")
	}
	req, err := client.NewRequest(http.MethodPost, s.paths.Login, map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	// Bad credentials answer 401; that must not be mistaken for an expired session.
	req.NoRefresh = true

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return s.storeLogin(ctx, resp)
}

// OAuthLogin registers or signs in a user identified by an external provider.
func (s *Session) OAuthLogin(ctx context.Context, identity OAuthIdentity) (*User, error) {
	req, err := client.NewRequest(http.MethodPost, s.paths.OAuthLogin, identity)
	if err != nil {
		return nil, err
	}
	req.NoRefresh = true

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		if detail := errorDetail(err); detail != "" {
			return nil, fmt.Errorf("%s: %w", detail, err)
		}
		return nil, fmt.Errorf("oauth login failed: %w", err)
	}
	return s.storeLogin(ctx, resp)
}

func (s *Session) storeLogin(ctx context.Context, resp *client.Response) (*User, error) {
	var out loginResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, err
	}
	if err := s.coord.tokens.Save(ctx, store.TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	s.coord.MarkAuthenticated()
	log.Info().Msg("Logged in")
	return out.User, nil
}

// Logout revokes the refresh token on the server when possible and always clears
// the local store.
func (s *Session) Logout(ctx context.Context) error {
	refreshToken, err := s.coord.tokens.Refresh(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read refresh token for logout")
	}
	if refreshToken != "" {
		if _, err := s.client.Post(ctx, s.paths.Logout, map[string]string{"refreshToken": refreshToken}); err != nil {
			log.Warn().Err(err).Msg("Server logout failed, clearing local session anyway")
		}
	}
	if err := s.coord.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	log.Info().Msg("Logged out")
	return nil
}

// CurrentUser fetches the signed-in user's profile.
func (s *Session) CurrentUser(ctx context.Context) (*User, error) {
	resp, err := s.client.Get(ctx, s.paths.Me)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data *User `json:"data"`
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, errors.New("profile response has no user data")
	}
	return out.Data, nil
}

// errorDetail extracts {"detail": "..."} from an HTTP error body.
func errorDetail(err error) string {
	var httpErr *client.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Response == nil {
		return ""
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(httpErr.Response.Body, &body) != nil {
		return ""
	}
	return body.Detail
}
