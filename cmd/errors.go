package cmd

import (
	"errors"
	"net/http"

	"github.com/qodetech/pulsectl/auth"
	"github.com/qodetech/pulsectl/client"
	"github.com/qodetech/pulsectl/pkg/clierr"
)

// requestError turns a client or refresh error into a user-facing one.
func requestError(err error) error {
	var httpErr *client.HTTPError
	switch {
	case errors.Is(err, auth.ErrNoRefreshToken):
		return clierr.New(clierr.Auth, "Not logged in. Please run 'pulsectl login'.", err)
	case errors.Is(err, auth.ErrRefreshRejected):
		return clierr.New(clierr.Auth, "The session could not be refreshed. Please log in again.", err)
	case errors.Is(err, auth.ErrRefreshTransport):
		return clierr.New(clierr.Network, "The refresh endpoint could not be reached.", err)
	case client.IsStatus(err, http.StatusUnauthorized):
		return clierr.New(clierr.Auth, "Request was rejected as unauthenticated.", err)
	case client.IsStatus(err, http.StatusNotFound):
		return clierr.New(clierr.NotFound, "Resource not found.", err)
	case errors.As(err, &httpErr):
		return clierr.New(clierr.Internal, httpErr.Error(), err)
	default:
		return clierr.New(clierr.Network, "Request failed: "+err.Error(), err)
	}
}
