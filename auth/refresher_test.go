package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/qodetech/pulsectl/auth"
	"github.com/qodetech/pulsectl/client"
	"github.com/qodetech/pulsectl/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestHTTPRefresher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/refresh-token", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "native", r.Header.Get("X-Client-Type"))
		assert.Equal(t, "client-1", r.Header.Get("X-Client-Id"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "R1", body["refreshToken"])
		_, _ = w.Write([]byte(`{"accessToken":"A1","refreshToken":"R2"}`))
	}))
	defer srv.Close()

	r := auth.NewHTTPRefresher(srv.URL+"/auth/refresh-token", "client-1", client.Plain(srv.Client()))
	pair, err := r.Refresh(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, store.TokenPair{AccessToken: "A1", RefreshToken: "R2"}, pair)
}

func TestHTTPRefresher_KeepsRefreshTokenWithoutRotation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-Client-Id"))
		_, _ = w.Write([]byte(`{"accessToken":"A1"}`))
	}))
	defer srv.Close()

	r := auth.NewHTTPRefresher(srv.URL, "", client.Plain(srv.Client()))
	pair, err := r.Refresh(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, store.TokenPair{AccessToken: "A1", RefreshToken: "R1"}, pair)
}

func TestHTTPRefresher_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"refresh token revoked"}`))
	}))
	defer srv.Close()

	r := auth.NewHTTPRefresher(srv.URL, "", client.Plain(srv.Client()))
	_, err := r.Refresh(context.Background(), "R1")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrRefreshRejected)

	var re *oauth2.RetrieveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusBadRequest, re.Response.StatusCode)
	assert.Contains(t, string(re.Body), "revoked")
}

func TestHTTPRefresher_MalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"not json":        `<html>oops</html>`,
		"no access token": `{"refreshToken":"R2"}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			r := auth.NewHTTPRefresher(srv.URL, "", client.Plain(srv.Client()))
			_, err := r.Refresh(context.Background(), "R1")
			assert.ErrorIs(t, err, auth.ErrRefreshRejected)
		})
	}
}

func TestHTTPRefresher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	r := auth.NewHTTPRefresher(url, "", nil)
	_, err := r.Refresh(context.Background(), "R1")
	assert.ErrorIs(t, err, auth.ErrRefreshTransport)
}

func TestHTTPRefresher_WithCoordinator(t *testing.T) {
	api := newAPIServer(t, "A1")
	refreshSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accessToken":"A1","refreshToken":"R2"}`))
	}))
	defer refreshSrv.Close()

	f := newFixture(t, auth.NewHTTPRefresher(refreshSrv.URL, "", client.Plain(refreshSrv.Client())),
		store.TokenPair{AccessToken: "A0", RefreshToken: "R1"})
	cl := f.client("api", api)

	_, err := cl.Get(context.Background(), "/data")
	require.NoError(t, err)
	assert.Equal(t, store.TokenPair{AccessToken: "A1", RefreshToken: "R2"}, f.pair(t))
}

func TestAccessTokenExpiry(t *testing.T) {
	_, ok := auth.AccessTokenExpiry("")
	assert.False(t, ok)

	_, ok = auth.AccessTokenExpiry("opaque-token")
	assert.False(t, ok)

	_, ok = auth.AccessTokenExpiry(signedJWT(t, jwt.MapClaims{"sub": "user-1"}))
	assert.False(t, ok)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := auth.AccessTokenExpiry(signedJWT(t, jwt.MapClaims{"exp": exp.Unix()}))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))
}

func TestHTTPRefresher_RejectionEndsSession(t *testing.T) {
	api := newAPIServer(t, "A1")
	refreshSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer refreshSrv.Close()

	f := newFixture(t, auth.NewHTTPRefresher(refreshSrv.URL, "", client.Plain(refreshSrv.Client())),
		store.TokenPair{AccessToken: "A0", RefreshToken: "R1"})
	cl := f.client("api", api)

	_, err := cl.Get(context.Background(), "/data")
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))
	assert.NotErrorIs(t, err, auth.ErrRefreshRejected)
	assert.Equal(t, store.TokenPair{}, f.pair(t))
	assert.EqualValues(t, 1, f.emitted.Load())
}
