package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/qodetech/pulsectl/auth"
	"github.com/qodetech/pulsectl/client"
	"github.com/qodetech/pulsectl/events"
	"github.com/qodetech/pulsectl/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiServer accepts "Bearer <valid>" on /data, fails /boom with 500 and serves
// /public without authentication.
type apiServer struct {
	*httptest.Server

	mu    sync.Mutex
	valid string
	seen  []string
	hits  atomic.Int64
}

func newAPIServer(t *testing.T, valid string) *apiServer {
	t.Helper()
	s := &apiServer{valid: valid}
	mux := http.NewServeMux()
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		authz := s.record(r)
		if authz != "Bearer "+s.validToken() {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"token expired"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.record(r)
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/public", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.record(r)
		_, _ = w.Write([]byte(`{}`))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *apiServer) record(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	s.mu.Lock()
	s.seen = append(s.seen, authz)
	s.mu.Unlock()
	return authz
}

func (s *apiServer) validToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid
}

func (s *apiServer) setValid(token string) {
	s.mu.Lock()
	s.valid = token
	s.mu.Unlock()
}

func (s *apiServer) authHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

// mockRefresher is a hand-written TokenRefresher.
type mockRefresher struct {
	calls atomic.Int64

	before    func()
	pair      store.TokenPair
	err       error
	panicWith any
	onSuccess func(store.TokenPair)
}

func (m *mockRefresher) Refresh(_ context.Context, _ string) (store.TokenPair, error) {
	m.calls.Add(1)
	if m.before != nil {
		m.before()
	}
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	if m.err != nil {
		return store.TokenPair{}, m.err
	}
	if m.onSuccess != nil {
		m.onSuccess(m.pair)
	}
	return m.pair, nil
}

// failingKV fails every operation.
type failingKV struct{}

var errStoreDown = errors.New("store unavailable")

func (failingKV) Get(context.Context, string) (string, error) { return "", errStoreDown }
func (failingKV) Set(context.Context, string, string) error   { return errStoreDown }
func (failingKV) Delete(context.Context, string) error        { return errStoreDown }

type fixture struct {
	kv      *store.MemoryStore
	tokens  *store.Tokens
	bus     *events.Bus
	coord   *auth.Coordinator
	emitted *atomic.Int64
}

func newFixture(t *testing.T, refresher auth.TokenRefresher, pair store.TokenPair) *fixture {
	t.Helper()
	kv := store.NewMemoryStore()
	ctx := context.Background()
	if pair.AccessToken != "" {
		require.NoError(t, kv.Set(ctx, store.AccessTokenKey, pair.AccessToken))
	}
	if pair.RefreshToken != "" {
		require.NoError(t, kv.Set(ctx, store.RefreshTokenKey, pair.RefreshToken))
	}
	bus := events.NewBus()
	emitted := &atomic.Int64{}
	bus.Subscribe(func() { emitted.Add(1) })

	tokens := store.NewTokens(kv)
	return &fixture{
		kv:      kv,
		tokens:  tokens,
		bus:     bus,
		coord:   auth.NewCoordinator(tokens, refresher, bus, auth.WithRefreshTimeout(5*time.Second)),
		emitted: emitted,
	}
}

func (f *fixture) client(name string, srv *apiServer) *client.Client {
	cl := client.New(name, srv.URL, client.Plain(srv.Client()))
	f.coord.Attach(cl)
	return cl
}

func (f *fixture) pair(t *testing.T) store.TokenPair {
	t.Helper()
	pair, _, err := f.tokens.Pair(context.Background())
	require.NoError(t, err)
	return pair
}

// gateOn holds the refresh leader until n followers are queued behind it.
func gateOn(t *testing.T, coord *auth.Coordinator, n int) func() {
	return func() {
		assert.Eventually(t, func() bool { return coord.Waiting() == n }, 5*time.Second, 5*time.Millisecond)
	}
}

// getConcurrently issues n GETs at once and returns their errors in index order.
func getConcurrently(cl *client.Client, path string, n int) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cl.Get(context.Background(), path)
		}(i)
	}
	wg.Wait()
	return errs
}

func signedJWT(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func jwtExpiringIn(t *testing.T, d time.Duration) string {
	return signedJWT(t, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(d).Unix()})
}
