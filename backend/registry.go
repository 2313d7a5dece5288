// Package backend wires the configured API clients to one shared token store and
// refresh coordinator.
package backend

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/qodetech/pulsectl/auth"
	"github.com/qodetech/pulsectl/client"
	"github.com/qodetech/pulsectl/config"
	"github.com/qodetech/pulsectl/events"
	"github.com/qodetech/pulsectl/store"
)

// Backend names.
const (
	API  = "api"
	Py   = "py"
	Data = "data"
)

// Registry holds one client per backend. All clients share a single coordinator.
type Registry struct {
	coord   *auth.Coordinator
	clients map[string]*client.Client
	session *auth.Session
}

// New builds the api, py and data clients on top of kv. doer is the transport used
// for regular API calls; the refresh call always goes out without retries.
func New(cfg *config.Config, kv store.KV, bus *events.Bus, doer client.Doer) *Registry {
	tokens := store.NewTokens(kv)
	refresher := auth.NewHTTPRefresher(cfg.RefreshURL, cfg.ClientID,
		client.Plain(&http.Client{Timeout: cfg.RefreshTimeout}))
	coord := auth.NewCoordinator(tokens, refresher, bus, auth.WithRefreshTimeout(cfg.RefreshTimeout))

	nativeHeaders := []client.Option{
		client.WithHeader("X-Client-Type", "native"),
		client.WithHeader("X-Client-Id", cfg.ClientID),
	}
	clients := map[string]*client.Client{
		API:  client.New(API, cfg.APIURL, doer, nativeHeaders...),
		Py:   client.New(Py, cfg.PyAPIURL, doer, nativeHeaders...),
		Data: client.New(Data, cfg.DataAPIURL, doer),
	}
	for _, cl := range clients {
		coord.Attach(cl)
	}

	paths := auth.DefaultPaths()
	paths.Login = cfg.LoginPath
	paths.Logout = cfg.LogoutPath
	paths.Me = cfg.MePath

	return &Registry{
		coord:   coord,
		clients: clients,
		session: auth.NewSession(clients[Py], coord, paths),
	}
}

// Client returns the client registered under name.
func (r *Registry) Client(name string) (*client.Client, error) {
	cl, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend: %s", name)
	}
	return cl, nil
}

// Names lists the registered backends in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Coordinator() *auth.Coordinator { return r.coord }
func (r *Registry) Session() *auth.Session         { return r.session }
