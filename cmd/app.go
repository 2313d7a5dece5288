package cmd

import (
	"sync"

	"github.com/qodetech/pulsectl/backend"
	"github.com/qodetech/pulsectl/client"
	"github.com/qodetech/pulsectl/config"
	"github.com/qodetech/pulsectl/events"
	"github.com/qodetech/pulsectl/pkg/clierr"
	"github.com/spf13/cobra"
)

const sessionExpiredMsg = "Session expired. Please run 'pulsectl login'."

// app is the state shared by every command of one invocation.
type app struct {
	envFile   string
	overrides config.Overrides

	cfg        *config.Config
	bus        *events.Bus
	reg        *backend.Registry
	closeStore func() error
	unsub      func()
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile, a.overrides)
	if err != nil {
		return clierr.New(clierr.Validation, err.Error(), err)
	}

	kv, closeStore, err := backend.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return clierr.New(clierr.Internal, "Failed to open the token store.", err)
	}

	doer, err := client.NewTransport(cfg.RequestTimeout)
	if err != nil {
		_ = closeStore()
		return clierr.New(clierr.Internal, "Failed to create the HTTP transport.", err)
	}

	a.cfg = cfg
	a.closeStore = closeStore
	a.bus = events.NewBus()
	var once sync.Once
	a.unsub = a.bus.Subscribe(func() {
		once.Do(func() { cmd.PrintErrln(sessionExpiredMsg) })
	})
	a.reg = backend.New(cfg, kv, a.bus, doer)
	return nil
}

// teardown releases the token store. It is safe to call more than once.
func (a *app) teardown() error {
	if a.unsub != nil {
		a.unsub()
		a.unsub = nil
	}
	if a.closeStore == nil {
		return nil
	}
	closeFn := a.closeStore
	a.closeStore = nil
	return closeFn()
}
