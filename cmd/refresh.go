package cmd

import (
	"github.com/qodetech/pulsectl/pkg/clierr"
	"github.com/spf13/cobra"
)

// refreshCmd forces a refresh cycle, or only refreshes a token close to expiry with --if-needed.
func refreshCmd(a *app) *cobra.Command {
	var ifNeeded bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord := a.reg.Coordinator()

			if ifNeeded {
				ok, err := coord.Bootstrap(cmd.Context())
				if err != nil {
					return requestError(err)
				}
				if !ok {
					return clierr.New(clierr.Auth, "Not logged in. Please run 'pulsectl login'.", nil)
				}
				cmd.Println("Session is valid.")
				return nil
			}

			if _, err := coord.EnsureFreshToken(cmd.Context()); err != nil {
				return requestError(err)
			}
			cmd.Println("Access token refreshed.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&ifNeeded, "if-needed", false, "Only refresh when the access token expires within five minutes")

	return cmd
}
