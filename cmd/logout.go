package cmd

import (
	"github.com/qodetech/pulsectl/pkg/clierr"
	"github.com/spf13/cobra"
)

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.reg.Session().Logout(cmd.Context()); err != nil {
				return clierr.New(clierr.Internal, "Failed to clear the session.", err)
			}
			cmd.Println("Logged out.")
			return nil
		},
	}
}
