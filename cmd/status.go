package cmd

import (
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/qodetech/pulsectl/auth"
	"github.com/qodetech/pulsectl/pkg/clierr"
	"github.com/qodetech/pulsectl/store"
	"github.com/spf13/cobra"
)

// statusCmd shows what the token store currently holds.
func statusCmd(a *app) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord := a.reg.Coordinator()
			pair, loggedIn, err := coord.Tokens().Pair(cmd.Context())
			if err != nil {
				return clierr.New(clierr.Internal, "Failed to read the token store.", err)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Field", "Value"})
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAutoWrapText(false)
			table.SetRowLine(false)

			table.Append([]string{"Store", a.cfg.Store})
			table.Append([]string{"Logged in", yesNo(loggedIn)})
			table.Append([]string{"Access token", orNone(store.Mask(pair.AccessToken))})
			table.Append([]string{"Refresh token", orNone(store.Mask(pair.RefreshToken))})
			table.Append([]string{"Access token expires", expiryText(pair.AccessToken)})

			if remote && loggedIn {
				user, err := a.reg.Session().CurrentUser(cmd.Context())
				if err != nil {
					table.Render()
					return requestError(err)
				}
				table.Append([]string{"User", user.Email})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "Also fetch the signed-in user from the server")

	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func expiryText(accessToken string) string {
	exp, ok := auth.AccessTokenExpiry(accessToken)
	if !ok {
		return "unknown"
	}
	if time.Now().After(exp) {
		return exp.Local().Format(time.RFC3339) + " (expired)"
	}
	return exp.Local().Format(time.RFC3339) + " (in " + time.Until(exp).Round(time.Second).String() + ")"
}
