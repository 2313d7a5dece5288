package cmd

import (
	"github.com/qodetech/pulsectl/backend"
	"github.com/qodetech/pulsectl/pkg/clierr"
	"github.com/qodetech/pulsectl/pkg/validation"
	"github.com/spf13/cobra"
)

// getCmd performs an authenticated GET and prints the response body.
func getCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <backend> <path>",
		Short: "Send an authenticated GET request",
		Long:  "Send an authenticated GET request to one of the backends (api, py, data) and print the response body.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateBackend(args[0], []string{backend.API, backend.Py, backend.Data}); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			cl, err := a.reg.Client(args[0])
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			resp, err := cl.Get(cmd.Context(), args[1])
			if err != nil {
				return requestError(err)
			}
			cmd.Println(string(resp.Body))
			return nil
		},
	}
}
