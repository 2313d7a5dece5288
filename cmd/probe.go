package cmd

import (
	"context"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/qodetech/pulsectl/backend"
	"github.com/qodetech/pulsectl/client"
	"github.com/qodetech/pulsectl/pkg/clierr"
	"github.com/qodetech/pulsectl/pkg/pool"
	"github.com/qodetech/pulsectl/pkg/validation"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// probeCmd fires a burst of concurrent requests to check that an expired session
// is recovered with a single refresh.
func probeCmd(a *app) *cobra.Command {
	var requests, workers int

	cmd := &cobra.Command{
		Use:   "probe <backend> <path>",
		Short: "Send concurrent authenticated requests and report refresh behaviour",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateBackend(args[0], []string{backend.API, backend.Py, backend.Data}); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := validation.ValidateRequestCount(requests); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := validation.ValidateWorkerCount(workers); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			cl, err := a.reg.Client(args[0])
			if err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			path := args[1]
			items := make([]int, requests)
			for i := range items {
				items[i] = i
			}

			bar := progressbar.NewOptions(requests,
				progressbar.OptionSetDescription("Probing..."),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetWidth(20),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			coord := a.reg.Coordinator()
			before := coord.Refreshes()
			results := pool.Run(cmd.Context(), items, workers, func(ctx context.Context, _ int) (int, error) {
				defer func() { _ = bar.Add(1) }()
				resp, err := cl.Get(ctx, path)
				if err != nil {
					return client.StatusCode(err), err
				}
				return resp.StatusCode, nil
			})
			_ = bar.Finish()

			statuses := map[string]int{}
			failed := 0
			for _, r := range results {
				if r.Value == 0 {
					statuses["error"]++
				} else {
					statuses[strconv.Itoa(r.Value)]++
				}
				if r.Err != nil {
					failed++
				}
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Outcome", "Count"})
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			for _, key := range sortedKeys(statuses) {
				table.Append([]string{key, strconv.Itoa(statuses[key])})
			}
			table.Append([]string{"refreshes", strconv.FormatInt(coord.Refreshes()-before, 10)})
			table.Render()

			if failed > 0 {
				errs := pool.Errors(results)
				return requestError(errs[0])
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&requests, "requests", "n", 10, "Number of requests to send")
	cmd.Flags().IntVarP(&workers, "workers", "w", 5, "Number of concurrent workers")

	return cmd
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
