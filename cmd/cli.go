package cmd

import (
	"os"

	"github.com/qodetech/pulsectl/pkg/clierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func Execute() {
	rootCmd, a := createRootCmd()

	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	err := rootCmd.Execute()
	closeStore(a)
	if err != nil {
		log.Error().Err(err).Msg("Command execution failed.")
		rootCmd.PrintErrln("Error:", err)
		os.Exit(clierr.ExitCode(err))
	}
}

func createRootCmd() (*cobra.Command, *app) {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "pulsectl",
		Short:         "Command-line client for the Pulse APIs",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", "", "Path to a .env file (default: ./.env)")
	flags.StringVar(&a.overrides.APIURL, "api-url", "", "General API base URL (or PULSE_API_URL)")
	flags.StringVar(&a.overrides.PyAPIURL, "py-api-url", "", "Python API base URL (or PULSE_PY_API_URL)")
	flags.StringVar(&a.overrides.DataAPIURL, "data-api-url", "", "Data API base URL (or PULSE_DATA_API_URL)")
	flags.StringVar(&a.overrides.ClientID, "client-id", "", "Client ID sent as X-Client-Id (or PULSE_CLIENT_ID)")
	flags.StringVar(&a.overrides.Store, "store", "", "Token store: sqlite, keyring, redis, memory (or PULSE_STORE)")
	flags.StringVar(&a.overrides.DBPath, "db-path", "", "SQLite credentials file (or PULSE_DB_PATH)")

	rootCmd.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		statusCmd(a),
		refreshCmd(a),
		getCmd(a),
		probeCmd(a),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd, a
}

func closeStore(a *app) {
	if err := a.teardown(); err != nil {
		log.Error().Err(err).Msg("Failed to close the token store.")
	}
}
