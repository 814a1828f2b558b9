// Command steamtracker keeps Steam game prices in sync and emails users when
// their price alerts fire.
//
// Usage:
//
//	steamtracker serve --config config.toml
//	steamtracker sync --config config.toml
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var configPath, envPath string
	root := &cobra.Command{
		Use:           "steamtracker",
		Short:         "Steam price tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to the TOML config file")
	root.PersistentFlags().StringVar(&envPath, "env", ".env", "Path to the env file holding secrets")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the sync scheduler and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, envPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(configPath, envPath)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
