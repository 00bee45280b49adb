package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.yaml"

var (
	// cfgFile holds the path passed with --config.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           "architetti",
		Short:         "Procurement announcement watcher",
		Long:          `Scrapes competition and tender sites, deduplicates announcements per source and notifies new ones on Telegram.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is $CONFIG_PATH or ./config.yaml when present)",
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "architetti version %s\n", version)
		},
	})

	rootCmd.AddCommand(runCommand())
	rootCmd.AddCommand(onceCommand())
	rootCmd.AddCommand(sourcesCommand())
	rootCmd.AddCommand(configCommand())
	rootCmd.AddCommand(exportCommand())
}

// configPath resolves the YAML file to load. An empty result means defaults
// plus environment only.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}
