package main

import (
	"github.com/spf13/cobra"

	"multiblock/internal/config"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mbctl",
		Short:         "Operate the multiblock context engine",
		Long:          `Schema bootstrap, context composition and keyword inspection for multiblock boards.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)

	rootCmd.AddCommand(
		NewSchemaCmd(),
		NewComposeCmd(),
		NewKeywordsCmd(),
	)

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cfg := config.Load()
	cmd.PersistentFlags().String("database-url", cfg.SupabaseDBURL, "Postgres connection string")
	cmd.PersistentFlags().String("prefix", cfg.TablePrefix, "Table prefix")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
}
