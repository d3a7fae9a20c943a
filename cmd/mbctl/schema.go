package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"multiblock/internal/repository/postgres"
)

func NewSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create tables and change-feed triggers",
		Long:  `Apply the Postgres schema for the configured table prefix. With --print the SQL is written to stdout instead.`,
		Args:  cobra.NoArgs,
		RunE:  runSchema,
	}

	cmd.Flags().Bool("print", false, "Print the SQL instead of applying it")

	return cmd
}

func runSchema(cmd *cobra.Command, _ []string) error {
	prefix, _ := cmd.Flags().GetString("prefix")
	printOnly, _ := cmd.Flags().GetBool("print")
	tables := postgres.NewTableNames(prefix)

	if printOnly {
		_, err := fmt.Fprint(cmd.OutOrStdout(), postgres.SchemaSQL(tables))
		return err
	}

	dbURL, _ := cmd.Flags().GetString("database-url")
	if dbURL == "" {
		return errors.New("database url is required (--database-url or SUPABASE_DB_URL)")
	}

	pool, err := postgres.CreateConnectionPool(cmd.Context(), dbURL, postgres.PoolOptions{MaxConns: 2})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	if err := postgres.ApplySchema(cmd.Context(), pool, tables); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "schema applied with prefix %q\n", tables.Prefix)
	return nil
}
