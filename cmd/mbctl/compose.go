package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"multiblock/internal/config"
	"multiblock/internal/domain/models/canvas"
	"multiblock/internal/repository/postgres"
	"multiblock/internal/service"
	"multiblock/internal/service/invalidation"
)

func NewComposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose <block-id>",
		Short: "Print the composed context of a block",
		Long:  `Compose memory and incoming block context for a block straight from the database.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runCompose,
	}

	cmd.Flags().String("composer-config", "", "YAML file overriding composer budgets")

	return cmd
}

func runCompose(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	blockID := args[0]

	dbURL, _ := cmd.Flags().GetString("database-url")
	if dbURL == "" {
		return errors.New("database url is required (--database-url or SUPABASE_DB_URL)")
	}
	prefix, _ := cmd.Flags().GetString("prefix")
	composerPath, _ := cmd.Flags().GetString("composer-config")

	settings, err := config.LoadComposerSettings(composerPath)
	if err != nil {
		return err
	}

	pool, err := postgres.CreateConnectionPool(ctx, dbURL, postgres.PoolOptions{MaxConns: 2})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	// Logs stay off stdout so the output can be piped
	logger := config.NewLogger(slog.LevelWarn, cmd.ErrOrStderr())

	repos := service.NewPostgresRepositories(pool, postgres.NewTableNames(prefix), logger)
	services := service.SetupServices(ctx, repos, settings, invalidation.DefaultBreakerSettings(), nil, nil, logger)

	block, err := repos.Blocks.GetByID(ctx, blockID)
	if err != nil {
		return fmt.Errorf("load block: %w", err)
	}

	composed, err := services.Composer.ComposeContext(ctx, block.BoardID, block.ID)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	return writeComposed(cmd.OutOrStdout(), composed, asJSON)
}

func writeComposed(w io.Writer, composed *canvas.ComposedContext, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(composed)
	}
	if composed.Degraded {
		fmt.Fprintln(w, "# degraded: some sources could not be read")
	}
	_, err := fmt.Fprintln(w, composed.Content)
	return err
}
