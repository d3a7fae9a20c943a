package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaTemplate string

// SchemaSQL renders the schema for the configured table prefix
func SchemaSQL(tables *TableNames) string {
	return strings.NewReplacer(
		"{{prefix}}", tables.Prefix,
		"{{channel}}", tables.ChangeChannel,
	).Replace(schemaTemplate)
}

// ApplySchema creates tables, indexes and notify triggers if missing.
// It is idempotent.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, SchemaSQL(tables)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
