package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestNewTableNames(t *testing.T) {
	tables := NewTableNames("test_")

	assert.Equal(t, "test_boards", tables.Boards)
	assert.Equal(t, "test_blocks", tables.Blocks)
	assert.Equal(t, "test_messages", tables.Messages)
	assert.Equal(t, "test_connections", tables.Connections)
	assert.Equal(t, "test_memory_items", tables.MemoryItems)
	assert.Equal(t, "test_multiblock_changes", tables.ChangeChannel)
}

func TestSchemaSQL(t *testing.T) {
	tests := []struct {
		prefix string
	}{
		{prefix: "dev_"},
		{prefix: "prod_"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			tables := NewTableNames(tt.prefix)
			sql := SchemaSQL(tables)

			assert.NotContains(t, sql, "{{")
			for _, table := range []string{tables.Boards, tables.Blocks, tables.Messages, tables.Connections, tables.MemoryItems} {
				assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table+" ")
			}
			assert.Contains(t, sql, tables.ChangeChannel)
		})
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		duplicate  bool
		foreignKey bool
		noRows     bool
		retryable  bool
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, duplicate: true},
		{name: "foreign key violation", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), foreignKey: true},
		{name: "no rows", err: fmt.Errorf("get: %w", pgx.ErrNoRows), noRows: true},
		{name: "serialization failure", err: fmt.Errorf("commit transaction: %w", &pgconn.PgError{Code: "40001"}), retryable: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, retryable: true},
		{name: "other", err: fmt.Errorf("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.duplicate, IsPgDuplicateError(tt.err))
			assert.Equal(t, tt.foreignKey, IsPgForeignKeyError(tt.err))
			assert.Equal(t, tt.noRows, IsPgNoRowsError(tt.err))
			assert.Equal(t, tt.retryable, IsPgRetryableError(tt.err))
		})
	}
}
