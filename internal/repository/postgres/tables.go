package postgres

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig is shared by every postgres repository
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames carries the environment-prefixed relation names. ChangeChannel
// is the LISTEN/NOTIFY channel of the change feed.
type TableNames struct {
	Prefix        string
	Boards        string
	Blocks        string
	Messages      string
	Connections   string
	MemoryItems   string
	ChangeChannel string
}

// NewTableNames prefixes every table and the change channel
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Prefix:        prefix,
		Boards:        prefix + "boards",
		Blocks:        prefix + "blocks",
		Messages:      prefix + "messages",
		Connections:   prefix + "connections",
		MemoryItems:   prefix + "memory_items",
		ChangeChannel: prefix + "multiblock_changes",
	}
}
