package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"multiblock/internal/domain"
	"multiblock/internal/domain/models/memory"
	memoryRepo "multiblock/internal/domain/repositories/memory"
	"multiblock/internal/repository/postgres"
)

const itemColumns = "id, board_id, user_id, type, content, scope, source_block_id, source_message_id, keywords, created_at, updated_at"

// PostgresMemoryRepository implements the MemoryRepository interface using PostgreSQL
type PostgresMemoryRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewMemoryRepository creates a new PostgresMemoryRepository
func NewMemoryRepository(config *postgres.RepositoryConfig) memoryRepo.MemoryRepository {
	return &PostgresMemoryRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a memory item
func (r *PostgresMemoryRepository) Create(ctx context.Context, item *memory.Item) error {
	if item.Keywords == nil {
		item.Keywords = []string{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (board_id, user_id, type, content, scope, source_block_id, source_message_id, keywords, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, r.tables.MemoryItems)

	executor := postgres.Executor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		item.BoardID,
		item.UserID,
		string(item.Type),
		item.Content,
		string(item.Scope),
		item.SourceBlockID,
		item.SourceMessageID,
		item.Keywords,
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("memory item references a missing board, block or message: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create memory item: %w", err)
	}

	return nil
}

// GetByID retrieves a memory item by ID
func (r *PostgresMemoryRepository) GetByID(ctx context.Context, itemID string) (*memory.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, itemColumns, r.tables.MemoryItems)

	executor := postgres.Executor(ctx, r.pool)
	item, err := scanItem(executor.QueryRow(ctx, query, itemID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("memory item %s: %w", itemID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get memory item: %w", err)
	}

	return item, nil
}

// ListByBoard returns the memory pool of a board in creation order
func (r *PostgresMemoryRepository) ListByBoard(ctx context.Context, boardID string) ([]memory.Item, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE board_id = $1
		ORDER BY created_at, id
	`, itemColumns, r.tables.MemoryItems)

	executor := postgres.Executor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, boardID)
	if err != nil {
		return nil, fmt.Errorf("list memory items: %w", err)
	}
	defer rows.Close()

	items := []memory.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory items: %w", err)
	}

	return items, nil
}

// Update persists type, scope, content and keywords
func (r *PostgresMemoryRepository) Update(ctx context.Context, item *memory.Item) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET type = $1, scope = $2, content = $3, keywords = $4, updated_at = $5
		WHERE id = $6
	`, r.tables.MemoryItems)

	executor := postgres.Executor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		string(item.Type),
		string(item.Scope),
		item.Content,
		item.Keywords,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update memory item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("memory item %s: %w", item.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a memory item
func (r *PostgresMemoryRepository) Delete(ctx context.Context, itemID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.MemoryItems)

	executor := postgres.Executor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, itemID); err != nil {
		return fmt.Errorf("delete memory item: %w", err)
	}

	return nil
}

func scanItem(row pgx.Row) (*memory.Item, error) {
	var item memory.Item
	var itemType, scope string
	err := row.Scan(
		&item.ID,
		&item.BoardID,
		&item.UserID,
		&itemType,
		&item.Content,
		&scope,
		&item.SourceBlockID,
		&item.SourceMessageID,
		&item.Keywords,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Type = memory.ItemType(itemType)
	item.Scope = memory.Scope(scope)
	return &item, nil
}
