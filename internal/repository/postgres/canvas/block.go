package canvas

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
	canvasRepo "multiblock/internal/domain/repositories/canvas"
	"multiblock/internal/repository/postgres"
)

const blockColumns = "id, board_id, title, model, system_prompt, position_x, position_y, created_at, updated_at"

// PostgresBlockRepository implements the BlockRepository interface using PostgreSQL
type PostgresBlockRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewBlockRepository creates a new PostgresBlockRepository
func NewBlockRepository(config *postgres.RepositoryConfig) canvasRepo.BlockRepository {
	return &PostgresBlockRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a block
func (r *PostgresBlockRepository) Create(ctx context.Context, block *canvas.Block) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (board_id, title, model, system_prompt, position_x, position_y, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, r.tables.Blocks)

	executor := postgres.Executor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		block.BoardID,
		block.Title,
		block.Model,
		block.SystemPrompt,
		block.PositionX,
		block.PositionY,
		block.CreatedAt,
		block.UpdatedAt,
	).Scan(&block.ID, &block.CreatedAt, &block.UpdatedAt)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("board %s: %w", block.BoardID, domain.ErrNotFound)
		}
		return fmt.Errorf("create block: %w", err)
	}

	return nil
}

// GetByID retrieves a block by ID
func (r *PostgresBlockRepository) GetByID(ctx context.Context, blockID string) (*canvas.Block, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, blockColumns, r.tables.Blocks)

	executor := postgres.Executor(ctx, r.pool)
	block, err := scanBlock(executor.QueryRow(ctx, query, blockID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("block %s: %w", blockID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get block: %w", err)
	}

	return block, nil
}

// GetByIDs retrieves several blocks in one query
func (r *PostgresBlockRepository) GetByIDs(ctx context.Context, blockIDs []string) (map[string]*canvas.Block, error) {
	result := make(map[string]*canvas.Block, len(blockIDs))
	if len(blockIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1)`, blockColumns, r.tables.Blocks)

	executor := postgres.Executor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, blockIDs)
	if err != nil {
		return nil, fmt.Errorf("get blocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		result[block.ID] = block
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}

	return result, nil
}

// ListByBoard returns the blocks of a board in creation order
func (r *PostgresBlockRepository) ListByBoard(ctx context.Context, boardID string) ([]canvas.Block, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE board_id = $1
		ORDER BY created_at, id
	`, blockColumns, r.tables.Blocks)

	executor := postgres.Executor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, boardID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	blocks := []canvas.Block{}
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, *block)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}

	return blocks, nil
}

// Update persists a block's mutable fields
func (r *PostgresBlockRepository) Update(ctx context.Context, block *canvas.Block) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, model = $2, system_prompt = $3, position_x = $4, position_y = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`, r.tables.Blocks)

	executor := postgres.Executor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		block.Title,
		block.Model,
		block.SystemPrompt,
		block.PositionX,
		block.PositionY,
		block.ID,
	).Scan(&block.UpdatedAt)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return fmt.Errorf("block %s: %w", block.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("update block: %w", err)
	}

	return nil
}

// Delete removes a block; messages and connections go with it through
// ON DELETE CASCADE and memory provenance is nulled.
func (r *PostgresBlockRepository) Delete(ctx context.Context, blockID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Blocks)

	executor := postgres.Executor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, blockID); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}

	return nil
}

func scanBlock(row pgx.Row) (*canvas.Block, error) {
	var block canvas.Block
	err := row.Scan(
		&block.ID,
		&block.BoardID,
		&block.Title,
		&block.Model,
		&block.SystemPrompt,
		&block.PositionX,
		&block.PositionY,
		&block.CreatedAt,
		&block.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &block, nil
}
