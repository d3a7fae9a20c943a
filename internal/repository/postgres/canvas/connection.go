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

const connectionColumns = "id, from_block, to_block, context_type, transform_template, enabled, created_at"

// PostgresConnectionRepository implements the ConnectionRepository interface using PostgreSQL
type PostgresConnectionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewConnectionRepository creates a new PostgresConnectionRepository
func NewConnectionRepository(config *postgres.RepositoryConfig) canvasRepo.ConnectionRepository {
	return &PostgresConnectionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a connection, stamping the source block's board
func (r *PostgresConnectionRepository) Create(ctx context.Context, conn *canvas.Connection) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (board_id, from_block, to_block, context_type, transform_template, enabled, created_at)
		SELECT b.board_id, $1, $2, $3, $4, $5, $6
		FROM %s b
		WHERE b.id = $1
		RETURNING id, created_at
	`, r.tables.Connections, r.tables.Blocks)

	executor := postgres.Executor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		conn.FromBlockID,
		conn.ToBlockID,
		string(conn.ContextType),
		conn.TransformTemplate,
		conn.Enabled,
		conn.CreatedAt,
	).Scan(&conn.ID, &conn.CreatedAt)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return fmt.Errorf("block %s: %w", conn.FromBlockID, domain.ErrNotFound)
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("block %s: %w", conn.ToBlockID, domain.ErrNotFound)
		}
		return fmt.Errorf("create connection: %w", err)
	}

	return nil
}

// GetByID retrieves a connection by ID
func (r *PostgresConnectionRepository) GetByID(ctx context.Context, connectionID string) (*canvas.Connection, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, connectionColumns, r.tables.Connections)

	executor := postgres.Executor(ctx, r.pool)
	conn, err := scanConnection(executor.QueryRow(ctx, query, connectionID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("connection %s: %w", connectionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}

	return conn, nil
}

// Update persists context type, template and enabled flag
func (r *PostgresConnectionRepository) Update(ctx context.Context, conn *canvas.Connection) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET context_type = $1, transform_template = $2, enabled = $3
		WHERE id = $4
	`, r.tables.Connections)

	executor := postgres.Executor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		string(conn.ContextType),
		conn.TransformTemplate,
		conn.Enabled,
		conn.ID,
	)
	if err != nil {
		return fmt.Errorf("update connection: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("connection %s: %w", conn.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a connection
func (r *PostgresConnectionRepository) Delete(ctx context.Context, connectionID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Connections)

	executor := postgres.Executor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, connectionID); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}

	return nil
}

// ListIncoming returns every connection ending at blockID
func (r *PostgresConnectionRepository) ListIncoming(ctx context.Context, blockID string) ([]canvas.Connection, error) {
	return r.list(ctx, "to_block = $1", blockID)
}

// ListOutgoing returns every connection starting at blockID
func (r *PostgresConnectionRepository) ListOutgoing(ctx context.Context, blockID string) ([]canvas.Connection, error) {
	return r.list(ctx, "from_block = $1", blockID)
}

// ListByBoard returns every connection of a board
func (r *PostgresConnectionRepository) ListByBoard(ctx context.Context, boardID string) ([]canvas.Connection, error) {
	return r.list(ctx, "board_id = $1", boardID)
}

// ExistsBetween reports whether a from->to connection exists
func (r *PostgresConnectionRepository) ExistsBetween(ctx context.Context, fromBlockID, toBlockID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE from_block = $1 AND to_block = $2)
	`, r.tables.Connections)

	var exists bool
	executor := postgres.Executor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, fromBlockID, toBlockID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check connection: %w", err)
	}

	return exists, nil
}

func (r *PostgresConnectionRepository) list(ctx context.Context, where string, arg string) ([]canvas.Connection, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY created_at, id
	`, connectionColumns, r.tables.Connections, where)

	executor := postgres.Executor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	conns := []canvas.Connection{}
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, *conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}

	return conns, nil
}

func scanConnection(row pgx.Row) (*canvas.Connection, error) {
	var conn canvas.Connection
	var contextType string
	err := row.Scan(
		&conn.ID,
		&conn.FromBlockID,
		&conn.ToBlockID,
		&contextType,
		&conn.TransformTemplate,
		&conn.Enabled,
		&conn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	conn.ContextType = canvas.ContextType(contextType)
	return &conn, nil
}
