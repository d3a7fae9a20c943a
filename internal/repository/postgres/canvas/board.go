package canvas

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
	canvasRepo "multiblock/internal/domain/repositories/canvas"
	"multiblock/internal/repository/postgres"
)

// PostgresBoardRepository implements the BoardRepository interface using PostgreSQL
type PostgresBoardRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewBoardRepository creates a new PostgresBoardRepository
func NewBoardRepository(config *postgres.RepositoryConfig) canvasRepo.BoardRepository {
	return &PostgresBoardRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a board
func (r *PostgresBoardRepository) Create(ctx context.Context, board *canvas.Board) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, team_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, r.tables.Boards)

	executor := postgres.Executor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		board.UserID,
		board.TeamID,
		board.Title,
		board.CreatedAt,
		board.UpdatedAt,
	).Scan(&board.ID, &board.CreatedAt, &board.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create board: %w", err)
	}

	return nil
}

// GetByID retrieves a board by ID
func (r *PostgresBoardRepository) GetByID(ctx context.Context, boardID string) (*canvas.Board, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, team_id, title, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Boards)

	var board canvas.Board
	executor := postgres.Executor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, boardID).Scan(
		&board.ID,
		&board.UserID,
		&board.TeamID,
		&board.Title,
		&board.CreatedAt,
		&board.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get board: %w", err)
	}

	return &board, nil
}

// ListByUser returns a user's boards, newest first
func (r *PostgresBoardRepository) ListByUser(ctx context.Context, userID string) ([]canvas.Board, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, team_id, title, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, r.tables.Boards)

	executor := postgres.Executor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	boards := []canvas.Board{}
	for rows.Next() {
		var board canvas.Board
		if err := rows.Scan(
			&board.ID,
			&board.UserID,
			&board.TeamID,
			&board.Title,
			&board.CreatedAt,
			&board.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, board)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}

	return boards, nil
}
