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

const messageColumns = "id, block_id, role, content, size_bytes, metadata, created_at"

// PostgresMessageRepository implements the MessageRepository interface using PostgreSQL
type PostgresMessageRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewMessageRepository creates a new PostgresMessageRepository
func NewMessageRepository(config *postgres.RepositoryConfig) canvasRepo.MessageRepository {
	return &PostgresMessageRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a message. The insert trigger publishes message_inserted.
func (r *PostgresMessageRepository) Create(ctx context.Context, msg *canvas.Message) error {
	msg.SetContent(msg.Content)

	query := fmt.Sprintf(`
		INSERT INTO %s (block_id, role, content, size_bytes, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
		RETURNING id, created_at
	`, r.tables.Messages)

	var createdAt interface{}
	if !msg.CreatedAt.IsZero() {
		createdAt = msg.CreatedAt
	}

	executor := postgres.Executor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		msg.BlockID,
		msg.Role,
		msg.Content,
		msg.SizeBytes,
		msg.Metadata,
		createdAt,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("block %s: %w", msg.BlockID, domain.ErrNotFound)
		}
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

// GetByID retrieves a message by ID
func (r *PostgresMessageRepository) GetByID(ctx context.Context, messageID string) (*canvas.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, messageColumns, r.tables.Messages)

	executor := postgres.Executor(ctx, r.pool)
	msg, err := scanMessage(executor.QueryRow(ctx, query, messageID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get message: %w", err)
	}

	return msg, nil
}

// GetLatestByRole returns the newest message of a role in a block
func (r *PostgresMessageRepository) GetLatestByRole(ctx context.Context, blockID, role string) (*canvas.Message, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE block_id = $1 AND role = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, messageColumns, r.tables.Messages)

	executor := postgres.Executor(ctx, r.pool)
	msg, err := scanMessage(executor.QueryRow(ctx, query, blockID, role))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("no %s message in block %s: %w", role, blockID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get latest message: %w", err)
	}

	return msg, nil
}

// ListByBlock returns the last limit messages, oldest first
func (r *PostgresMessageRepository) ListByBlock(ctx context.Context, blockID string, limit int) ([]canvas.Message, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s FROM (
			SELECT %[1]s FROM %[2]s
			WHERE block_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at, id
	`, messageColumns, r.tables.Messages)

	// LIMIT NULL returns every row
	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}

	executor := postgres.Executor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, blockID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []canvas.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// UpdateContent replaces content and byte size
func (r *PostgresMessageRepository) UpdateContent(ctx context.Context, messageID, content string) (*canvas.Message, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET content = $1, size_bytes = $2
		WHERE id = $3
		RETURNING %s
	`, r.tables.Messages, messageColumns)

	executor := postgres.Executor(ctx, r.pool)
	msg, err := scanMessage(executor.QueryRow(ctx, query, content, len(content), messageID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update message: %w", err)
	}

	return msg, nil
}

func scanMessage(row pgx.Row) (*canvas.Message, error) {
	var msg canvas.Message
	err := row.Scan(
		&msg.ID,
		&msg.BlockID,
		&msg.Role,
		&msg.Content,
		&msg.SizeBytes,
		&msg.Metadata,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
