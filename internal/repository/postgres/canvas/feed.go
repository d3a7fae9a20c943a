package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"multiblock/internal/domain/models/canvas"
	canvasRepo "multiblock/internal/domain/repositories/canvas"
	"multiblock/internal/repository/postgres"
)

// PostgresChangeFeed implements ChangeFeed with LISTEN/NOTIFY. Each
// subscription holds one pooled connection for its lifetime.
type PostgresChangeFeed struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewChangeFeed creates a new PostgresChangeFeed
func NewChangeFeed(config *postgres.RepositoryConfig) canvasRepo.ChangeFeed {
	return &PostgresChangeFeed{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Subscribe listens on the change channel and forwards the events of boards
// owned by userID
func (f *PostgresChangeFeed) Subscribe(ctx context.Context, userID string) (<-chan canvas.ChangeEvent, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}

	channel := pgx.Identifier{f.tables.ChangeChannel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", f.tables.ChangeChannel, err)
	}

	events := make(chan canvas.ChangeEvent, 64)
	go func() {
		defer close(events)
		defer func() {
			// Leave the pooled connection clean for the next user
			if _, err := conn.Exec(context.Background(), "UNLISTEN *"); err != nil {
				conn.Conn().Close(context.Background())
			}
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					f.logger.Error("change feed stopped", "error", err, "user_id", userID)
				}
				return
			}

			var ev canvas.ChangeEvent
			if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil {
				f.logger.Warn("dropping malformed change event", "payload", n.Payload, "error", err)
				continue
			}
			if ev.UserID != userID {
				continue
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
