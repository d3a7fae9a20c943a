package canvas

import (
	"context"

	"multiblock/internal/domain/models/canvas"
)

// MessageRepository defines data access for block messages
type MessageRepository interface {
	// Create inserts a message; SizeBytes is derived from Content
	Create(ctx context.Context, msg *canvas.Message) error

	// GetByID retrieves a message by ID
	// Returns domain.ErrNotFound if not found
	GetByID(ctx context.Context, messageID string) (*canvas.Message, error)

	// GetLatestByRole returns the most recent message of a role in a block
	// Returns domain.ErrNotFound if the block has no such message
	GetLatestByRole(ctx context.Context, blockID, role string) (*canvas.Message, error)

	// ListByBlock returns the last limit messages in chronological order.
	// limit <= 0 returns the whole history.
	ListByBlock(ctx context.Context, blockID string, limit int) ([]canvas.Message, error)

	// UpdateContent replaces the content and recomputes the byte size
	// Returns domain.ErrNotFound if not found
	UpdateContent(ctx context.Context, messageID, content string) (*canvas.Message, error)
}
