package memory

import (
	"context"

	"multiblock/internal/domain/models/memory"
)

// MemoryRepository defines data access for board memory items
type MemoryRepository interface {
	// Create inserts an item and fills ID/timestamps
	Create(ctx context.Context, item *memory.Item) error

	// GetByID retrieves an item
	// Returns domain.ErrNotFound if not found
	GetByID(ctx context.Context, itemID string) (*memory.Item, error)

	// ListByBoard returns the full memory pool of a board ordered by creation
	ListByBoard(ctx context.Context, boardID string) ([]memory.Item, error)

	// Update persists type, scope, content and keywords
	// Returns domain.ErrNotFound if not found
	Update(ctx context.Context, item *memory.Item) error

	// Delete removes an item. Missing items are a no-op.
	Delete(ctx context.Context, itemID string) error
}
