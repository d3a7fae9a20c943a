package canvas

import (
	"context"

	"multiblock/internal/domain/models/canvas"
)

// BoardRepository defines data access for boards
type BoardRepository interface {
	// Create inserts a board and fills ID/timestamps
	Create(ctx context.Context, board *canvas.Board) error

	// GetByID retrieves a board without user scoping.
	// Authorization is handled by the ResourceAuthorizer.
	// Returns domain.ErrNotFound if not found
	GetByID(ctx context.Context, boardID string) (*canvas.Board, error)

	// ListByUser returns the boards owned by a user, newest first
	ListByUser(ctx context.Context, userID string) ([]canvas.Board, error)
}

// BlockRepository defines data access for blocks
type BlockRepository interface {
	// Create inserts a block and fills ID/timestamps
	Create(ctx context.Context, block *canvas.Block) error

	// GetByID retrieves a block by ID
	// Returns domain.ErrNotFound if not found
	GetByID(ctx context.Context, blockID string) (*canvas.Block, error)

	// GetByIDs retrieves several blocks in one round trip.
	// Missing IDs are simply absent from the map.
	GetByIDs(ctx context.Context, blockIDs []string) (map[string]*canvas.Block, error)

	// ListByBoard returns all blocks of a board ordered by creation
	ListByBoard(ctx context.Context, boardID string) ([]canvas.Block, error)

	// Update persists title, model, system prompt and position
	// Returns domain.ErrNotFound if not found
	Update(ctx context.Context, block *canvas.Block) error

	// Delete removes a block together with its messages and every
	// connection that starts or ends at it. Missing blocks are a no-op.
	Delete(ctx context.Context, blockID string) error
}
