package canvas

import (
	"context"

	"multiblock/internal/domain/models/canvas"
)

// ConnectionRepository defines data access for block connections.
// Listings are ordered by creation time.
type ConnectionRepository interface {
	// Create inserts a connection and fills ID/CreatedAt
	Create(ctx context.Context, conn *canvas.Connection) error

	// GetByID retrieves a connection
	// Returns domain.ErrNotFound if not found
	GetByID(ctx context.Context, connectionID string) (*canvas.Connection, error)

	// Update persists context type, template and enabled flag
	// Returns domain.ErrNotFound if not found
	Update(ctx context.Context, conn *canvas.Connection) error

	// Delete removes a connection. Missing connections are a no-op.
	Delete(ctx context.Context, connectionID string) error

	// ListIncoming returns every connection ending at blockID
	ListIncoming(ctx context.Context, blockID string) ([]canvas.Connection, error)

	// ListOutgoing returns every connection starting at blockID
	ListOutgoing(ctx context.Context, blockID string) ([]canvas.Connection, error)

	// ListByBoard returns every connection between blocks of a board
	ListByBoard(ctx context.Context, boardID string) ([]canvas.Connection, error)

	// ExistsBetween reports whether at least one from->to connection exists
	ExistsBetween(ctx context.Context, fromBlockID, toBlockID string) (bool, error)
}
