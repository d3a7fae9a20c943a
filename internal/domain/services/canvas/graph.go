package canvas

import (
	"context"

	"multiblock/internal/domain/models/canvas"
)

// GraphService manages the directed connection graph between blocks
type GraphService interface {
	// Create connects two blocks owned by the actor.
	// Returns *domain.SelfLoopError for from == to and *domain.OwnershipError
	// when either block is on a board the actor cannot access.
	Create(ctx context.Context, req *CreateConnectionRequest) (*canvas.Connection, error)

	// Update applies a partial update. Ownership is checked by the caller.
	Update(ctx context.Context, connectionID string, patch canvas.ConnectionPatch) error

	// Remove deletes a connection; removing a missing one is a no-op
	Remove(ctx context.Context, connectionID string) error

	// Toggle flips the enabled flag.
	// Returns nil without error when the connection does not exist.
	Toggle(ctx context.Context, connectionID string) (*canvas.Connection, error)

	// ListOutgoing returns all connections leaving a block (enabled or not)
	ListOutgoing(ctx context.Context, blockID string) ([]canvas.Connection, error)

	// ListIncoming returns all connections entering a block (enabled or not)
	ListIncoming(ctx context.Context, blockID string) ([]canvas.Connection, error)

	// ExistsBetween reports whether from->to already exists
	ExistsBetween(ctx context.Context, fromBlockID, toBlockID string) (bool, error)

	// ExistsBidirectional reports whether both a->b and b->a exist
	ExistsBidirectional(ctx context.Context, blockA, blockB string) (bool, error)

	// MakeBidirectional creates b->a when a->b exists and b->a does not.
	// Returns nil when the reverse edge is already present.
	MakeBidirectional(ctx context.Context, userID, blockA, blockB string) (*canvas.Connection, error)
}

// CreateConnectionRequest is the DTO for creating a connection
type CreateConnectionRequest struct {
	UserID            string             `json:"-"`
	FromBlockID       string             `json:"from_block"`
	ToBlockID         string             `json:"to_block"`
	ContextType       canvas.ContextType `json:"context_type"`
	TransformTemplate *string            `json:"transform_template,omitempty"`
}
