package services

import "context"

// ResourceAuthorizer checks if a user can access boards and the resources
// hanging off them. Ownership is resolved through the parent board.
//
// Services call the authorizer before mutating resources; denials are
// returned as *domain.OwnershipError.
type ResourceAuthorizer interface {
	// CanAccessBoard checks if user owns (or, for team boards, is a member of) a board
	CanAccessBoard(ctx context.Context, userID, boardID string) error

	// CanAccessBlock checks access through the block's board
	CanAccessBlock(ctx context.Context, userID, blockID string) error

	// CanAccessConnection checks access through the connection's source block
	CanAccessConnection(ctx context.Context, userID, connectionID string) error

	// CanAccessMessage checks access through the message's block
	CanAccessMessage(ctx context.Context, userID, messageID string) error

	// CanAccessMemoryItem checks access through the item's board
	CanAccessMemoryItem(ctx context.Context, userID, itemID string) error
}

// TeamMembership answers team-board access questions. Team membership and
// roles are managed outside this module.
type TeamMembership interface {
	IsMember(ctx context.Context, userID, teamID string) (bool, error)
}
