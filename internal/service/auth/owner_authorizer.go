package auth

import (
	"context"
	"errors"
	"fmt"

	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
	canvasRepo "multiblock/internal/domain/repositories/canvas"
	memoryRepo "multiblock/internal/domain/repositories/memory"
	"multiblock/internal/domain/services"
)

// OwnerBasedAuthorizer implements ResourceAuthorizer using board ownership.
// Every resource resolves to a board; the actor must own it, or be a member
// of its team when the board belongs to one.
type OwnerBasedAuthorizer struct {
	boardRepo   canvasRepo.BoardRepository
	blockRepo   canvasRepo.BlockRepository
	messageRepo canvasRepo.MessageRepository
	connRepo    canvasRepo.ConnectionRepository
	memoryRepo  memoryRepo.MemoryRepository
	teams       services.TeamMembership
}

// NewOwnerBasedAuthorizer creates a new ownership-based authorizer.
// teams may be nil, in which case team boards are only open to their owner.
func NewOwnerBasedAuthorizer(
	boardRepo canvasRepo.BoardRepository,
	blockRepo canvasRepo.BlockRepository,
	messageRepo canvasRepo.MessageRepository,
	connRepo canvasRepo.ConnectionRepository,
	memoryRepo memoryRepo.MemoryRepository,
	teams services.TeamMembership,
) *OwnerBasedAuthorizer {
	return &OwnerBasedAuthorizer{
		boardRepo:   boardRepo,
		blockRepo:   blockRepo,
		messageRepo: messageRepo,
		connRepo:    connRepo,
		memoryRepo:  memoryRepo,
		teams:       teams,
	}
}

// CanAccessBoard checks if user owns the board or belongs to its team
func (a *OwnerBasedAuthorizer) CanAccessBoard(ctx context.Context, userID, boardID string) error {
	board, err := a.boardRepo.GetByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.OwnershipError{UserID: userID, ResourceType: "board", ResourceID: boardID}
		}
		return fmt.Errorf("check board access: %w", err)
	}

	return a.checkBoard(ctx, userID, board)
}

// CanAccessBlock checks if user can access a block (via its board)
func (a *OwnerBasedAuthorizer) CanAccessBlock(ctx context.Context, userID, blockID string) error {
	block, err := a.blockRepo.GetByID(ctx, blockID)
	if err != nil {
		return fmt.Errorf("get block for auth: %w", err)
	}

	err = a.CanAccessBoard(ctx, userID, block.BoardID)
	if errors.Is(err, domain.ErrForbidden) {
		return &domain.OwnershipError{UserID: userID, ResourceType: "block", ResourceID: blockID}
	}
	return err
}

// CanAccessConnection checks if user can access a connection (via its source block)
func (a *OwnerBasedAuthorizer) CanAccessConnection(ctx context.Context, userID, connectionID string) error {
	conn, err := a.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("get connection for auth: %w", err)
	}

	return a.CanAccessBlock(ctx, userID, conn.FromBlockID)
}

// CanAccessMessage checks if user can access a message (via its block)
func (a *OwnerBasedAuthorizer) CanAccessMessage(ctx context.Context, userID, messageID string) error {
	msg, err := a.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("get message for auth: %w", err)
	}

	return a.CanAccessBlock(ctx, userID, msg.BlockID)
}

// CanAccessMemoryItem checks if user can access a memory item (via its board)
func (a *OwnerBasedAuthorizer) CanAccessMemoryItem(ctx context.Context, userID, itemID string) error {
	item, err := a.memoryRepo.GetByID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("get memory item for auth: %w", err)
	}

	return a.CanAccessBoard(ctx, userID, item.BoardID)
}

func (a *OwnerBasedAuthorizer) checkBoard(ctx context.Context, userID string, board *canvas.Board) error {
	if board.UserID == userID {
		return nil
	}

	if board.IsTeamBoard() && a.teams != nil {
		member, err := a.teams.IsMember(ctx, userID, *board.TeamID)
		if err != nil {
			return fmt.Errorf("check team membership: %w", err)
		}
		if member {
			return nil
		}
	}

	return &domain.OwnershipError{UserID: userID, ResourceType: "board", ResourceID: board.ID}
}
