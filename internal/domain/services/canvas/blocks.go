package canvas

import (
	"context"

	"multiblock/internal/domain/models/canvas"
)

// BlockService covers the block and message mutations the engine depends on.
// Richer board editing lives in the UI collaborator.
type BlockService interface {
	// CreateBoard creates a personal (or team) board owned by the actor
	CreateBoard(ctx context.Context, req *CreateBoardRequest) (*canvas.Board, error)

	// ListBoards returns the actor's boards, newest first
	ListBoards(ctx context.Context, userID string) ([]canvas.Board, error)

	// ListBlocks returns the blocks of a board
	ListBlocks(ctx context.Context, userID, boardID string) ([]canvas.Block, error)

	// GetBlock returns a block the actor can access
	GetBlock(ctx context.Context, userID, blockID string) (*canvas.Block, error)

	CreateBlock(ctx context.Context, req *CreateBlockRequest) (*canvas.Block, error)

	// DeleteBlock removes a block, its messages and incident connections
	DeleteBlock(ctx context.Context, userID, blockID string) error

	// AppendMessage stores a message in a block
	AppendMessage(ctx context.Context, req *AppendMessageRequest) (*canvas.Message, error)

	// EditMessage replaces message content (byte size is recomputed)
	EditMessage(ctx context.Context, userID, messageID, content string) (*canvas.Message, error)

	// ListMessages returns the most recent messages of a block, oldest first
	ListMessages(ctx context.Context, userID, blockID string, limit int) ([]canvas.Message, error)
}

// CreateBoardRequest is the DTO for creating a board
type CreateBoardRequest struct {
	UserID string  `json:"-"`
	TeamID *string `json:"team_id,omitempty"`
	Title  string  `json:"title"`
}

// CreateBlockRequest is the DTO for creating a block
type CreateBlockRequest struct {
	UserID       string  `json:"-"`
	BoardID      string  `json:"board_id"`
	Title        string  `json:"title"`
	Model        string  `json:"model"`
	SystemPrompt string  `json:"system_prompt"`
	PositionX    float64 `json:"position_x"`
	PositionY    float64 `json:"position_y"`
}

// AppendMessageRequest is the DTO for adding a message to a block
type AppendMessageRequest struct {
	UserID   string                  `json:"-"`
	BlockID  string                  `json:"-"`
	Role     string                  `json:"role"`
	Content  string                  `json:"content"`
	Metadata *canvas.MessageMetadata `json:"metadata,omitempty"`
}
