package memory

import (
	"context"

	"multiblock/internal/domain/models/memory"
)

// MemoryService manages board memory items and previews their injection
type MemoryService interface {
	// Create stores a new item; keywords are extracted when none are given
	Create(ctx context.Context, req *CreateItemRequest) (*memory.Item, error)

	// CreateFromMessage saves a block message as a memory item
	CreateFromMessage(ctx context.Context, req *SaveMessageRequest) (*memory.Item, error)

	// Update edits content/type/scope. Changing content without explicit
	// keywords re-extracts them.
	Update(ctx context.Context, userID, itemID string, req *UpdateItemRequest) (*memory.Item, error)

	// Delete removes an item
	Delete(ctx context.Context, userID, itemID string) error

	// ListForBoard returns the memory pool of a board
	ListForBoard(ctx context.Context, userID, boardID string) ([]memory.Item, error)

	// Preview runs the filter/composer over a board pool without side effects
	Preview(ctx context.Context, userID, boardID string, opts memory.BuildOptions) (*memory.InjectedResult, error)
}

// CreateItemRequest is the DTO for creating a memory item
type CreateItemRequest struct {
	UserID          string          `json:"-"`
	BoardID         string          `json:"board_id"`
	Type            memory.ItemType `json:"type"`
	Scope           memory.Scope    `json:"scope"`
	Content         string          `json:"content"`
	SourceBlockID   *string         `json:"source_block_id,omitempty"`
	SourceMessageID *string         `json:"source_message_id,omitempty"`
	Keywords        []string        `json:"keywords,omitempty"`
}

// SaveMessageRequest is the DTO for "save this message to memory"
type SaveMessageRequest struct {
	UserID    string          `json:"-"`
	MessageID string          `json:"-"`
	Type      memory.ItemType `json:"type"`
	Scope     memory.Scope    `json:"scope"`
}

// UpdateItemRequest is the DTO for editing a memory item.
// Nil fields are left unchanged.
type UpdateItemRequest struct {
	Type     *memory.ItemType `json:"type,omitempty"`
	Scope    *memory.Scope    `json:"scope,omitempty"`
	Content  *string          `json:"content,omitempty"`
	Keywords []string         `json:"keywords,omitempty"`
}
