package canvas

import (
	"context"

	"multiblock/internal/domain/models/canvas"
)

// ContextResolver turns the incoming edges of a block into context fragments
type ContextResolver interface {
	ResolveIncomingContext(ctx context.Context, targetBlockID string) ([]canvas.BlockContext, error)
}

// ContextComposer produces the bounded prompt context for a block and keeps
// a per-block memo that the invalidation layer can mark stale.
type ContextComposer interface {
	// ComposeContext merges board memory and incoming block contexts.
	// It does not fail on a single broken edge; Degraded is set instead.
	ComposeContext(ctx context.Context, boardID, targetBlockID string) (*canvas.ComposedContext, error)

	// Invalidate marks one block's composed context stale
	Invalidate(boardID, blockID string)

	// InvalidateBoard marks every composed context on a board stale
	InvalidateBoard(boardID string)
}
