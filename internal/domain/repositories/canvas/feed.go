package canvas

import (
	"context"

	"multiblock/internal/domain/models/canvas"
)

// ChangeFeed is the push side of the persistence layer.
type ChangeFeed interface {
	// Subscribe delivers change events on boards owned by userID, in commit
	// order. The channel is closed once ctx is cancelled or the feed fails.
	Subscribe(ctx context.Context, userID string) (<-chan canvas.ChangeEvent, error)
}
