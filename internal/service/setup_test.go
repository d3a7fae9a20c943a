package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiblock/internal/config"
	"multiblock/internal/domain/models/canvas"
	canvasSvc "multiblock/internal/domain/services/canvas"
	"multiblock/internal/repository/inmem"
	"multiblock/internal/service/invalidation"
)

// Without a live subscription nothing on the change feed reaches the memo,
// so the write paths themselves must drop stale contexts.
func TestSetupServices_WritesInvalidateWithoutSubscription(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	services := SetupServices(t.Context(), NewInMemRepositories(inmem.NewStore()), config.DefaultComposerSettings(),
		invalidation.DefaultBreakerSettings(), nil, nil, logger)
	t.Cleanup(services.Hub.Close)

	board, err := services.Blocks.CreateBoard(ctx, &canvasSvc.CreateBoardRequest{UserID: "user-1", Title: "B"})
	require.NoError(t, err)
	x, err := services.Blocks.CreateBlock(ctx, &canvasSvc.CreateBlockRequest{UserID: "user-1", BoardID: board.ID, Title: "X", Model: "m"})
	require.NoError(t, err)
	y, err := services.Blocks.CreateBlock(ctx, &canvasSvc.CreateBlockRequest{UserID: "user-1", BoardID: board.ID, Title: "Y", Model: "m"})
	require.NoError(t, err)

	composed, err := services.Composer.ComposeContext(ctx, board.ID, y.ID)
	require.NoError(t, err)
	assert.Empty(t, composed.BlockContexts)

	conn, err := services.Graph.Create(ctx, &canvasSvc.CreateConnectionRequest{UserID: "user-1", FromBlockID: x.ID, ToBlockID: y.ID})
	require.NoError(t, err)
	_, err = services.Blocks.AppendMessage(ctx, &canvasSvc.AppendMessageRequest{
		UserID: "user-1", BlockID: x.ID, Role: canvas.RoleAssistant, Content: "The answer is 42.",
	})
	require.NoError(t, err)

	composed, err = services.Composer.ComposeContext(ctx, board.ID, y.ID)
	require.NoError(t, err)
	require.Len(t, composed.BlockContexts, 1)
	assert.Equal(t, x.ID, composed.BlockContexts[0].SourceBlockID)
	assert.Contains(t, composed.BlockContexts[0].Content, "The answer is 42.")

	_, err = services.Graph.Toggle(ctx, conn.ID)
	require.NoError(t, err)

	composed, err = services.Composer.ComposeContext(ctx, board.ID, y.ID)
	require.NoError(t, err)
	assert.Empty(t, composed.BlockContexts)
}
