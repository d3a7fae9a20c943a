package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
	"multiblock/internal/domain/models/memory"
	"multiblock/internal/repository/inmem"
)

type staticTeams map[string]bool

func (t staticTeams) IsMember(ctx context.Context, userID, teamID string) (bool, error) {
	return t[userID+"/"+teamID], nil
}

func TestOwnerBasedAuthorizer(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()

	team := "team-1"
	personal := &canvas.Board{UserID: "owner", Title: "Personal"}
	shared := &canvas.Board{UserID: "owner", TeamID: &team, Title: "Shared"}
	require.NoError(t, store.Boards().Create(ctx, personal))
	require.NoError(t, store.Boards().Create(ctx, shared))

	block := &canvas.Block{BoardID: personal.ID, Title: "X"}
	teamBlock := &canvas.Block{BoardID: shared.ID, Title: "T"}
	require.NoError(t, store.Blocks().Create(ctx, block))
	require.NoError(t, store.Blocks().Create(ctx, teamBlock))

	other := &canvas.Block{BoardID: personal.ID, Title: "Y"}
	require.NoError(t, store.Blocks().Create(ctx, other))
	conn := &canvas.Connection{FromBlockID: block.ID, ToBlockID: other.ID, ContextType: canvas.ContextTypeFull, Enabled: true}
	require.NoError(t, store.Connections().Create(ctx, conn))

	msg := &canvas.Message{BlockID: block.ID, Role: canvas.RoleUser, Content: "hi"}
	require.NoError(t, store.Messages().Create(ctx, msg))

	item := &memory.Item{BoardID: personal.ID, Type: memory.TypeFact, Scope: memory.ScopeBoard, Content: "x"}
	require.NoError(t, store.Memory().Create(ctx, item))

	authorizer := NewOwnerBasedAuthorizer(store.Boards(), store.Blocks(), store.Messages(),
		store.Connections(), store.Memory(), staticTeams{"member/team-1": true})

	tests := []struct {
		name    string
		check   func(userID string) error
		userID  string
		wantErr error
	}{
		{"owner board", func(u string) error { return authorizer.CanAccessBoard(ctx, u, personal.ID) }, "owner", nil},
		{"stranger board", func(u string) error { return authorizer.CanAccessBoard(ctx, u, personal.ID) }, "stranger", domain.ErrForbidden},
		{"missing board", func(u string) error { return authorizer.CanAccessBoard(ctx, u, "missing") }, "owner", domain.ErrForbidden},
		{"team member", func(u string) error { return authorizer.CanAccessBlock(ctx, u, teamBlock.ID) }, "member", nil},
		{"member of team only", func(u string) error { return authorizer.CanAccessBlock(ctx, u, block.ID) }, "member", domain.ErrForbidden},
		{"missing block", func(u string) error { return authorizer.CanAccessBlock(ctx, u, "missing") }, "owner", domain.ErrNotFound},
		{"connection", func(u string) error { return authorizer.CanAccessConnection(ctx, u, conn.ID) }, "owner", nil},
		{"stranger connection", func(u string) error { return authorizer.CanAccessConnection(ctx, u, conn.ID) }, "stranger", domain.ErrForbidden},
		{"message", func(u string) error { return authorizer.CanAccessMessage(ctx, u, msg.ID) }, "owner", nil},
		{"memory item", func(u string) error { return authorizer.CanAccessMemoryItem(ctx, u, item.ID) }, "owner", nil},
		{"stranger memory item", func(u string) error { return authorizer.CanAccessMemoryItem(ctx, u, item.ID) }, "stranger", domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(tt.userID)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOwnerBasedAuthorizer_BlockErrorNamesBlock(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	board := &canvas.Board{UserID: "owner", Title: "B"}
	require.NoError(t, store.Boards().Create(ctx, board))
	block := &canvas.Block{BoardID: board.ID, Title: "X"}
	require.NoError(t, store.Blocks().Create(ctx, block))

	authorizer := NewOwnerBasedAuthorizer(store.Boards(), store.Blocks(), store.Messages(),
		store.Connections(), store.Memory(), nil)

	err := authorizer.CanAccessBlock(ctx, "stranger", block.ID)
	var ownership *domain.OwnershipError
	require.ErrorAs(t, err, &ownership)
	assert.Equal(t, "block", ownership.ResourceType)
	assert.Equal(t, block.ID, ownership.ResourceID)
}
