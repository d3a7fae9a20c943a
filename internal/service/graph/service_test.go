package graph

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
	canvasSvc "multiblock/internal/domain/services/canvas"
	"multiblock/internal/repository/inmem"
	"multiblock/internal/service/auth"
)

type fixture struct {
	svc     canvasSvc.GraphService
	store   *inmem.Store
	inv     *recordingInvalidator
	a, b    *canvas.Block
	foreign *canvas.Block
}

type recordingInvalidator struct {
	mu     sync.Mutex
	boards []string
}

func (r *recordingInvalidator) InvalidateBoard(boardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards = append(r.boards, boardID)
}

func (r *recordingInvalidator) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards = nil
}

func (r *recordingInvalidator) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.boards...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := inmem.NewStore()

	mine := &canvas.Board{UserID: "user-1", Title: "Mine"}
	theirs := &canvas.Board{UserID: "user-2", Title: "Theirs"}
	require.NoError(t, store.Boards().Create(ctx, mine))
	require.NoError(t, store.Boards().Create(ctx, theirs))

	f := &fixture{store: store, inv: &recordingInvalidator{}}
	f.a = &canvas.Block{BoardID: mine.ID, Title: "A"}
	f.b = &canvas.Block{BoardID: mine.ID, Title: "B"}
	f.foreign = &canvas.Block{BoardID: theirs.ID, Title: "F"}
	for _, b := range []*canvas.Block{f.a, f.b, f.foreign} {
		require.NoError(t, store.Blocks().Create(ctx, b))
	}

	authorizer := auth.NewOwnerBasedAuthorizer(store.Boards(), store.Blocks(), store.Messages(),
		store.Connections(), store.Memory(), nil)
	f.svc = NewService(store.Connections(), store.Blocks(), store, authorizer, f.inv, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func strPtr(s string) *string { return &s }

func TestService_Create(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		req     *canvasSvc.CreateConnectionRequest
		wantErr error
		check   func(t *testing.T, conn *canvas.Connection)
	}{
		{
			name: "defaults to full and enabled",
			req:  &canvasSvc.CreateConnectionRequest{UserID: "user-1", FromBlockID: f.a.ID, ToBlockID: f.b.ID},
			check: func(t *testing.T, conn *canvas.Connection) {
				assert.Equal(t, canvas.ContextTypeFull, conn.ContextType)
				assert.True(t, conn.Enabled)
				assert.Nil(t, conn.TransformTemplate)
			},
		},
		{
			name: "empty template is dropped",
			req:  &canvasSvc.CreateConnectionRequest{UserID: "user-1", FromBlockID: f.b.ID, ToBlockID: f.a.ID, TransformTemplate: strPtr("")},
			check: func(t *testing.T, conn *canvas.Connection) {
				assert.Nil(t, conn.TransformTemplate)
			},
		},
		{
			name:    "self loop",
			req:     &canvasSvc.CreateConnectionRequest{UserID: "user-1", FromBlockID: f.a.ID, ToBlockID: f.a.ID},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown context type",
			req:     &canvasSvc.CreateConnectionRequest{UserID: "user-1", FromBlockID: f.a.ID, ToBlockID: f.b.ID, ContextType: "verbatim"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "target on a foreign board",
			req:     &canvasSvc.CreateConnectionRequest{UserID: "user-1", FromBlockID: f.a.ID, ToBlockID: f.foreign.ID},
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "source on a foreign board",
			req:     &canvasSvc.CreateConnectionRequest{UserID: "user-1", FromBlockID: f.foreign.ID, ToBlockID: f.a.ID},
			wantErr: domain.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := f.svc.Create(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, conn)
				return
			}
			require.NoError(t, err)
			tt.check(t, conn)
		})
	}
}

func TestService_SelfLoopError(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), &canvasSvc.CreateConnectionRequest{UserID: "user-1", FromBlockID: f.a.ID, ToBlockID: f.a.ID})

	var loop *domain.SelfLoopError
	require.ErrorAs(t, err, &loop)
	assert.Equal(t, f.a.ID, loop.BlockID)

	incoming, err := f.svc.ListIncoming(context.Background(), f.a.ID)
	require.NoError(t, err)
	assert.Empty(t, incoming)
}

func TestService_Toggle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	conn, err := f.svc.Create(ctx, &canvasSvc.CreateConnectionRequest{UserID: "user-1", FromBlockID: f.a.ID, ToBlockID: f.b.ID})
	require.NoError(t, err)

	off, err := f.svc.Toggle(ctx, conn.ID)
	require.NoError(t, err)
	assert.False(t, off.Enabled)

	on, err := f.svc.Toggle(ctx, conn.ID)
	require.NoError(t, err)
	assert.True(t, on.Enabled)

	missing, err := f.svc.Toggle(ctx, "does-not-exist")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	conn, err := f.svc.Create(ctx, &canvasSvc.CreateConnectionRequest{
		UserID: "user-1", FromBlockID: f.a.ID, ToBlockID: f.b.ID, TransformTemplate: strPtr("Context: {{output}}"),
	})
	require.NoError(t, err)

	summary := canvas.ContextTypeSummary
	require.NoError(t, f.svc.Update(ctx, conn.ID, canvas.ConnectionPatch{ContextType: &summary}))

	got, err := f.store.Connections().GetByID(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, canvas.ContextTypeSummary, got.ContextType)
	require.NotNil(t, got.TransformTemplate)
	assert.Equal(t, "Context: {{output}}", *got.TransformTemplate)

	require.NoError(t, f.svc.Update(ctx, conn.ID, canvas.ConnectionPatch{TransformTemplate: &canvas.TemplatePatch{}}))
	got, err = f.store.Connections().GetByID(ctx, conn.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TransformTemplate)

	bogus := canvas.ContextType("verbatim")
	assert.ErrorIs(t, f.svc.Update(ctx, conn.ID, canvas.ConnectionPatch{ContextType: &bogus}), domain.ErrValidation)
	assert.ErrorIs(t, f.svc.Update(ctx, "missing", canvas.ConnectionPatch{ContextType: &summary}), domain.ErrNotFound)
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	conn, err := f.svc.Create(ctx, &canvasSvc.CreateConnectionRequest{UserID: "user-1", FromBlockID: f.a.ID, ToBlockID: f.b.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.Remove(ctx, conn.ID))
	require.NoError(t, f.svc.Remove(ctx, conn.ID))

	exists, err := f.svc.ExistsBetween(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestService_MakeBidirectional(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.MakeBidirectional(ctx, "user-1", f.a.ID, f.b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Create(ctx, &canvasSvc.CreateConnectionRequest{
		UserID: "user-1", FromBlockID: f.a.ID, ToBlockID: f.b.ID,
		ContextType: canvas.ContextTypeSummary, TransformTemplate: strPtr("> {{output}}"),
	})
	require.NoError(t, err)

	both, err := f.svc.ExistsBidirectional(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	assert.False(t, both)

	reverse, err := f.svc.MakeBidirectional(ctx, "user-1", f.a.ID, f.b.ID)
	require.NoError(t, err)
	require.NotNil(t, reverse)
	assert.Equal(t, f.b.ID, reverse.FromBlockID)
	assert.Equal(t, f.a.ID, reverse.ToBlockID)
	assert.Equal(t, canvas.ContextTypeSummary, reverse.ContextType)
	require.NotNil(t, reverse.TransformTemplate)
	assert.Equal(t, "> {{output}}", *reverse.TransformTemplate)

	both, err = f.svc.ExistsBidirectional(ctx, f.a.ID, f.b.ID)
	require.NoError(t, err)
	assert.True(t, both)

	again, err := f.svc.MakeBidirectional(ctx, "user-1", f.a.ID, f.b.ID)
	require.NoError(t, err)
	assert.Nil(t, again)

	outgoing, err := f.svc.ListOutgoing(ctx, f.b.ID)
	require.NoError(t, err)
	assert.Len(t, outgoing, 1)
}

func TestService_MutationsInvalidateBoard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	summary := canvas.ContextTypeSummary

	conn, err := f.svc.Create(ctx, &canvasSvc.CreateConnectionRequest{UserID: "user-1", FromBlockID: f.a.ID, ToBlockID: f.b.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{f.b.BoardID}, f.inv.snapshot())

	tests := []struct {
		name   string
		mutate func() error
		want   []string
	}{
		{
			name:   "update",
			mutate: func() error { return f.svc.Update(ctx, conn.ID, canvas.ConnectionPatch{ContextType: &summary}) },
			want:   []string{f.b.BoardID},
		},
		{
			name: "toggle",
			mutate: func() error {
				_, err := f.svc.Toggle(ctx, conn.ID)
				return err
			},
			want: []string{f.b.BoardID},
		},
		{
			name: "toggle missing",
			mutate: func() error {
				_, err := f.svc.Toggle(ctx, "does-not-exist")
				return err
			},
			want: nil,
		},
		{
			name: "make bidirectional",
			mutate: func() error {
				_, err := f.svc.MakeBidirectional(ctx, "user-1", f.a.ID, f.b.ID)
				return err
			},
			// once inside the transaction, once after commit
			want: []string{f.a.BoardID, f.a.BoardID},
		},
		{
			name:   "remove",
			mutate: func() error { return f.svc.Remove(ctx, conn.ID) },
			want:   []string{f.b.BoardID},
		},
		{
			name:   "remove missing",
			mutate: func() error { return f.svc.Remove(ctx, conn.ID) },
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.inv.reset()
			require.NoError(t, tt.mutate())
			assert.Equal(t, tt.want, f.inv.snapshot())
		})
	}
}
