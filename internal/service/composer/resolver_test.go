package composer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiblock/internal/config"
	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
	"multiblock/internal/repository/inmem"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type graphFixture struct {
	store   *inmem.Store
	board   *canvas.Board
	x, y, z *canvas.Block
}

func newGraphFixture(t *testing.T) *graphFixture {
	t.Helper()
	ctx := context.Background()
	store := inmem.NewStore()

	board := &canvas.Board{UserID: "user-1", Title: "B1"}
	require.NoError(t, store.Boards().Create(ctx, board))

	f := &graphFixture{store: store, board: board}
	for _, b := range []**canvas.Block{&f.x, &f.y, &f.z} {
		*b = &canvas.Block{BoardID: board.ID}
	}
	f.x.Title, f.y.Title, f.z.Title = "X", "Y", "Z"
	for _, b := range []*canvas.Block{f.x, f.y, f.z} {
		require.NoError(t, store.Blocks().Create(ctx, b))
	}
	return f
}

func (f *graphFixture) connect(t *testing.T, from, to *canvas.Block, ct canvas.ContextType, tmpl *string) *canvas.Connection {
	t.Helper()
	conn := &canvas.Connection{FromBlockID: from.ID, ToBlockID: to.ID, ContextType: ct, TransformTemplate: tmpl, Enabled: true}
	require.NoError(t, f.store.Connections().Create(context.Background(), conn))
	return conn
}

func (f *graphFixture) say(t *testing.T, block *canvas.Block, role, content string) *canvas.Message {
	t.Helper()
	msg := &canvas.Message{BlockID: block.ID, Role: role, Content: content}
	require.NoError(t, f.store.Messages().Create(context.Background(), msg))
	return msg
}

func (f *graphFixture) resolver() *Resolver {
	return NewResolver(f.store.Connections(), f.store.Blocks(), f.store.Messages(),
		config.DefaultComposerSettings().BlockContext, discard)
}

func strPtr(s string) *string { return &s }

func TestResolveIncomingContext(t *testing.T) {
	long := strings.Repeat("a", 250)

	tests := []struct {
		name        string
		contextType canvas.ContextType
		template    *string
		source      string
		want        string
	}{
		{
			name:        "full passes content through",
			contextType: canvas.ContextTypeFull,
			source:      "The answer is 42.",
			want:        "The answer is 42.",
		},
		{
			name:        "summary cuts at 200 and appends ellipsis",
			contextType: canvas.ContextTypeSummary,
			source:      long,
			want:        strings.Repeat("a", 200) + "...",
		},
		{
			name:        "summary at exactly 200 is untouched",
			contextType: canvas.ContextTypeSummary,
			source:      strings.Repeat("b", 200),
			want:        strings.Repeat("b", 200),
		},
		{
			name:        "summary at 201 is cut",
			contextType: canvas.ContextTypeSummary,
			source:      strings.Repeat("c", 201),
			want:        strings.Repeat("c", 200) + "...",
		},
		{
			name:        "template substitutes output",
			contextType: canvas.ContextTypeFull,
			template:    strPtr("Context: {{output}}"),
			source:      "hello",
			want:        "Context: hello",
		},
		{
			name:        "template substitutes every occurrence",
			contextType: canvas.ContextTypeFull,
			template:    strPtr("{{output}} / {{output}}"),
			source:      "hi",
			want:        "hi / hi",
		},
		{
			name:        "template without placeholder replaces content",
			contextType: canvas.ContextTypeFull,
			template:    strPtr("Use the plan."),
			source:      "ignored",
			want:        "Use the plan.",
		},
		{
			name:        "summary applies before template",
			contextType: canvas.ContextTypeSummary,
			template:    strPtr("> {{output}}"),
			source:      long,
			want:        "> " + strings.Repeat("a", 200) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGraphFixture(t)
			conn := f.connect(t, f.x, f.y, tt.contextType, tt.template)
			f.say(t, f.x, canvas.RoleAssistant, tt.source)

			got, err := f.resolver().ResolveIncomingContext(context.Background(), f.y.ID)
			require.NoError(t, err)
			require.Len(t, got, 1)

			assert.Equal(t, tt.want, got[0].Content)
			assert.Equal(t, conn.ID, got[0].ConnectionID)
			assert.Equal(t, f.x.ID, got[0].SourceBlockID)
			assert.Equal(t, "X", got[0].SourceBlockTitle)
			assert.Equal(t, tt.contextType, got[0].ContextType)
		})
	}
}

func TestResolveIncomingContext_UsesLatestAssistantMessage(t *testing.T) {
	f := newGraphFixture(t)
	f.connect(t, f.x, f.y, canvas.ContextTypeFull, nil)

	f.say(t, f.x, canvas.RoleAssistant, "first answer")
	f.say(t, f.x, canvas.RoleAssistant, "second answer")
	f.say(t, f.x, canvas.RoleUser, "a follow-up question")

	got, err := f.resolver().ResolveIncomingContext(context.Background(), f.y.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "second answer", got[0].Content)
}

func TestResolveIncomingContext_SkipsUnusableSources(t *testing.T) {
	ctx := context.Background()
	f := newGraphFixture(t)

	disabled := f.connect(t, f.x, f.y, canvas.ContextTypeFull, nil)
	disabled.Enabled = false
	require.NoError(t, f.store.Connections().Update(ctx, disabled))
	f.say(t, f.x, canvas.RoleAssistant, "hidden")

	// Z only has user messages
	f.connect(t, f.z, f.y, canvas.ContextTypeFull, nil)
	f.say(t, f.z, canvas.RoleUser, "question only")

	got, err := f.resolver().ResolveIncomingContext(ctx, f.y.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveIncomingContext_CreationOrder(t *testing.T) {
	f := newGraphFixture(t)
	f.connect(t, f.z, f.y, canvas.ContextTypeFull, nil)
	f.connect(t, f.x, f.y, canvas.ContextTypeFull, nil)
	f.say(t, f.x, canvas.RoleAssistant, "from x")
	f.say(t, f.z, canvas.RoleAssistant, "from z")

	got, err := f.resolver().ResolveIncomingContext(context.Background(), f.y.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "from z", got[0].Content)
	assert.Equal(t, "from x", got[1].Content)
}

func TestResolveIncomingContext_DeletedSourceLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newGraphFixture(t)
	f.connect(t, f.x, f.y, canvas.ContextTypeFull, nil)
	f.say(t, f.x, canvas.RoleAssistant, "soon gone")

	require.NoError(t, f.store.Blocks().Delete(ctx, f.x.ID))

	got, err := f.resolver().ResolveIncomingContext(ctx, f.y.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

type failingConnections struct {
	*inmem.ConnectionRepository
}

func (failingConnections) ListIncoming(context.Context, string) ([]canvas.Connection, error) {
	return nil, errors.New("connection reset")
}

func TestResolveIncomingContext_ListFailureIsTransient(t *testing.T) {
	f := newGraphFixture(t)
	r := NewResolver(failingConnections{f.store.Connections()}, f.store.Blocks(), f.store.Messages(),
		config.DefaultComposerSettings().BlockContext, discard)

	_, err := r.ResolveIncomingContext(context.Background(), f.y.ID)
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		content string
		limit   int
		want    string
	}{
		{"short", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"cut", "abcdef", 5, "abcde..."},
		{"runes not bytes", "ééééé!", 5, "ééééé..."},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.content, tt.limit, "..."))
		})
	}
}
