package prompt

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiblock/internal/config"
	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
	"multiblock/internal/repository/inmem"
	"multiblock/internal/service/auth"
	"multiblock/internal/service/composer"
	memoryService "multiblock/internal/service/memory"
)

func TestBuildRequest(t *testing.T) {
	history := []canvas.Message{
		{Role: canvas.RoleSystem, Content: "Be brief."},
		{Role: canvas.RoleUser, Content: "What is the answer?"},
		{Role: canvas.RoleAssistant, Content: "42"},
	}

	tests := []struct {
		name       string
		block      *canvas.Block
		composed   *canvas.ComposedContext
		wantSystem *string
		wantMsgs   int
	}{
		{
			name:       "system prompt, system history and context joined in order",
			block:      &canvas.Block{Model: "claude-haiku-4-5", SystemPrompt: "You are a planner."},
			composed:   &canvas.ComposedContext{Content: "## Context from X\n\nhello"},
			wantSystem: strPtr("You are a planner.\n\nBe brief.\n\n## Context from X\n\nhello"),
			wantMsgs:   2,
		},
		{
			name:       "empty context is not appended",
			block:      &canvas.Block{Model: "m"},
			composed:   &canvas.ComposedContext{},
			wantSystem: strPtr("Be brief."),
			wantMsgs:   2,
		},
		{
			name:       "nil context",
			block:      &canvas.Block{Model: "m", SystemPrompt: "sys"},
			wantSystem: strPtr("sys\n\nBe brief."),
			wantMsgs:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := BuildRequest(tt.block, history, tt.composed)

			assert.Equal(t, tt.block.Model, req.Model)
			require.Len(t, req.Messages, tt.wantMsgs)
			assert.Equal(t, canvas.RoleUser, string(req.Messages[0].Role))
			require.Len(t, req.Messages[0].Blocks, 1)
			assert.Equal(t, "What is the answer?", *req.Messages[0].Blocks[0].TextContent)

			require.NotNil(t, req.Params)
			require.NotNil(t, req.Params.System)
			assert.Equal(t, *tt.wantSystem, *req.Params.System)
		})
	}
}

func TestBuildRequest_NoSystemParts(t *testing.T) {
	req := BuildRequest(&canvas.Block{Model: "m"}, []canvas.Message{{Role: canvas.RoleUser, Content: "hi"}}, nil)
	assert.Nil(t, req.Params)
	assert.Len(t, req.Messages, 1)
}

func TestAssembler_Assemble(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	board := &canvas.Board{UserID: "user-1", Title: "B"}
	require.NoError(t, store.Boards().Create(ctx, board))
	x := &canvas.Block{BoardID: board.ID, Title: "X"}
	y := &canvas.Block{BoardID: board.ID, Title: "Y", Model: "claude-haiku-4-5"}
	require.NoError(t, store.Blocks().Create(ctx, x))
	require.NoError(t, store.Blocks().Create(ctx, y))
	require.NoError(t, store.Connections().Create(ctx, &canvas.Connection{
		FromBlockID: x.ID, ToBlockID: y.ID, ContextType: canvas.ContextTypeFull, Enabled: true,
	}))
	require.NoError(t, store.Messages().Create(ctx, &canvas.Message{BlockID: x.ID, Role: canvas.RoleAssistant, Content: "The answer is 42."}))
	require.NoError(t, store.Messages().Create(ctx, &canvas.Message{BlockID: y.ID, Role: canvas.RoleUser, Content: "Use X's answer"}))

	settings := config.DefaultComposerSettings()
	resolver := composer.NewResolver(store.Connections(), store.Blocks(), store.Messages(), settings.BlockContext, logger)
	engine := composer.NewEngine(resolver, store.Memory(), memoryService.NewBuilder(settings.Memory), settings.BlockContext, nil, logger)
	authorizer := auth.NewOwnerBasedAuthorizer(store.Boards(), store.Blocks(), store.Messages(), store.Connections(), store.Memory(), nil)
	assembler := NewAssembler(store.Blocks(), store.Messages(), engine, authorizer, logger)

	assembled, err := assembler.Assemble(ctx, "user-1", y.ID)
	require.NoError(t, err)

	assert.Equal(t, "claude-haiku-4-5", assembled.Request.Model)
	require.Len(t, assembled.Request.Messages, 1)
	require.NotNil(t, assembled.Request.Params)
	assert.Contains(t, *assembled.Request.Params.System, "The answer is 42.")
	assert.Len(t, assembled.Context.BlockContexts, 1)

	_, err = assembler.Assemble(ctx, "user-2", y.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{name: "default is lorem", cfg: config.Config{}},
		{name: "lorem", cfg: config.Config{LLMProvider: ProviderLorem}},
		{name: "anthropic without key", cfg: config.Config{LLMProvider: ProviderAnthropic}, wantErr: true},
		{name: "openrouter without key", cfg: config.Config{LLMProvider: ProviderOpenRouter}, wantErr: true},
		{name: "unknown", cfg: config.Config{LLMProvider: "carrier-pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}

func strPtr(s string) *string { return &s }
