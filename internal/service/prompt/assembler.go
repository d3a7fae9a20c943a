package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	llmprovider "github.com/haowjy/meridian-llm-go"

	"multiblock/internal/config"
	"multiblock/internal/domain/models/canvas"
	canvasRepo "multiblock/internal/domain/repositories/canvas"
	"multiblock/internal/domain/services"
	canvasSvc "multiblock/internal/domain/services/canvas"
)

const blockTypeText = "text"

// Assembler turns a block, its recent history and its composed context into
// the request handed to an LLM provider.
type Assembler struct {
	blockRepo    canvasRepo.BlockRepository
	messageRepo  canvasRepo.MessageRepository
	composer     canvasSvc.ContextComposer
	authorizer   services.ResourceAuthorizer
	historyLimit int
	logger       *slog.Logger
}

// NewAssembler creates a new prompt assembler
func NewAssembler(
	blockRepo canvasRepo.BlockRepository,
	messageRepo canvasRepo.MessageRepository,
	composer canvasSvc.ContextComposer,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) *Assembler {
	return &Assembler{
		blockRepo:    blockRepo,
		messageRepo:  messageRepo,
		composer:     composer,
		authorizer:   authorizer,
		historyLimit: config.DefaultHistoryLimit,
		logger:       logger,
	}
}

// Assembled is a provider request plus the context it was built from
type Assembled struct {
	Request *llmprovider.GenerateRequest `json:"request"`
	Context *canvas.ComposedContext      `json:"context"`
}

// Assemble builds the provider request for a block
func (a *Assembler) Assemble(ctx context.Context, userID, blockID string) (*Assembled, error) {
	if err := a.authorizer.CanAccessBlock(ctx, userID, blockID); err != nil {
		return nil, err
	}

	block, err := a.blockRepo.GetByID(ctx, blockID)
	if err != nil {
		return nil, err
	}

	history, err := a.messageRepo.ListByBlock(ctx, blockID, a.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	composed, err := a.composer.ComposeContext(ctx, block.BoardID, blockID)
	if err != nil {
		return nil, err
	}

	return &Assembled{
		Request: BuildRequest(block, history, composed),
		Context: composed,
	}, nil
}

// BuildRequest appends the composed context to the block's system prompt and
// maps history to text messages. System-role history is folded into the
// system prompt as well.
func BuildRequest(block *canvas.Block, history []canvas.Message, composed *canvas.ComposedContext) *llmprovider.GenerateRequest {
	systemParts := make([]string, 0, 3)
	if block.SystemPrompt != "" {
		systemParts = append(systemParts, block.SystemPrompt)
	}

	messages := make([]llmprovider.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == canvas.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		text := msg.Content
		messages = append(messages, llmprovider.Message{
			Role: msg.Role,
			Blocks: []*llmprovider.Block{{
				BlockType:   blockTypeText,
				Sequence:    0,
				TextContent: &text,
			}},
		})
	}

	if composed != nil && !composed.IsEmpty() {
		systemParts = append(systemParts, composed.Content)
	}

	req := &llmprovider.GenerateRequest{
		Messages: messages,
		Model:    block.Model,
	}
	if len(systemParts) > 0 {
		system := strings.Join(systemParts, "\n\n")
		req.Params = &llmprovider.RequestParams{System: &system}
	}
	return req
}

// Responder runs a provider over an assembled prompt and stores the reply as
// an assistant message, which in turn invalidates downstream blocks.
type Responder struct {
	assembler *Assembler
	blocks    canvasSvc.BlockService
	provider  llmprovider.Provider
	logger    *slog.Logger
}

// NewResponder creates a responder backed by one provider
func NewResponder(assembler *Assembler, blocks canvasSvc.BlockService, provider llmprovider.Provider, logger *slog.Logger) *Responder {
	return &Responder{
		assembler: assembler,
		blocks:    blocks,
		provider:  provider,
		logger:    logger,
	}
}

// Respond generates and persists the assistant reply of a block
func (r *Responder) Respond(ctx context.Context, userID, blockID string) (*canvas.Message, error) {
	assembled, err := r.assembler.Assemble(ctx, userID, blockID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := r.provider.GenerateResponse(ctx, assembled.Request)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}
	latency := int(time.Since(start).Milliseconds())

	var text strings.Builder
	for _, b := range resp.Blocks {
		if b.BlockType == blockTypeText && b.TextContent != nil {
			text.WriteString(*b.TextContent)
		}
	}

	tokens := resp.InputTokens + resp.OutputTokens
	model := resp.Model
	msg, err := r.blocks.AppendMessage(ctx, &canvasSvc.AppendMessageRequest{
		UserID:  userID,
		BlockID: blockID,
		Role:    canvas.RoleAssistant,
		Content: text.String(),
		Metadata: &canvas.MessageMetadata{
			TokenCount: &tokens,
			LatencyMS:  &latency,
			Model:      &model,
		},
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("assistant reply stored",
		"block_id", blockID,
		"message_id", msg.ID,
		"model", model,
		"latency_ms", latency,
		"degraded_context", assembled.Context.Degraded,
	)

	return msg, nil
}
