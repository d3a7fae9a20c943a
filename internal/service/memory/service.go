package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"multiblock/internal/config"
	"multiblock/internal/domain"
	"multiblock/internal/domain/models/memory"
	canvasRepo "multiblock/internal/domain/repositories/canvas"
	memoryRepo "multiblock/internal/domain/repositories/memory"
	"multiblock/internal/domain/services"
	memorySvc "multiblock/internal/domain/services/memory"
)

// BoardInvalidator is notified when a board's memory pool changes so that
// memoised composed contexts are recomputed.
type BoardInvalidator interface {
	InvalidateBoard(boardID string)
}

// Service implements the MemoryService interface
type Service struct {
	memoryRepo  memoryRepo.MemoryRepository
	messageRepo canvasRepo.MessageRepository
	blockRepo   canvasRepo.BlockRepository
	authorizer  services.ResourceAuthorizer
	builder     *Builder
	invalidator BoardInvalidator
	logger      *slog.Logger
}

// NewService creates a new memory service. invalidator may be nil.
func NewService(
	memoryRepo memoryRepo.MemoryRepository,
	messageRepo canvasRepo.MessageRepository,
	blockRepo canvasRepo.BlockRepository,
	authorizer services.ResourceAuthorizer,
	builder *Builder,
	invalidator BoardInvalidator,
	logger *slog.Logger,
) memorySvc.MemoryService {
	return &Service{
		memoryRepo:  memoryRepo,
		messageRepo: messageRepo,
		blockRepo:   blockRepo,
		authorizer:  authorizer,
		builder:     builder,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Create stores a new memory item
func (s *Service) Create(ctx context.Context, req *memorySvc.CreateItemRequest) (*memory.Item, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.authorizer.CanAccessBoard(ctx, req.UserID, req.BoardID); err != nil {
		return nil, err
	}

	if err := s.checkSourceBlock(ctx, req.BoardID, req.SourceBlockID); err != nil {
		return nil, err
	}

	now := time.Now()
	item := &memory.Item{
		BoardID:         req.BoardID,
		UserID:          req.UserID,
		Type:            req.Type,
		Scope:           req.Scope,
		Content:         strings.TrimSpace(req.Content),
		SourceBlockID:   req.SourceBlockID,
		SourceMessageID: req.SourceMessageID,
		Keywords:        resolveKeywords(req.Keywords, req.Content),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.memoryRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	s.notify(item.BoardID)

	s.logger.Info("memory item created",
		"id", item.ID,
		"board_id", item.BoardID,
		"type", item.Type,
		"scope", item.Scope,
		"keywords", item.Keywords,
	)

	return item, nil
}

// CreateFromMessage saves a block message to the block's board memory.
// Type defaults to note and scope to block.
func (s *Service) CreateFromMessage(ctx context.Context, req *memorySvc.SaveMessageRequest) (*memory.Item, error) {
	if req.Type == "" {
		req.Type = memory.TypeNote
	}
	if req.Scope == "" {
		req.Scope = memory.ScopeBlock
	}

	if err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.MessageID, validation.Required),
		validation.Field(&req.Type, validation.By(validItemType)),
		validation.Field(&req.Scope, validation.By(validScope)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.authorizer.CanAccessMessage(ctx, req.UserID, req.MessageID); err != nil {
		return nil, err
	}

	msg, err := s.messageRepo.GetByID(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}
	block, err := s.blockRepo.GetByID(ctx, msg.BlockID)
	if err != nil {
		return nil, err
	}

	blockID, messageID := block.ID, msg.ID
	return s.Create(ctx, &memorySvc.CreateItemRequest{
		UserID:          req.UserID,
		BoardID:         block.BoardID,
		Type:            req.Type,
		Scope:           req.Scope,
		Content:         truncateRunes(msg.Content, config.MaxMemoryContentLength),
		SourceBlockID:   &blockID,
		SourceMessageID: &messageID,
	})
}

// Update edits an existing memory item
func (s *Service) Update(ctx context.Context, userID, itemID string, req *memorySvc.UpdateItemRequest) (*memory.Item, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.authorizer.CanAccessMemoryItem(ctx, userID, itemID); err != nil {
		return nil, err
	}

	item, err := s.memoryRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	updated := applyUpdate(*item, req)
	if updated.Scope != memory.ScopeBoard && updated.SourceBlockID == nil {
		return nil, fmt.Errorf("%w: scope %s requires a source block", domain.ErrValidation, updated.Scope)
	}
	updated.UpdatedAt = time.Now()

	if err := s.memoryRepo.Update(ctx, &updated); err != nil {
		return nil, err
	}
	s.notify(updated.BoardID)

	s.logger.Info("memory item updated",
		"id", updated.ID,
		"board_id", updated.BoardID,
		"user_id", userID,
	)

	return &updated, nil
}

// Delete removes a memory item
func (s *Service) Delete(ctx context.Context, userID, itemID string) error {
	if err := s.authorizer.CanAccessMemoryItem(ctx, userID, itemID); err != nil {
		return err
	}

	item, err := s.memoryRepo.GetByID(ctx, itemID)
	if err != nil {
		return err
	}

	if err := s.memoryRepo.Delete(ctx, itemID); err != nil {
		return err
	}
	s.notify(item.BoardID)

	s.logger.Info("memory item deleted",
		"id", itemID,
		"board_id", item.BoardID,
		"user_id", userID,
	)

	return nil
}

// ListForBoard returns the memory pool of a board
func (s *Service) ListForBoard(ctx context.Context, userID, boardID string) ([]memory.Item, error) {
	if err := s.authorizer.CanAccessBoard(ctx, userID, boardID); err != nil {
		return nil, err
	}

	return s.memoryRepo.ListByBoard(ctx, boardID)
}

// Preview builds the injected memory for a board pool without persisting anything
func (s *Service) Preview(ctx context.Context, userID, boardID string, opts memory.BuildOptions) (*memory.InjectedResult, error) {
	items, err := s.ListForBoard(ctx, userID, boardID)
	if err != nil {
		return nil, err
	}

	return s.builder.Build(items, opts), nil
}

func (s *Service) notify(boardID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateBoard(boardID)
	}
}

// checkSourceBlock verifies that a provenance block lives on the same board
func (s *Service) checkSourceBlock(ctx context.Context, boardID string, sourceBlockID *string) error {
	if sourceBlockID == nil {
		return nil
	}

	block, err := s.blockRepo.GetByID(ctx, *sourceBlockID)
	if err != nil {
		return fmt.Errorf("source block: %w", err)
	}
	if block.BoardID != boardID {
		return fmt.Errorf("%w: source block %s is not on board %s", domain.ErrValidation, block.ID, boardID)
	}
	return nil
}

// applyUpdate returns the item with the request applied. Keywords are
// re-extracted when content changes and none are supplied.
func applyUpdate(item memory.Item, req *memorySvc.UpdateItemRequest) memory.Item {
	if req.Type != nil {
		item.Type = *req.Type
	}
	if req.Scope != nil {
		item.Scope = *req.Scope
	}

	contentChanged := false
	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		contentChanged = content != item.Content
		item.Content = content
	}

	switch {
	case len(req.Keywords) > 0:
		item.Keywords = normalizeKeywords(req.Keywords)
	case contentChanged:
		item.Keywords = ExtractKeywords(item.Content)
	}

	return item
}

func resolveKeywords(explicit []string, content string) []string {
	if normalized := normalizeKeywords(explicit); len(normalized) > 0 {
		return normalized
	}
	return ExtractKeywords(content)
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		normalized = append(normalized, kw)
	}
	return normalized
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Validation methods

func (s *Service) validateCreateRequest(req *memorySvc.CreateItemRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.BoardID, validation.Required),
		validation.Field(&req.Type, validation.Required, validation.By(validItemType)),
		validation.Field(&req.Scope, validation.Required, validation.By(validScope)),
		validation.Field(&req.Content,
			validation.Required,
			validation.RuneLength(1, config.MaxMemoryContentLength),
		),
		validation.Field(&req.SourceBlockID,
			validation.When(req.Scope != memory.ScopeBoard, validation.Required.Error("is required for block and chat scope")),
		),
		validation.Field(&req.Keywords, validation.Length(0, config.MaxMemoryKeywords)),
	)
}

func (s *Service) validateUpdateRequest(req *memorySvc.UpdateItemRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Type, validation.By(validItemTypePtr)),
		validation.Field(&req.Scope, validation.By(validScopePtr)),
		validation.Field(&req.Content, validation.When(req.Content != nil,
			validation.Required,
			validation.RuneLength(1, config.MaxMemoryContentLength),
		)),
		validation.Field(&req.Keywords, validation.Length(0, config.MaxMemoryKeywords)),
	)
}

func validItemType(value interface{}) error {
	t, _ := value.(memory.ItemType)
	if t != "" && !t.IsValid() {
		return fmt.Errorf("must be one of fact, decision, constraint, note")
	}
	return nil
}

func validScope(value interface{}) error {
	sc, _ := value.(memory.Scope)
	if sc != "" && !sc.IsValid() {
		return fmt.Errorf("must be one of board, block, chat")
	}
	return nil
}

func validItemTypePtr(value interface{}) error {
	if t, ok := value.(*memory.ItemType); ok && t != nil {
		return validItemType(*t)
	}
	return nil
}

func validScopePtr(value interface{}) error {
	if sc, ok := value.(*memory.Scope); ok && sc != nil {
		return validScope(*sc)
	}
	return nil
}
