package blocks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"multiblock/internal/config"
	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
	canvasRepo "multiblock/internal/domain/repositories/canvas"
	"multiblock/internal/domain/services"
	canvasSvc "multiblock/internal/domain/services/canvas"
)

// BoardInvalidator is told about edits the change feed does not carry
type BoardInvalidator interface {
	InvalidateBoard(boardID string)
}

// Service implements the BlockService interface
type Service struct {
	boardRepo   canvasRepo.BoardRepository
	blockRepo   canvasRepo.BlockRepository
	messageRepo canvasRepo.MessageRepository
	authorizer  services.ResourceAuthorizer
	invalidator BoardInvalidator
	logger      *slog.Logger
}

// NewService creates a new block service. invalidator may be nil.
func NewService(
	boardRepo canvasRepo.BoardRepository,
	blockRepo canvasRepo.BlockRepository,
	messageRepo canvasRepo.MessageRepository,
	authorizer services.ResourceAuthorizer,
	invalidator BoardInvalidator,
	logger *slog.Logger,
) canvasSvc.BlockService {
	return &Service{
		boardRepo:   boardRepo,
		blockRepo:   blockRepo,
		messageRepo: messageRepo,
		authorizer:  authorizer,
		invalidator: invalidator,
		logger:      logger,
	}
}

// CreateBoard creates a new board
func (s *Service) CreateBoard(ctx context.Context, req *canvasSvc.CreateBoardRequest) (*canvas.Board, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Title, validation.Required, validation.RuneLength(1, config.MaxBoardTitleLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	now := time.Now()
	board := &canvas.Board{
		UserID:    req.UserID,
		TeamID:    req.TeamID,
		Title:     strings.TrimSpace(req.Title),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.boardRepo.Create(ctx, board); err != nil {
		return nil, err
	}

	s.logger.Info("board created",
		"id", board.ID,
		"title", board.Title,
		"user_id", req.UserID,
	)

	return board, nil
}

// ListBoards returns the boards owned by a user
func (s *Service) ListBoards(ctx context.Context, userID string) ([]canvas.Board, error) {
	return s.boardRepo.ListByUser(ctx, userID)
}

// ListBlocks returns the blocks of a board
func (s *Service) ListBlocks(ctx context.Context, userID, boardID string) ([]canvas.Block, error) {
	if err := s.authorizer.CanAccessBoard(ctx, userID, boardID); err != nil {
		return nil, err
	}

	return s.blockRepo.ListByBoard(ctx, boardID)
}

// GetBlock returns a single block
func (s *Service) GetBlock(ctx context.Context, userID, blockID string) (*canvas.Block, error) {
	if err := s.authorizer.CanAccessBlock(ctx, userID, blockID); err != nil {
		return nil, err
	}

	return s.blockRepo.GetByID(ctx, blockID)
}

// CreateBlock adds a chat block to a board
func (s *Service) CreateBlock(ctx context.Context, req *canvasSvc.CreateBlockRequest) (*canvas.Block, error) {
	if err := s.validateCreateBlockRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.authorizer.CanAccessBoard(ctx, req.UserID, req.BoardID); err != nil {
		return nil, err
	}

	now := time.Now()
	block := &canvas.Block{
		BoardID:      req.BoardID,
		Title:        strings.TrimSpace(req.Title),
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		PositionX:    req.PositionX,
		PositionY:    req.PositionY,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.blockRepo.Create(ctx, block); err != nil {
		return nil, err
	}

	s.logger.Info("block created",
		"id", block.ID,
		"board_id", block.BoardID,
		"model", block.Model,
		"user_id", req.UserID,
	)

	return block, nil
}

// DeleteBlock removes a block with its messages and incident connections
func (s *Service) DeleteBlock(ctx context.Context, userID, blockID string) error {
	if err := s.authorizer.CanAccessBlock(ctx, userID, blockID); err != nil {
		return err
	}

	block, err := s.blockRepo.GetByID(ctx, blockID)
	if err != nil {
		return err
	}

	if err := s.blockRepo.Delete(ctx, blockID); err != nil {
		return err
	}
	s.notify(block.BoardID)

	s.logger.Info("block deleted",
		"id", blockID,
		"board_id", block.BoardID,
		"user_id", userID,
	)

	return nil
}

// AppendMessage stores a message at the end of a block's history
func (s *Service) AppendMessage(ctx context.Context, req *canvasSvc.AppendMessageRequest) (*canvas.Message, error) {
	if err := s.validateAppendMessageRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.authorizer.CanAccessBlock(ctx, req.UserID, req.BlockID); err != nil {
		return nil, err
	}

	msg := &canvas.Message{
		BlockID:   req.BlockID,
		Role:      req.Role,
		Metadata:  req.Metadata,
		CreatedAt: time.Now(),
	}
	msg.SetContent(req.Content)

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	// The change feed reaches live subscriptions only; unsubscribed boards
	// would otherwise keep serving the pre-append context
	if block, err := s.blockRepo.GetByID(ctx, msg.BlockID); err == nil {
		s.notify(block.BoardID)
	}

	s.logger.Debug("message appended",
		"id", msg.ID,
		"block_id", msg.BlockID,
		"role", msg.Role,
		"size_bytes", msg.SizeBytes,
	)

	return msg, nil
}

// EditMessage replaces the content of a message
func (s *Service) EditMessage(ctx context.Context, userID, messageID, content string) (*canvas.Message, error) {
	if err := validation.Validate(content, validation.Length(0, config.MaxMessageContentLength)); err != nil {
		return nil, fmt.Errorf("%w: content %v", domain.ErrValidation, err)
	}

	if err := s.authorizer.CanAccessMessage(ctx, userID, messageID); err != nil {
		return nil, err
	}

	msg, err := s.messageRepo.UpdateContent(ctx, messageID, content)
	if err != nil {
		return nil, err
	}

	// Edits are not on the change feed; drop the board's memo directly
	if block, err := s.blockRepo.GetByID(ctx, msg.BlockID); err == nil {
		s.notify(block.BoardID)
	}

	s.logger.Debug("message edited",
		"id", msg.ID,
		"block_id", msg.BlockID,
		"size_bytes", msg.SizeBytes,
	)

	return msg, nil
}

// ListMessages returns the latest messages of a block in chronological order
func (s *Service) ListMessages(ctx context.Context, userID, blockID string, limit int) ([]canvas.Message, error) {
	if err := s.authorizer.CanAccessBlock(ctx, userID, blockID); err != nil {
		return nil, err
	}

	return s.messageRepo.ListByBlock(ctx, blockID, limit)
}

func (s *Service) notify(boardID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateBoard(boardID)
	}
}

// Validation methods

func (s *Service) validateCreateBlockRequest(req *canvasSvc.CreateBlockRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.BoardID, validation.Required),
		validation.Field(&req.Title, validation.Required, validation.RuneLength(1, config.MaxBlockTitleLength)),
		validation.Field(&req.Model, validation.Required, validation.Length(1, config.MaxModelIDLength)),
	)
}

func (s *Service) validateAppendMessageRequest(req *canvasSvc.AppendMessageRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.BlockID, validation.Required),
		validation.Field(&req.Role, validation.Required, validation.In(canvas.RoleUser, canvas.RoleAssistant, canvas.RoleSystem)),
		validation.Field(&req.Content, validation.Length(0, config.MaxMessageContentLength)),
	)
}
