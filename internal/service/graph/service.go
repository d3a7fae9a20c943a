package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"multiblock/internal/config"
	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
	"multiblock/internal/domain/repositories"
	canvasRepo "multiblock/internal/domain/repositories/canvas"
	"multiblock/internal/domain/services"
	canvasSvc "multiblock/internal/domain/services/canvas"
	"multiblock/internal/observability"
)

// BoardInvalidator drops cached contexts for a board after an edge changes
type BoardInvalidator interface {
	InvalidateBoard(boardID string)
}

// Service implements the GraphService interface
type Service struct {
	connRepo    canvasRepo.ConnectionRepository
	blockRepo   canvasRepo.BlockRepository
	txManager   repositories.TransactionManager
	authorizer  services.ResourceAuthorizer
	invalidator BoardInvalidator
	metrics     *observability.Collector
	logger      *slog.Logger
}

// NewService creates a new connection graph service. invalidator and
// metrics may be nil.
func NewService(
	connRepo canvasRepo.ConnectionRepository,
	blockRepo canvasRepo.BlockRepository,
	txManager repositories.TransactionManager,
	authorizer services.ResourceAuthorizer,
	invalidator BoardInvalidator,
	metrics *observability.Collector,
	logger *slog.Logger,
) canvasSvc.GraphService {
	return &Service{
		connRepo:    connRepo,
		blockRepo:   blockRepo,
		txManager:   txManager,
		authorizer:  authorizer,
		invalidator: invalidator,
		metrics:     metrics,
		logger:      logger,
	}
}

// Create connects two blocks
func (s *Service) Create(ctx context.Context, req *canvasSvc.CreateConnectionRequest) (*canvas.Connection, error) {
	if req.ContextType == "" {
		req.ContextType = canvas.ContextTypeFull
	}

	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// Self-loops are rejected before touching the store
	if req.FromBlockID == req.ToBlockID {
		return nil, &domain.SelfLoopError{BlockID: req.FromBlockID}
	}

	for _, blockID := range []string{req.FromBlockID, req.ToBlockID} {
		if err := s.authorizer.CanAccessBlock(ctx, req.UserID, blockID); err != nil {
			return nil, err
		}
	}

	conn := &canvas.Connection{
		FromBlockID:       req.FromBlockID,
		ToBlockID:         req.ToBlockID,
		ContextType:       req.ContextType,
		TransformTemplate: normalizeTemplate(req.TransformTemplate),
		Enabled:           true,
		CreatedAt:         time.Now(),
	}

	if err := s.connRepo.Create(ctx, conn); err != nil {
		return nil, err
	}
	s.metrics.ConnectionMutated("create")
	s.notify(ctx, conn.ToBlockID)

	s.logger.Info("connection created",
		"id", conn.ID,
		"from_block", conn.FromBlockID,
		"to_block", conn.ToBlockID,
		"context_type", conn.ContextType,
		"user_id", req.UserID,
	)

	return conn, nil
}

// Update applies a partial update to a connection
func (s *Service) Update(ctx context.Context, connectionID string, patch canvas.ConnectionPatch) error {
	if patch.ContextType != nil && !patch.ContextType.IsValid() {
		return fmt.Errorf("%w: invalid context type %q", domain.ErrValidation, *patch.ContextType)
	}
	if patch.TransformTemplate != nil && patch.TransformTemplate.Value != nil &&
		len(*patch.TransformTemplate.Value) > config.MaxTransformTemplateLength {
		return fmt.Errorf("%w: transform template exceeds %d characters", domain.ErrValidation, config.MaxTransformTemplateLength)
	}

	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}

	updated := patch.Apply(*conn)
	updated.TransformTemplate = normalizeTemplate(updated.TransformTemplate)

	if err := s.connRepo.Update(ctx, &updated); err != nil {
		return err
	}
	s.metrics.ConnectionMutated("update")
	s.notify(ctx, updated.ToBlockID)

	s.logger.Debug("connection updated",
		"id", connectionID,
		"context_type", updated.ContextType,
		"enabled", updated.Enabled,
	)

	return nil
}

// Remove deletes a connection
func (s *Service) Remove(ctx context.Context, connectionID string) error {
	// Resolve the target first; after the delete the edge is gone
	var targetID string
	if conn, err := s.connRepo.GetByID(ctx, connectionID); err == nil {
		targetID = conn.ToBlockID
	}

	if err := s.connRepo.Delete(ctx, connectionID); err != nil {
		return err
	}
	s.metrics.ConnectionMutated("remove")
	if targetID != "" {
		s.notify(ctx, targetID)
	}

	s.logger.Info("connection removed", "id", connectionID)
	return nil
}

// Toggle flips the enabled flag of a connection
func (s *Service) Toggle(ctx context.Context, connectionID string) (*canvas.Connection, error) {
	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("toggle on missing connection", "id", connectionID)
			return nil, nil
		}
		return nil, err
	}

	conn.Enabled = !conn.Enabled
	if err := s.connRepo.Update(ctx, conn); err != nil {
		return nil, err
	}
	s.metrics.ConnectionMutated("toggle")
	s.notify(ctx, conn.ToBlockID)

	s.logger.Debug("connection toggled", "id", connectionID, "enabled", conn.Enabled)
	return conn, nil
}

// ListOutgoing returns all connections leaving a block
func (s *Service) ListOutgoing(ctx context.Context, blockID string) ([]canvas.Connection, error) {
	return s.connRepo.ListOutgoing(ctx, blockID)
}

// ListIncoming returns all connections entering a block
func (s *Service) ListIncoming(ctx context.Context, blockID string) ([]canvas.Connection, error) {
	return s.connRepo.ListIncoming(ctx, blockID)
}

// ExistsBetween reports whether from->to exists
func (s *Service) ExistsBetween(ctx context.Context, fromBlockID, toBlockID string) (bool, error) {
	return s.connRepo.ExistsBetween(ctx, fromBlockID, toBlockID)
}

// ExistsBidirectional reports whether a->b and b->a both exist
func (s *Service) ExistsBidirectional(ctx context.Context, blockA, blockB string) (bool, error) {
	forward, err := s.connRepo.ExistsBetween(ctx, blockA, blockB)
	if err != nil || !forward {
		return false, err
	}
	return s.connRepo.ExistsBetween(ctx, blockB, blockA)
}

// MakeBidirectional adds the reverse of an existing a->b edge
func (s *Service) MakeBidirectional(ctx context.Context, userID, blockA, blockB string) (*canvas.Connection, error) {
	var created *canvas.Connection

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		outgoing, err := s.connRepo.ListOutgoing(txCtx, blockA)
		if err != nil {
			return err
		}

		var forward *canvas.Connection
		for i := range outgoing {
			if outgoing[i].ToBlockID == blockB {
				forward = &outgoing[i]
				break
			}
		}
		if forward == nil {
			return fmt.Errorf("connection from %s to %s: %w", blockA, blockB, domain.ErrNotFound)
		}

		reverse, err := s.connRepo.ExistsBetween(txCtx, blockB, blockA)
		if err != nil {
			return err
		}
		if reverse {
			return nil
		}

		created, err = s.Create(txCtx, &canvasSvc.CreateConnectionRequest{
			UserID:            userID,
			FromBlockID:       blockB,
			ToBlockID:         blockA,
			ContextType:       forward.ContextType,
			TransformTemplate: forward.TransformTemplate,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	// Create already notified inside the transaction; repeat once committed
	// so a compose racing the commit cannot keep a stale entry
	if created != nil {
		s.notify(ctx, created.ToBlockID)
	}

	return created, nil
}

// notify invalidates the board holding the edge's target block. The
// target's context is the one that changed; cycles make the rest of the
// board suspect too, so the whole board is dropped.
func (s *Service) notify(ctx context.Context, targetBlockID string) {
	if s.invalidator == nil || s.blockRepo == nil {
		return
	}
	block, err := s.blockRepo.GetByID(ctx, targetBlockID)
	if err != nil {
		s.logger.Warn("cannot resolve board for invalidation",
			"block_id", targetBlockID,
			"error", err,
		)
		return
	}
	s.invalidator.InvalidateBoard(block.BoardID)
}

// normalizeTemplate treats an empty template as no template
func normalizeTemplate(tmpl *string) *string {
	if tmpl == nil || *tmpl == "" {
		return nil
	}
	return tmpl
}

// Validation methods

func (s *Service) validateCreateRequest(req *canvasSvc.CreateConnectionRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.FromBlockID, validation.Required),
		validation.Field(&req.ToBlockID, validation.Required),
		validation.Field(&req.ContextType, validation.In(canvas.ContextTypeFull, canvas.ContextTypeSummary)),
		validation.Field(&req.TransformTemplate, validation.Length(0, config.MaxTransformTemplateLength)),
	)
}
