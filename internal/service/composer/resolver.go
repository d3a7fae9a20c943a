package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"multiblock/internal/config"
	"multiblock/internal/domain"
	"multiblock/internal/domain/models/canvas"
	canvasRepo "multiblock/internal/domain/repositories/canvas"
)

// Resolver turns the enabled incoming connections of a block into context
// fragments built from each source's latest assistant message.
type Resolver struct {
	connRepo    canvasRepo.ConnectionRepository
	blockRepo   canvasRepo.BlockRepository
	messageRepo canvasRepo.MessageRepository
	settings    config.BlockContextSettings
	logger      *slog.Logger
}

// NewResolver creates a new context resolver
func NewResolver(
	connRepo canvasRepo.ConnectionRepository,
	blockRepo canvasRepo.BlockRepository,
	messageRepo canvasRepo.MessageRepository,
	settings config.BlockContextSettings,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		connRepo:    connRepo,
		blockRepo:   blockRepo,
		messageRepo: messageRepo,
		settings:    settings,
		logger:      logger,
	}
}

// ResolveIncomingContext returns one BlockContext per enabled incoming
// connection whose source has non-empty output, in connection creation order.
// Broken edges are skipped; only a failure to list the edges is returned.
func (r *Resolver) ResolveIncomingContext(ctx context.Context, targetBlockID string) ([]canvas.BlockContext, error) {
	incoming, err := r.connRepo.ListIncoming(ctx, targetBlockID)
	if err != nil {
		return nil, &domain.TransientFetchError{Op: "list incoming connections", Err: err}
	}

	enabled := make([]canvas.Connection, 0, len(incoming))
	sourceIDs := make([]string, 0, len(incoming))
	for _, conn := range incoming {
		if !conn.Enabled {
			continue
		}
		enabled = append(enabled, conn)
		sourceIDs = append(sourceIDs, conn.FromBlockID)
	}
	if len(enabled) == 0 {
		return []canvas.BlockContext{}, nil
	}

	// Batch lookup of source blocks (avoids N+1)
	sources, err := r.blockRepo.GetByIDs(ctx, sourceIDs)
	if err != nil {
		return nil, &domain.TransientFetchError{Op: "load source blocks", Err: err}
	}

	contexts := make([]canvas.BlockContext, 0, len(enabled))
	for _, conn := range enabled {
		source, ok := sources[conn.FromBlockID]
		if !ok {
			r.logger.Warn("skipping dangling connection",
				"connection_id", conn.ID,
				"from_block", conn.FromBlockID,
				"to_block", targetBlockID,
			)
			continue
		}

		latest, err := r.messageRepo.GetLatestByRole(ctx, source.ID, canvas.RoleAssistant)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				r.logger.Warn("skipping source after fetch failure",
					"connection_id", conn.ID,
					"from_block", source.ID,
					"error", err,
				)
			}
			continue
		}
		if latest.Content == "" {
			continue
		}

		contexts = append(contexts, canvas.BlockContext{
			ConnectionID:     conn.ID,
			SourceBlockID:    source.ID,
			SourceBlockTitle: source.Title,
			ContextType:      conn.ContextType,
			Content:          r.Transform(conn, latest.Content),
			Timestamp:        latest.CreatedAt,
		})
	}

	return contexts, nil
}

// Transform applies the connection's context type and template to content.
func (r *Resolver) Transform(conn canvas.Connection, content string) string {
	if conn.ContextType == canvas.ContextTypeSummary {
		content = Summarize(content, r.settings.SummaryLength, r.settings.Ellipsis)
	}
	if conn.HasTemplate() {
		// A template without the placeholder replaces the content outright
		content = strings.ReplaceAll(*conn.TransformTemplate, canvas.OutputPlaceholder, content)
	}
	return content
}

// Summarize keeps the first limit characters and appends ellipsis only when
// something was cut.
func Summarize(content string, limit int, ellipsis string) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + ellipsis
}

// SectionHeading renders the heading that introduces a block context.
func SectionHeading(format, title string) string {
	return fmt.Sprintf(format, title)
}
