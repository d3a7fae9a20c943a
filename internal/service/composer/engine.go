package composer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"multiblock/internal/config"
	"multiblock/internal/domain/models/canvas"
	"multiblock/internal/domain/models/memory"
	memoryRepo "multiblock/internal/domain/repositories/memory"
	canvasSvc "multiblock/internal/domain/services/canvas"
	"multiblock/internal/observability"
	memoryService "multiblock/internal/service/memory"
)

// Engine implements the ContextComposer interface
type Engine struct {
	resolver   canvasSvc.ContextResolver
	memoryRepo memoryRepo.MemoryRepository
	builder    *memoryService.Builder
	settings   config.BlockContextSettings
	cache      *ContextCache
	metrics    *observability.Collector
	logger     *slog.Logger
}

// NewEngine creates a new composition engine. metrics may be nil.
func NewEngine(
	resolver canvasSvc.ContextResolver,
	memoryRepo memoryRepo.MemoryRepository,
	builder *memoryService.Builder,
	settings config.BlockContextSettings,
	metrics *observability.Collector,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		resolver:   resolver,
		memoryRepo: memoryRepo,
		builder:    builder,
		settings:   settings,
		cache:      NewContextCache(),
		metrics:    metrics,
		logger:     logger,
	}
}

// ComposeContext returns the memoised context of a block, recomputing it
// when it was invalidated. Read failures degrade the result instead of
// failing it; degraded results are not memoised.
func (e *Engine) ComposeContext(ctx context.Context, boardID, targetBlockID string) (*canvas.ComposedContext, error) {
	cached, version := e.cache.Get(boardID, targetBlockID)
	if cached != nil {
		e.metrics.ObserveCompose(observability.OutcomeHit, 0, false)
		return cached, nil
	}

	start := time.Now()
	composed := e.compose(ctx, boardID, targetBlockID)

	outcome := observability.OutcomeMiss
	if composed.Degraded {
		outcome = observability.OutcomeDegraded
	} else if !e.cache.Store(boardID, targetBlockID, version, composed) {
		e.logger.Debug("composed context invalidated while computing",
			"board_id", boardID,
			"block_id", targetBlockID,
		)
	}
	e.metrics.ObserveCompose(outcome, time.Since(start), composed.MemoryTruncated)

	e.logger.Debug("context composed",
		"board_id", boardID,
		"block_id", targetBlockID,
		"block_contexts", len(composed.BlockContexts),
		"memory_items", len(composed.Memory.IncludedItems),
		"memory_truncated", composed.MemoryTruncated,
		"degraded", composed.Degraded,
		"chars", len(composed.Content),
	)

	return composed, nil
}

// Invalidate marks one block's composed context stale
func (e *Engine) Invalidate(boardID, blockID string) {
	e.cache.Invalidate(boardID, blockID)
}

// InvalidateBoard marks every composed context of a board stale
func (e *Engine) InvalidateBoard(boardID string) {
	e.cache.InvalidateBoard(boardID)
}

// Cache exposes the memo for inspection
func (e *Engine) Cache() *ContextCache {
	return e.cache
}

func (e *Engine) compose(ctx context.Context, boardID, targetBlockID string) *canvas.ComposedContext {
	degraded := false

	blockContexts, err := e.resolver.ResolveIncomingContext(ctx, targetBlockID)
	if err != nil {
		e.logger.Warn("resolving incoming context failed",
			"board_id", boardID,
			"block_id", targetBlockID,
			"error", err,
		)
		blockContexts = []canvas.BlockContext{}
		degraded = true
	}

	pool, err := e.memoryRepo.ListByBoard(ctx, boardID)
	if err != nil {
		e.logger.Warn("loading board memory failed",
			"board_id", boardID,
			"error", err,
		)
		pool = nil
		degraded = true
	}

	injected := e.builder.ForBlock(pool, targetBlockID, memory.BuildOptions{
		IncludeScope: e.builder.Settings().IncludeScope,
	})

	contributing := make([]string, 0, len(blockContexts))
	for _, bc := range blockContexts {
		contributing = append(contributing, bc.ConnectionID)
	}

	return &canvas.ComposedContext{
		BoardID:                 boardID,
		BlockID:                 targetBlockID,
		Content:                 e.merge(injected.FormattedContent, blockContexts),
		Memory:                  *injected,
		BlockContexts:           blockContexts,
		ContributingConnections: contributing,
		MemoryTruncated:         injected.WasTruncated,
		Degraded:                degraded,
		ComposedAt:              time.Now(),
	}
}

// merge places memory first, then one titled section per block context.
// There is no combined budget across the two parts.
func (e *Engine) merge(memoryContent string, blockContexts []canvas.BlockContext) string {
	sections := make([]string, 0, len(blockContexts)+1)
	if memoryContent != "" {
		sections = append(sections, memoryContent)
	}
	for _, bc := range blockContexts {
		sections = append(sections, SectionHeading(e.settings.SectionTitle, bc.SourceBlockTitle)+"\n\n"+bc.Content)
	}
	return strings.Join(sections, "\n\n")
}
