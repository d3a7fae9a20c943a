package canvas

import (
	"time"

	"multiblock/internal/domain/models/memory"
)

// BlockContext is the resolved output of one incoming connection.
// It is derived on demand and never persisted.
type BlockContext struct {
	ConnectionID     string      `json:"connection_id"`
	SourceBlockID    string      `json:"source_block_id"`
	SourceBlockTitle string      `json:"source_block_title"`
	ContextType      ContextType `json:"context_type"`
	Content          string      `json:"content"`
	Timestamp        time.Time   `json:"timestamp"`
}

// ComposedContext is the merged payload handed to the LLM-invocation layer,
// together with provenance for debugging surfaces.
type ComposedContext struct {
	BoardID                 string                `json:"board_id"`
	BlockID                 string                `json:"block_id"`
	Content                 string                `json:"content"`
	Memory                  memory.InjectedResult `json:"memory"`
	BlockContexts           []BlockContext        `json:"block_contexts"`
	ContributingConnections []string              `json:"contributing_connections"`
	MemoryTruncated         bool                  `json:"memory_truncated"`
	Degraded                bool                  `json:"degraded"`
	ComposedAt              time.Time             `json:"composed_at"`
}

// IsEmpty reports whether there is nothing to inject.
func (c *ComposedContext) IsEmpty() bool {
	return c.Content == ""
}
