package canvas

import (
	"time"
)

// ContextType controls how source output is transformed before injection.
type ContextType string

const (
	ContextTypeFull    ContextType = "full"
	ContextTypeSummary ContextType = "summary"
)

// IsValid reports whether t is a known context type.
func (t ContextType) IsValid() bool {
	return t == ContextTypeFull || t == ContextTypeSummary
}

// OutputPlaceholder is replaced by the source content inside a transform template.
const OutputPlaceholder = "{{output}}"

// Connection is a directed context-sharing edge between two blocks.
// Duplicate edges between the same pair are allowed and contribute separately.
type Connection struct {
	ID                string      `json:"id" db:"id"`
	FromBlockID       string      `json:"from_block" db:"from_block"`
	ToBlockID         string      `json:"to_block" db:"to_block"`
	ContextType       ContextType `json:"context_type" db:"context_type"`
	TransformTemplate *string     `json:"transform_template,omitempty" db:"transform_template"`
	Enabled           bool        `json:"enabled" db:"enabled"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}

// HasTemplate reports whether a non-empty transform template is set.
func (c *Connection) HasTemplate() bool {
	return c.TransformTemplate != nil && *c.TransformTemplate != ""
}

// ConnectionPatch describes a partial connection update.
// A nil field is left unchanged. TransformTemplate is tri-state: nil leaves
// it, a patch with a nil Value clears it, otherwise it is replaced.
type ConnectionPatch struct {
	ContextType       *ContextType
	TransformTemplate *TemplatePatch
	Enabled           *bool
}

// TemplatePatch is the tri-state value for a transform template update.
type TemplatePatch struct {
	Value *string
}

// Apply returns a copy of c with the patch applied.
func (p ConnectionPatch) Apply(c Connection) Connection {
	if p.ContextType != nil {
		c.ContextType = *p.ContextType
	}
	if p.TransformTemplate != nil {
		c.TransformTemplate = p.TransformTemplate.Value
	}
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	return c
}
