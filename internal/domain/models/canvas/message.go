package canvas

import (
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message belongs to exactly one block and is ordered by CreatedAt.
// SizeBytes is the UTF-8 length of Content and must follow every content edit.
type Message struct {
	ID        string           `json:"id" db:"id"`
	BlockID   string           `json:"block_id" db:"block_id"`
	Role      string           `json:"role" db:"role"`
	Content   string           `json:"content" db:"content"`
	SizeBytes int              `json:"size_bytes" db:"size_bytes"`
	Metadata  *MessageMetadata `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// MessageMetadata carries optional per-message usage details.
type MessageMetadata struct {
	TokenCount *int     `json:"token_count,omitempty"`
	Cost       *float64 `json:"cost,omitempty"`
	LatencyMS  *int     `json:"latency_ms,omitempty"`
	Model      *string  `json:"model,omitempty"`
}

// SetContent replaces the content and recomputes SizeBytes.
func (m *Message) SetContent(content string) {
	m.Content = content
	m.SizeBytes = len(content)
}

// IsValidRole reports whether role is one of the supported message roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}
