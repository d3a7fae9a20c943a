package memory

import (
	"time"
)

// ItemType classifies a memory item
type ItemType string

const (
	TypeFact       ItemType = "fact"
	TypeDecision   ItemType = "decision"
	TypeConstraint ItemType = "constraint"
	TypeNote       ItemType = "note"
)

// Scope is the visibility tier of a memory item
type Scope string

const (
	ScopeBoard Scope = "board"
	ScopeBlock Scope = "block"
	ScopeChat  Scope = "chat"
)

// AllTypes lists item types in display order (Facts first).
var AllTypes = []ItemType{TypeFact, TypeDecision, TypeConstraint, TypeNote}

// AllScopes lists scopes from widest to narrowest.
var AllScopes = []Scope{ScopeBoard, ScopeBlock, ScopeChat}

// IsValid reports whether t is a known item type.
func (t ItemType) IsValid() bool {
	switch t {
	case TypeFact, TypeDecision, TypeConstraint, TypeNote:
		return true
	}
	return false
}

// IsValid reports whether s is a known scope.
func (s Scope) IsValid() bool {
	switch s {
	case ScopeBoard, ScopeBlock, ScopeChat:
		return true
	}
	return false
}

// Item is a durable, typed, scoped piece of knowledge attached to a board.
// SourceBlockID and SourceMessageID record provenance, not ownership.
type Item struct {
	ID              string    `json:"id" db:"id"`
	BoardID         string    `json:"board_id" db:"board_id"`
	UserID          string    `json:"user_id" db:"user_id"`
	Type            ItemType  `json:"type" db:"type"`
	Content         string    `json:"content" db:"content"`
	Scope           Scope     `json:"scope" db:"scope"`
	SourceBlockID   *string   `json:"source_block_id,omitempty" db:"source_block_id"`
	SourceMessageID *string   `json:"source_message_id,omitempty" db:"source_message_id"`
	Keywords        []string  `json:"keywords" db:"keywords"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// IsFromBlock reports whether the item was sourced from blockID.
func (i *Item) IsFromBlock(blockID string) bool {
	return i.SourceBlockID != nil && *i.SourceBlockID == blockID
}

// InjectedResult is the formatted memory section produced for one prompt.
type InjectedResult struct {
	FormattedContent string `json:"formatted_content"`
	IncludedItems    []Item `json:"included_items"`
	ExcludedItems    []Item `json:"excluded_items"`
	CharCount        int    `json:"char_count"`
	WasTruncated     bool   `json:"was_truncated"`
}
