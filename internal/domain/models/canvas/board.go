package canvas

import (
	"time"
)

// Board is a user-owned canvas holding blocks and their connections.
// Team boards carry a TeamID; membership is decided outside this module.
type Board struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	TeamID    *string   `json:"team_id,omitempty" db:"team_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTeamBoard reports whether access is governed by team membership.
func (b *Board) IsTeamBoard() bool {
	return b.TeamID != nil && *b.TeamID != ""
}

// Block is a single AI chat unit on a board
type Block struct {
	ID           string    `json:"id" db:"id"`
	BoardID      string    `json:"board_id" db:"board_id"`
	Title        string    `json:"title" db:"title"`
	Model        string    `json:"model" db:"model"`
	SystemPrompt string    `json:"system_prompt" db:"system_prompt"`
	PositionX    float64   `json:"position_x" db:"position_x"`
	PositionY    float64   `json:"position_y" db:"position_y"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
