package canvas

// Change event kinds published by the persistence layer
const (
	EventMessageInserted   = "message_inserted"
	EventConnectionChanged = "connection_changed"
)

// ChangeEvent is one entry of the push feed scoped to the acting user.
type ChangeEvent struct {
	Kind         string `json:"kind"`
	UserID       string `json:"user_id"`
	BoardID      string `json:"board_id"`
	BlockID      string `json:"block_id,omitempty"`
	MessageID    string `json:"message_id,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`
}
