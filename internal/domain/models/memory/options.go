package memory

// FilterOptions selects items from a memory pool. Categories combine with
// AND; values inside one category combine with OR. Empty categories match all.
type FilterOptions struct {
	Scopes        []Scope    `json:"scopes,omitempty"`
	Types         []ItemType `json:"types,omitempty"`
	Keywords      []string   `json:"keywords,omitempty"`
	SourceBlockID *string    `json:"source_block_id,omitempty"`
}

// BuildOptions controls how filtered items are packed and rendered.
// MaxChars <= 0 falls back to the configured default budget.
type BuildOptions struct {
	FilterOptions
	MaxChars     int  `json:"max_chars,omitempty"`
	IncludeScope bool `json:"include_scope,omitempty"`
}
