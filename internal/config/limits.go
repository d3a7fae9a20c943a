package config

const (
	// MaxBoardTitleLength is the maximum length for board titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxBoardTitleLength = 255

	// MaxBlockTitleLength is the maximum length for block titles.
	MaxBlockTitleLength = 255

	// MaxModelIDLength bounds model identifiers such as
	// "openrouter/anthropic/claude-haiku-4-5".
	MaxModelIDLength = 128

	// MaxTransformTemplateLength bounds connection transform templates.
	MaxTransformTemplateLength = 4000

	// MaxMemoryContentLength bounds a single memory item. Items larger than
	// the default injection budget could never be packed.
	MaxMemoryContentLength = 8000

	// MaxMemoryKeywords is the maximum number of explicit keywords per item.
	MaxMemoryKeywords = 20

	// MaxMessageContentLength bounds a single block message (1 MiB).
	MaxMessageContentLength = 1 << 20

	// DefaultHistoryLimit is how many messages a prompt preview carries.
	DefaultHistoryLimit = 50
)
