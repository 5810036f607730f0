package config

const (
	// MaxChatTitleLength is the maximum length for chat titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (titles should be short and descriptive).
	MaxChatTitleLength = 255

	// MaxPromptLength bounds a single submitted prompt. Keeps request
	// bodies and completion context well under upstream token limits.
	MaxPromptLength = 8000

	// DefaultHistoryLimit is how many prior messages are folded into the
	// completion prompt when the caller does not choose.
	DefaultHistoryLimit = 50
)
