package models

const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	// DefaultUniqueDrinks is the default size of the "recent drinks" list.
	DefaultUniqueDrinks = 5

	// DefaultEBACWindowHours is how far back drinks are considered for eBAC.
	DefaultEBACWindowHours = 48

	// DefaultSumWindowHours is the window used for the daily total.
	DefaultSumWindowHours = 24

	// MaxLateHours limits how far back a drink can be logged.
	MaxLateHours = 24

	// RateLimitMessages messages allowed per window
	RateLimitMessages = 20

	// RateLimitWindow rate limit window in seconds
	RateLimitWindow = 60

	// SendRPS outbound messages per second towards Telegram
	SendRPS = 25
)
