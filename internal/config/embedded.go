package config

// Embedded API keys injected at build time via ldflags.
// These serve as defaults and can be overridden by environment
// variables, a .env file or the config file.
//
// Build with:
//
//	go build -ldflags "-X 'github.com/slipstream/tvrenamer/internal/config.EmbeddedTMDBKey=xxx' \
//	                   -X 'github.com/slipstream/tvrenamer/internal/config.EmbeddedTVDBKey=yyy'"
var (
	EmbeddedTMDBKey string
	EmbeddedTVDBKey string
)
