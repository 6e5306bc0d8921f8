package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrInvalid            = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("metadata provider credentials are not configured")
)

// Provider names accepted by metadata.provider.
const (
	ProviderTMDB = "tmdb"
	ProviderTVDB = "tvdb"
	ProviderMock = "mock"
)

// Config holds all application configuration.
type Config struct {
	Rename   RenameConfig   `mapstructure:"rename"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// RenameConfig holds the options of a rename batch.
type RenameConfig struct {
	Template          string   `mapstructure:"template"`
	MinConfidence     float64  `mapstructure:"min_confidence"`
	OverwriteExisting bool     `mapstructure:"overwrite_existing"`
	MaxConcurrency    int      `mapstructure:"max_concurrency"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	TitleSeparator    string   `mapstructure:"title_separator"`
	DefaultSeason     int      `mapstructure:"default_season"`
	TitleCase         bool     `mapstructure:"title_case"`
}

// MetadataConfig selects and configures the metadata provider.
type MetadataConfig struct {
	Provider  string          `mapstructure:"provider"`
	TMDB      TMDBConfig      `mapstructure:"tmdb"`
	TVDB      TVDBConfig      `mapstructure:"tvdb"`
	Retry     RetryConfig     `mapstructure:"retry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey                string `mapstructure:"api_key"`
	BaseURL               string `mapstructure:"base_url"`
	Language              string `mapstructure:"language"`
	Timeout               int    `mapstructure:"timeout"` // seconds
	DisableSearchOrdering bool   `mapstructure:"disable_search_ordering"`
}

// TVDBConfig holds TVDB v4 API configuration.
type TVDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// RetryConfig bounds the retry loop used when the provider rate limits.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// RateLimitConfig caps the request rate to the provider. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// DatabaseConfig holds the rename journal location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	// DevPath is the journal used for runs against the mock provider.
	DevPath       string `mapstructure:"dev_path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Rename: RenameConfig{
			Template:          "{show} - S{season:02}E{episode:02} - {title}",
			MinConfidence:     0.6,
			MaxConcurrency:    4,
			AllowedExtensions: []string{"mkv", "mp4", "avi", "mov", "wmv", "m4v"},
			TitleSeparator:    " & ",
			DefaultSeason:     1,
		},
		Metadata: MetadataConfig{
			Provider: ProviderTMDB,
			TMDB: TMDBConfig{
				BaseURL:  "https://api.themoviedb.org/3",
				Language: "en-US",
				Timeout:  15,
			},
			TVDB: TVDBConfig{
				BaseURL: "https://api4.thetvdb.com/v4",
				Timeout: 15,
			},
			Retry: RetryConfig{
				MaxAttempts: 4,
				BaseDelay:   500 * time.Millisecond,
				MaxDelay:    8 * time.Second,
			},
		},
		Database: DatabaseConfig{
			Path:          "./data/tvrenamer.db",
			DevPath:       "./data/tvrenamer_dev.db",
			RetentionDays: 365,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > .env file > config file > defaults
func Load(configPath string) (*Config, error) {
	// A .env file only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.tvrenamer")
	}

	v.SetEnvPrefix("TVRENAMER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The conventional provider variables work without the prefix.
	if err := v.BindEnv("metadata.tmdb.api_key", "TVRENAMER_METADATA_TMDB_API_KEY", "TMDB_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("metadata.tvdb.api_key", "TVRENAMER_METADATA_TVDB_API_KEY", "TVDB_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Metadata.TMDB.APIKey == "" {
		cfg.Metadata.TMDB.APIKey = EmbeddedTMDBKey
	}
	if cfg.Metadata.TVDB.APIKey == "" {
		cfg.Metadata.TVDB.APIKey = EmbeddedTVDBKey
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("rename.template", d.Rename.Template)
	v.SetDefault("rename.min_confidence", d.Rename.MinConfidence)
	v.SetDefault("rename.overwrite_existing", d.Rename.OverwriteExisting)
	v.SetDefault("rename.max_concurrency", d.Rename.MaxConcurrency)
	v.SetDefault("rename.allowed_extensions", d.Rename.AllowedExtensions)
	v.SetDefault("rename.title_separator", d.Rename.TitleSeparator)
	v.SetDefault("rename.default_season", d.Rename.DefaultSeason)
	v.SetDefault("rename.title_case", d.Rename.TitleCase)

	v.SetDefault("metadata.provider", d.Metadata.Provider)
	v.SetDefault("metadata.tmdb.api_key", "")
	v.SetDefault("metadata.tmdb.base_url", d.Metadata.TMDB.BaseURL)
	v.SetDefault("metadata.tmdb.language", d.Metadata.TMDB.Language)
	v.SetDefault("metadata.tmdb.timeout", d.Metadata.TMDB.Timeout)
	v.SetDefault("metadata.tmdb.disable_search_ordering", false)
	v.SetDefault("metadata.tvdb.api_key", "")
	v.SetDefault("metadata.tvdb.base_url", d.Metadata.TVDB.BaseURL)
	v.SetDefault("metadata.tvdb.timeout", d.Metadata.TVDB.Timeout)
	v.SetDefault("metadata.retry.max_attempts", d.Metadata.Retry.MaxAttempts)
	v.SetDefault("metadata.retry.base_delay", d.Metadata.Retry.BaseDelay)
	v.SetDefault("metadata.retry.max_delay", d.Metadata.Retry.MaxDelay)
	v.SetDefault("metadata.rate_limit.requests_per_second", 0)
	v.SetDefault("metadata.rate_limit.burst", 0)

	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.dev_path", d.Database.DevPath)
	v.SetDefault("database.retention_days", d.Database.RetentionDays)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
}

// Validate rejects option values the rename engine cannot run with.
// Credentials are checked separately by RequireCredentials because dry runs
// against the mock provider need none.
func (c *Config) Validate() error {
	r := c.Rename
	switch {
	case strings.TrimSpace(r.Template) == "":
		return fmt.Errorf("%w: rename.template is empty", ErrInvalid)
	case r.MinConfidence < 0 || r.MinConfidence > 1:
		return fmt.Errorf("%w: rename.min_confidence %.2f is outside [0,1]", ErrInvalid, r.MinConfidence)
	case r.MaxConcurrency < 1:
		return fmt.Errorf("%w: rename.max_concurrency must be at least 1", ErrInvalid)
	case len(r.AllowedExtensions) == 0:
		return fmt.Errorf("%w: rename.allowed_extensions is empty", ErrInvalid)
	case r.DefaultSeason < 0:
		return fmt.Errorf("%w: rename.default_season must not be negative", ErrInvalid)
	}

	m := c.Metadata
	switch m.Provider {
	case ProviderTMDB, ProviderTVDB, ProviderMock:
	default:
		return fmt.Errorf("%w: unknown metadata.provider %q", ErrInvalid, m.Provider)
	}
	if m.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: metadata.retry.max_attempts must be at least 1", ErrInvalid)
	}
	if m.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: metadata.rate_limit.requests_per_second must not be negative", ErrInvalid)
	}
	return nil
}

// RequireCredentials fails with ErrMissingCredentials when the selected
// provider needs an API key and none is configured.
func (c *Config) RequireCredentials() error {
	switch c.Metadata.Provider {
	case ProviderTMDB:
		if c.Metadata.TMDB.APIKey == "" {
			return fmt.Errorf("%w: set TMDB_API_KEY or metadata.tmdb.api_key", ErrMissingCredentials)
		}
	case ProviderTVDB:
		if c.Metadata.TVDB.APIKey == "" {
			return fmt.Errorf("%w: set TVDB_API_KEY or metadata.tvdb.api_key", ErrMissingCredentials)
		}
	}
	return nil
}
