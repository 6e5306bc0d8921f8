package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/slipstream/tvrenamer/internal/config"
	"github.com/slipstream/tvrenamer/internal/database"
	"github.com/slipstream/tvrenamer/internal/history"
	"github.com/slipstream/tvrenamer/internal/library/organizer"
	"github.com/slipstream/tvrenamer/internal/logger"
	"github.com/slipstream/tvrenamer/internal/metadata"
	"github.com/slipstream/tvrenamer/internal/metadata/mock"
	"github.com/slipstream/tvrenamer/internal/metadata/ratelimit"
	"github.com/slipstream/tvrenamer/internal/progress"
	"github.com/slipstream/tvrenamer/internal/renamer"
)

type globalFlags struct {
	config   string
	logLevel string
	json     bool
	mock     bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error

	log     *logger.Logger
	db      *database.Manager
	journal *history.Service
	lock    *flock.Flock
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if c.flags.logLevel != "" {
			cfg.Logging.Level = c.flags.logLevel
		}
		if c.flags.mock {
			cfg.Metadata.Provider = config.ProviderMock
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := organizer.ValidateTemplate(cfg.Rename.Template); err != nil {
			c.configErr = fmt.Errorf("%w: %w", config.ErrInvalid, err)
			return
		}
		c.config = cfg
		c.log = logger.New(logger.Config{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			Path:       cfg.Logging.Path,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		})
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *zerolog.Logger {
	return &c.log.Logger
}

func (c *commandContext) isMock() bool {
	return c.config.Metadata.Provider == config.ProviderMock
}

// provider builds the configured metadata provider. Missing credentials
// abort the run before any file is touched.
func (c *commandContext) provider() (metadata.Provider, error) {
	if c.isMock() {
		return metadata.NewTMDBProvider(mock.NewTMDBClient()), nil
	}
	if err := c.config.RequireCredentials(); err != nil {
		return nil, err
	}
	return metadata.NewProvider(&c.config.Metadata, c.logger())
}

type engineOptions struct {
	showID      string
	showTitle   string
	overwrite   bool
	concurrency int
}

// engine wires provider, resolver, organizer and journal into a rename
// service.
func (c *commandContext) engine(ctx context.Context, opts engineOptions) (*renamer.Service, error) {
	cfg := c.config
	provider, err := c.provider()
	if err != nil {
		return nil, err
	}

	resolver := metadata.NewResolver(provider, metadata.ResolverConfig{
		MinConfidence: cfg.Rename.MinConfidence,
		DefaultSeason: cfg.Rename.DefaultSeason,
		RateLimit: ratelimit.Config{
			MaxConcurrent:     cfg.Rename.MaxConcurrency,
			RequestsPerSecond: cfg.Metadata.RateLimit.RequestsPerSecond,
			Burst:             cfg.Metadata.RateLimit.Burst,
			MaxAttempts:       cfg.Metadata.Retry.MaxAttempts,
			BaseDelay:         cfg.Metadata.Retry.BaseDelay,
			MaxDelay:          cfg.Metadata.Retry.MaxDelay,
		},
	}, *c.logger())

	return c.service(ctx, resolver, opts)
}

// executor builds a service for plans that are already resolved. It needs
// no provider, so apply and undo work without credentials.
func (c *commandContext) executor(ctx context.Context, overwrite bool) (*renamer.Service, error) {
	return c.service(ctx, nil, engineOptions{overwrite: overwrite})
}

func (c *commandContext) service(ctx context.Context, resolver *metadata.Resolver, opts engineOptions) (*renamer.Service, error) {
	cfg := c.config
	naming := organizer.NamingConfig{
		EpisodeFileFormat: cfg.Rename.Template,
		TitleSeparator:    cfg.Rename.TitleSeparator,
		TitleCase:         cfg.Rename.TitleCase,
	}
	org := organizer.NewService(&naming, c.logger())

	concurrency := cfg.Rename.MaxConcurrency
	if opts.concurrency > 0 {
		concurrency = opts.concurrency
	}
	svc := renamer.NewService(resolver, org, renamer.Options{
		MaxConcurrency:    concurrency,
		AllowedExtensions: cfg.Rename.AllowedExtensions,
		OverwriteExisting: cfg.Rename.OverwriteExisting || opts.overwrite,
		ShowID:            opts.showID,
		ShowTitle:         opts.showTitle,
	}, c.logger())

	svc.SetProgress(progress.NewManager(progress.LogSink(*c.logger()), *c.logger()))

	journal, err := c.history(ctx)
	if err != nil {
		return nil, err
	}
	svc.SetHistory(journal)
	return svc, nil
}

// history opens the rename journal. Mock runs use the development journal.
func (c *commandContext) history(ctx context.Context) (*history.Service, error) {
	if c.journal != nil {
		return c.journal, nil
	}
	if c.db == nil {
		c.db = database.NewManager(c.config.Database.Path, c.config.Database.DevPath, c.logger())
		c.db.SetDevMode(c.isMock())
	}
	conn, err := c.db.Conn()
	if err != nil {
		return nil, err
	}
	c.journal = history.NewService(conn, *c.logger())
	if _, err := c.journal.CleanupOldEntries(ctx, c.config.Database.RetentionDays); err != nil {
		c.logger().Warn().Err(err).Msg("Failed to prune rename journal")
	}
	return c.journal, nil
}

// acquireLock takes an exclusive lock next to the journal so two processes
// never apply or undo at the same time.
func (c *commandContext) acquireLock() error {
	path := c.config.Database.Path
	if c.isMock() {
		path = c.config.Database.DevPath
	}
	lockPath := filepath.Join(filepath.Dir(path), "tvrenamer.lock")
	if err := ensureDir(filepath.Dir(lockPath)); err != nil {
		return err
	}

	c.lock = flock.New(lockPath)
	ok, err := c.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", lockPath, err)
	}
	if !ok {
		c.lock = nil
		return fmt.Errorf("another tvrenamer process holds %s", lockPath)
	}
	return nil
}

func (c *commandContext) close() error {
	var firstErr error
	if c.lock != nil {
		if err := c.lock.Unlock(); err != nil {
			firstErr = err
		}
		c.lock = nil
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.db = nil
		c.journal = nil
	}
	if c.log != nil {
		_ = c.log.Close()
	}
	return firstErr
}
