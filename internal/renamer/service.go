// Package renamer turns a batch of episode files into a conflict-free rename
// plan and applies it.
package renamer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/slipstream/tvrenamer/internal/library/organizer"
	"github.com/slipstream/tvrenamer/internal/library/scanner"
	"github.com/slipstream/tvrenamer/internal/metadata"
	"github.com/slipstream/tvrenamer/internal/progress"
)

// Options configures a batch run.
type Options struct {
	// MaxConcurrency bounds how many files are resolved at once.
	MaxConcurrency    int
	AllowedExtensions []string
	OverwriteExisting bool
	// ShowID forces every file in the batch onto one show, skipping search.
	ShowID    string
	ShowTitle string
}

// HistoryRecorder journals applied renames so they can be undone later.
type HistoryRecorder interface {
	RecordRename(ctx context.Context, batchID string, seq int, source, target string) error
	MarkRolledBack(ctx context.Context, batchID, target string) error
}

// Service runs rename batches.
type Service struct {
	resolver   *metadata.Resolver
	organizer  *organizer.Service
	options    Options
	extensions scanner.ExtensionSet
	matchers   []scanner.Matcher
	history    HistoryRecorder
	progress   *progress.Manager
	logger     zerolog.Logger
}

// NewService creates a new rename service. resolver may be nil for a
// service that only executes or undoes existing plans.
func NewService(resolver *metadata.Resolver, org *organizer.Service, options Options, logger *zerolog.Logger) *Service {
	if options.MaxConcurrency < 1 {
		options.MaxConcurrency = 1
	}
	exts := options.AllowedExtensions
	if len(exts) == 0 {
		exts = scanner.DefaultAllowedExtensions
	}
	return &Service{
		resolver:   resolver,
		organizer:  org,
		options:    options,
		extensions: scanner.NewExtensionSet(exts),
		matchers:   scanner.DefaultMatchers,
		logger:     logger.With().Str("component", "renamer").Logger(),
	}
}

// SetHistory sets the journal applied renames are recorded in.
func (s *Service) SetHistory(h HistoryRecorder) {
	s.history = h
}

// SetProgress sets where batch progress is reported.
func (s *Service) SetProgress(p *progress.Manager) {
	s.progress = p
}

// SetMatchers replaces the filename conventions tried, in order.
func (s *Service) SetMatchers(matchers []scanner.Matcher) {
	s.matchers = matchers
}

// Run resolves files, builds the plan and executes it. A cancelled run
// returns the plan built so far together with ErrCancelled and never
// starts applying.
func (s *Service) Run(ctx context.Context, files []RawFile, apply bool) (*Plan, error) {
	resolved, stats, err := s.ResolveBatch(ctx, files)
	plan := s.BuildPlan(resolved)
	plan.Stats = stats
	if err != nil {
		return plan, err
	}
	return s.Execute(ctx, plan, apply)
}

// ResolveBatch tokenizes, resolves and formats every file on a bounded
// worker pool. Results keep input order. Per-file failures are carried in
// Resolved.Err. Once ctx is cancelled no new file is started and every
// unfinished file, including those waiting on the provider, is reported
// cancelled; provider requests already sent complete in the background
// and their results are discarded. ErrCancelled is returned.
func (s *Service) ResolveBatch(ctx context.Context, files []RawFile) ([]Resolved, metadata.Stats, error) {
	if s.resolver == nil {
		return nil, metadata.Stats{}, ErrNoResolver
	}
	session := s.resolver.NewSession()
	results := make([]Resolved, len(files))
	activity := "resolve-" + uuid.NewString()
	s.progress.Start(activity, progress.ActivityTypeResolve, "Resolving files", len(files))

	var g errgroup.Group
	g.SetLimit(s.options.MaxConcurrency)
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			results[i] = Resolved{File: f, Err: fmt.Errorf("%w: %w", ErrCancelled, err)}
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Resolved{File: f, Err: fmt.Errorf("%w: %w", ErrCancelled, err)}
				return nil
			}
			results[i] = s.resolveOne(ctx, session, f)
			s.progress.Advance(activity, f.Name())
			return nil
		})
	}
	_ = g.Wait()

	stats := session.Stats()
	s.logger.Info().
		Int("files", len(files)).
		Int64("providerCalls", stats.ProviderCalls).
		Int64("episodeHits", stats.EpisodeHits).
		Int64("searchHits", stats.SearchHits).
		Msg("Resolved batch")

	if err := ctx.Err(); err != nil {
		s.progress.Cancel(activity)
		return results, stats, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	s.progress.Complete(activity, "Resolved batch")
	return results, stats, nil
}

func (s *Service) resolveOne(ctx context.Context, session *metadata.Session, f RawFile) Resolved {
	out := Resolved{File: f}
	name := f.Name()

	if !s.extensions.Allows(name) {
		out.Err = fmt.Errorf("%w: %q", scanner.ErrUnsupportedFormat, filepath.Ext(name))
		return out
	}

	token, err := scanner.ParseWith(s.matchers, name)
	if err != nil {
		out.Err = err
		return out
	}
	out.Token = token

	year, _ := strconv.Atoi(token.Extra[scanner.TagYear])
	res, err := session.Resolve(ctx, metadata.Request{
		Hint:      token.ShowHint,
		Year:      year,
		Season:    token.Season,
		Episodes:  token.Episodes,
		ShowID:    s.options.ShowID,
		ShowTitle: s.options.ShowTitle,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		out.Err = err
		s.logger.Debug().Err(err).Str("file", name).Msg("Could not resolve file")
		return out
	}
	out.Resolution = res

	tokens := organizer.EpisodeTokens{
		SeriesTitle:   res.Show.Title,
		SeasonNumber:  res.Season,
		Episodes:      res.EpisodeNumbers(),
		EpisodeTitles: res.EpisodeTitles(),
		Resolution:    token.Extra[scanner.TagResolution],
		Source:        token.Extra[scanner.TagSource],
		Codec:         token.Extra[scanner.TagCodec],
	}
	if res.Show.Year > 0 {
		tokens.Year = strconv.Itoa(res.Show.Year)
	}
	out.Target = s.organizer.GenerateEpisodePath(filepath.Join(filepath.Dir(f.Path), name), &tokens)
	return out
}
