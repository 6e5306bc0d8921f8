package metadata

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/slipstream/tvrenamer/internal/metadata/ratelimit"
)

// YearMatchBonus is added to a candidate's confidence when its first-air
// year equals the year found in the filename.
const YearMatchBonus = 0.1

// TieMargin is the confidence gap below which the two best candidates are
// treated as indistinguishable.
const TieMargin = 0.02

// ResolverConfig holds resolver configuration.
type ResolverConfig struct {
	// MinConfidence is the threshold the top candidate must reach to be
	// selected without an explicit choice.
	MinConfidence float64
	// DefaultSeason applies to files whose name carries no season.
	DefaultSeason int
	// RateLimit bounds calls to the provider. Its Retryable hook is set by
	// the resolver.
	RateLimit ratelimit.Config
}

// Resolver turns parsed filename tokens into provider-confirmed episode
// identities.
type Resolver struct {
	provider Provider
	limiter  *ratelimit.Limiter
	config   ResolverConfig
	logger   zerolog.Logger
}

// NewResolver creates a resolver over provider.
func NewResolver(provider Provider, config ResolverConfig, logger zerolog.Logger) *Resolver {
	rl := config.RateLimit
	rl.Retryable = func(err error) bool { return errors.Is(err, ErrRateLimited) }

	return &Resolver{
		provider: provider,
		limiter:  ratelimit.NewLimiter(rl, logger),
		config:   config,
		logger:   logger.With().Str("component", "resolver").Str("provider", provider.Name()).Logger(),
	}
}

// Request describes one file to resolve.
type Request struct {
	Hint     string
	Year     int
	Season   *int
	Episodes []int
	// ShowID bypasses the search when set. ShowTitle supplies its title;
	// when empty the title is looked up if the provider supports it.
	ShowID    string
	ShowTitle string
}

// Resolution is a resolved file identity.
type Resolution struct {
	Show            ShowCandidate   `json:"show" yaml:"show"`
	Season          int             `json:"season" yaml:"season"`
	SeasonDefaulted bool            `json:"seasonDefaulted,omitempty" yaml:"seasonDefaulted,omitempty"`
	Episodes        []EpisodeRecord `json:"episodes" yaml:"episodes"`
}

// EpisodeNumbers returns the resolved episode numbers in order.
func (r *Resolution) EpisodeNumbers() []int {
	nums := make([]int, len(r.Episodes))
	for i, ep := range r.Episodes {
		nums[i] = ep.Episode
	}
	return nums
}

// EpisodeTitles returns the episode titles in order; missing titles are
// empty strings.
func (r *Resolution) EpisodeTitles() []string {
	titles := make([]string, len(r.Episodes))
	for i, ep := range r.Episodes {
		titles[i] = ep.Title
	}
	return titles
}

// Stats counts provider traffic and memo hits for one batch run.
type Stats struct {
	SearchCalls   int64 `json:"searchCalls" yaml:"searchCalls"`
	SearchHits    int64 `json:"searchHits" yaml:"searchHits"`
	ShowCalls     int64 `json:"showCalls" yaml:"showCalls"`
	ShowHits      int64 `json:"showHits" yaml:"showHits"`
	EpisodeCalls  int64 `json:"episodeCalls" yaml:"episodeCalls"`
	EpisodeHits   int64 `json:"episodeHits" yaml:"episodeHits"`
	ProviderCalls int64 `json:"providerCalls" yaml:"providerCalls"`
	Retries       int64 `json:"retries" yaml:"retries"`
}

// Session scopes memoized lookups to a single batch run. It is safe for
// concurrent use; discard it when the run ends.
type Session struct {
	r        *Resolver
	searches *Memo[[]ShowCandidate]
	shows    *Memo[*ShowCandidate]
	episodes *Memo[*EpisodeRecord]
	base     ratelimit.Stats
}

// NewSession starts a batch run with empty memos.
func (r *Resolver) NewSession() *Session {
	return &Session{
		r:        r,
		searches: NewMemo[[]ShowCandidate](),
		shows:    NewMemo[*ShowCandidate](),
		episodes: NewMemo[*EpisodeRecord](),
		base:     r.limiter.Stats(),
	}
}

// Stats returns the session's lookup counters.
func (s *Session) Stats() Stats {
	ls := s.r.limiter.Stats()
	return Stats{
		SearchCalls:   s.searches.Misses(),
		SearchHits:    s.searches.Hits(),
		ShowCalls:     s.shows.Misses(),
		ShowHits:      s.shows.Hits(),
		EpisodeCalls:  s.episodes.Misses(),
		EpisodeHits:   s.episodes.Hits(),
		ProviderCalls: ls.Calls - s.base.Calls,
		Retries:       ls.Retries - s.base.Retries,
	}
}

// Resolve selects the show and fetches every requested episode. Failures
// are one of ErrAmbiguousShow, ErrEpisodeNotFound, ErrProvider or a context
// error.
func (s *Session) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	if len(req.Episodes) == 0 {
		return nil, fmt.Errorf("%w: no episode numbers", ErrEpisodeNotFound)
	}

	show, err := s.selectShow(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Show: *show, Season: s.r.config.DefaultSeason, SeasonDefaulted: true}
	if req.Season != nil {
		res.Season = *req.Season
		res.SeasonDefaulted = false
	}

	res.Episodes = make([]EpisodeRecord, 0, len(req.Episodes))
	for _, ep := range req.Episodes {
		rec, err := s.episode(ctx, show.ID, res.Season, ep)
		if err != nil {
			return nil, err
		}
		res.Episodes = append(res.Episodes, *rec)
	}

	s.r.logger.Debug().
		Str("hint", req.Hint).
		Str("show", show.Title).
		Int("season", res.Season).
		Ints("episodes", req.Episodes).
		Msg("Resolved file")

	return res, nil
}

func (s *Session) selectShow(ctx context.Context, req Request) (*ShowCandidate, error) {
	if req.ShowID != "" {
		return s.explicitShow(ctx, req.ShowID, req.ShowTitle)
	}

	query := ShowQuery{Hint: req.Hint, Year: req.Year}
	if NormalizeTitle(query.Hint) == "" {
		return nil, &AmbiguousShowError{Hint: req.Hint, Threshold: s.r.config.MinConfidence}
	}

	candidates, err := s.search(ctx, query)
	if err != nil {
		return nil, err
	}

	ranked := RankCandidates(candidates, query.Year)
	if len(ranked) == 0 || ranked[0].Confidence < s.r.config.MinConfidence {
		return nil, &AmbiguousShowError{Hint: req.Hint, Threshold: s.r.config.MinConfidence, Candidates: ranked}
	}
	// Two equally good matches ("The Office" US and UK) are not a choice
	// the resolver makes.
	if len(ranked) > 1 && ranked[0].Confidence-ranked[1].Confidence < TieMargin {
		return nil, &AmbiguousShowError{Hint: req.Hint, Threshold: s.r.config.MinConfidence, Candidates: ranked, Tied: true}
	}
	return &ranked[0], nil
}

func (s *Session) search(ctx context.Context, query ShowQuery) ([]ShowCandidate, error) {
	key := fmt.Sprintf("%s|%d", NormalizeTitle(query.Hint), query.Year)
	return s.searches.Do(ctx, key, func(ctx context.Context) ([]ShowCandidate, error) {
		var out []ShowCandidate
		err := s.r.call(ctx, "search", func(ctx context.Context) error {
			var err error
			out, err = s.r.provider.SearchShow(ctx, query)
			return err
		})
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return out, err
	})
}

func (s *Session) explicitShow(ctx context.Context, id, title string) (*ShowCandidate, error) {
	if title != "" {
		return &ShowCandidate{ID: id, Title: title, Confidence: 1}, nil
	}

	lookup, ok := s.r.provider.(ShowLookup)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot look up show %s by id; supply a title", ErrProvider, s.r.provider.Name(), id)
	}

	return s.shows.Do(ctx, id, func(ctx context.Context) (*ShowCandidate, error) {
		var show *ShowCandidate
		err := s.r.call(ctx, "show", func(ctx context.Context) error {
			var err error
			show, err = lookup.GetShow(ctx, id)
			return err
		})
		if errors.Is(err, ErrNotFound) || (err == nil && show == nil) {
			return nil, &AmbiguousShowError{Hint: id, Threshold: s.r.config.MinConfidence}
		}
		if err != nil {
			return nil, err
		}
		show.Confidence = 1
		return show, nil
	})
}

func (s *Session) episode(ctx context.Context, showID string, season, episode int) (*EpisodeRecord, error) {
	key := fmt.Sprintf("%s|%d|%d", showID, season, episode)
	return s.episodes.Do(ctx, key, func(ctx context.Context) (*EpisodeRecord, error) {
		var rec *EpisodeRecord
		err := s.r.call(ctx, "episode", func(ctx context.Context) error {
			var err error
			rec, err = s.r.provider.GetEpisode(ctx, showID, season, episode)
			return err
		})
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEpisodeNotFound) || (err == nil && rec == nil) {
			return nil, &EpisodeNotFoundError{ShowID: showID, Season: season, Episode: episode}
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	})
}

// call runs a provider operation through the limiter and maps its failure
// onto the resolver's error taxonomy.
func (r *Resolver) call(ctx context.Context, op string, fn func(context.Context) error) error {
	err := r.limiter.Do(ctx, op, fn)
	switch {
	case err == nil:
		return nil
	case isContextErr(err) && ctx.Err() != nil:
		return err
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrEpisodeNotFound), errors.Is(err, ErrProvider):
		return err
	}

	var exhausted *ratelimit.ExhaustedError
	if errors.As(err, &exhausted) {
		r.logger.Warn().Str("op", op).Int("attempts", exhausted.Attempts).Msg("Provider kept rate limiting")
		return fmt.Errorf("%w: %s: rate limited after %d attempts", ErrProvider, op, exhausted.Attempts)
	}

	r.logger.Warn().Err(err).Str("op", op).Msg("Provider call failed")
	return fmt.Errorf("%w: %s: %v", ErrProvider, op, err)
}

// RankCandidates deduplicates candidates by ID (keeping the best
// confidence), applies the year bonus and orders them by descending
// confidence. Ties keep the provider's order.
func RankCandidates(candidates []ShowCandidate, year int) []ShowCandidate {
	index := make(map[string]int, len(candidates))
	ranked := make([]ShowCandidate, 0, len(candidates))
	for _, c := range candidates {
		c.Confidence = clamp01(c.Confidence)
		if year > 0 && c.Year == year {
			c.Confidence = clamp01(c.Confidence + YearMatchBonus)
		}
		if i, ok := index[c.ID]; ok {
			if c.Confidence > ranked[i].Confidence {
				ranked[i].Confidence = c.Confidence
			}
			continue
		}
		index[c.ID] = len(ranked)
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return ranked
}
