package metadata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/slipstream/tvrenamer/internal/config"
	"github.com/slipstream/tvrenamer/internal/metadata/tmdb"
	"github.com/slipstream/tvrenamer/internal/metadata/tvdb"
)

var ErrNoProviderConfigured = errors.New("no metadata provider configured")

// NewProvider builds the remote provider selected by cfg.Provider. The mock
// provider lives in its own package and is wired by the caller.
func NewProvider(cfg *config.MetadataConfig, logger *zerolog.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", config.ProviderTMDB:
		client := tmdb.NewClient(cfg.TMDB, *logger)
		if !client.IsConfigured() {
			return nil, fmt.Errorf("%w: %w", ErrNoProviderConfigured, tmdb.ErrAPIKeyMissing)
		}
		return NewTMDBProvider(client), nil
	case config.ProviderTVDB:
		client := tvdb.NewClient(cfg.TVDB, *logger)
		if !client.IsConfigured() {
			return nil, fmt.Errorf("%w: %w", ErrNoProviderConfigured, tvdb.ErrAPIKeyMissing)
		}
		return NewTVDBProvider(client), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProviderConfigured, cfg.Provider)
	}
}

// TMDBProvider adapts a TMDB client to Provider and ShowLookup.
type TMDBProvider struct {
	client TMDBClient
}

// NewTMDBProvider wraps client.
func NewTMDBProvider(client TMDBClient) *TMDBProvider {
	return &TMDBProvider{client: client}
}

func (p *TMDBProvider) Name() string {
	return p.client.Name()
}

func (p *TMDBProvider) SearchShow(ctx context.Context, query ShowQuery) ([]ShowCandidate, error) {
	results, err := p.client.SearchSeries(ctx, query.Hint, query.Year)
	if err != nil {
		return nil, mapTMDBError(err)
	}

	out := make([]ShowCandidate, 0, len(results))
	for _, r := range results {
		names := []string{r.Title, r.OriginalTitle}
		for _, cc := range r.OriginCountry {
			// "The Office US" names the US series.
			names = append(names, r.Title+" "+cc)
		}
		out = append(out, ShowCandidate{
			ID:         strconv.Itoa(r.ID),
			Title:      r.Title,
			Year:       r.Year,
			Confidence: bestSimilarity(query.Hint, names...),
		})
	}
	return out, nil
}

func (p *TMDBProvider) GetShow(ctx context.Context, showID string) (*ShowCandidate, error) {
	id, err := strconv.Atoi(showID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid TMDB id %q", ErrNotFound, showID)
	}
	r, err := p.client.GetSeries(ctx, id)
	if err != nil {
		return nil, mapTMDBError(err)
	}
	return &ShowCandidate{ID: showID, Title: r.Title, Year: r.Year, Confidence: 1}, nil
}

func (p *TMDBProvider) GetEpisode(ctx context.Context, showID string, season, episode int) (*EpisodeRecord, error) {
	id, err := strconv.Atoi(showID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid TMDB id %q", ErrNotFound, showID)
	}
	ep, err := p.client.GetEpisode(ctx, id, season, episode)
	if err != nil {
		return nil, mapTMDBError(err)
	}
	return &EpisodeRecord{
		ShowID:  showID,
		Season:  ep.SeasonNumber,
		Episode: ep.EpisodeNumber,
		Title:   ep.Title,
		AirDate: ParseAirDate(ep.AirDate),
	}, nil
}

func mapTMDBError(err error) error {
	switch {
	case errors.Is(err, tmdb.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, tmdb.ErrRateLimited):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}

// TVDBProvider adapts a TVDB client to Provider and ShowLookup.
type TVDBProvider struct {
	client TVDBClient
}

// NewTVDBProvider wraps client.
func NewTVDBProvider(client TVDBClient) *TVDBProvider {
	return &TVDBProvider{client: client}
}

func (p *TVDBProvider) Name() string {
	return p.client.Name()
}

func (p *TVDBProvider) SearchShow(ctx context.Context, query ShowQuery) ([]ShowCandidate, error) {
	results, err := p.client.SearchSeries(ctx, query.Hint, query.Year)
	if err != nil {
		return nil, mapTVDBError(err)
	}

	out := make([]ShowCandidate, 0, len(results))
	for _, r := range results {
		names := append([]string{r.Title}, r.Aliases...)
		out = append(out, ShowCandidate{
			ID:         strconv.Itoa(r.ID),
			Title:      r.Title,
			Year:       r.Year,
			Confidence: bestSimilarity(query.Hint, names...),
		})
	}
	return out, nil
}

func (p *TVDBProvider) GetShow(ctx context.Context, showID string) (*ShowCandidate, error) {
	id, err := strconv.Atoi(showID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid TVDB id %q", ErrNotFound, showID)
	}
	r, err := p.client.GetSeries(ctx, id)
	if err != nil {
		return nil, mapTVDBError(err)
	}
	return &ShowCandidate{ID: showID, Title: r.Title, Year: r.Year, Confidence: 1}, nil
}

func (p *TVDBProvider) GetEpisode(ctx context.Context, showID string, season, episode int) (*EpisodeRecord, error) {
	id, err := strconv.Atoi(showID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid TVDB id %q", ErrNotFound, showID)
	}
	ep, err := p.client.GetEpisode(ctx, id, season, episode)
	if err != nil {
		return nil, mapTVDBError(err)
	}
	return &EpisodeRecord{
		ShowID:  showID,
		Season:  ep.SeasonNumber,
		Episode: ep.EpisodeNumber,
		Title:   ep.Title,
		AirDate: ParseAirDate(ep.AirDate),
	}, nil
}

func mapTVDBError(err error) error {
	switch {
	case errors.Is(err, tvdb.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, tvdb.ErrRateLimited):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}

// bestSimilarity is the highest TitleSimilarity of hint against any of names.
func bestSimilarity(hint string, names ...string) float64 {
	best := 0.0
	for _, n := range names {
		if n == "" {
			continue
		}
		if s := TitleSimilarity(hint, n); s > best {
			best = s
		}
	}
	return best
}
