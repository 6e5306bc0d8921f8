package metadata

import (
	"context"

	"github.com/slipstream/tvrenamer/internal/metadata/tmdb"
	"github.com/slipstream/tvrenamer/internal/metadata/tvdb"
)

// TMDBClient defines the TMDB API operations the rename engine uses.
type TMDBClient interface {
	Name() string
	IsConfigured() bool
	SearchSeries(ctx context.Context, query string, year int) ([]tmdb.NormalizedSeriesResult, error)
	GetSeries(ctx context.Context, id int) (*tmdb.NormalizedSeriesResult, error)
	GetEpisode(ctx context.Context, seriesID, season, episode int) (*tmdb.NormalizedEpisodeResult, error)
}

// TVDBClient defines the TVDB API operations the rename engine uses.
type TVDBClient interface {
	Name() string
	IsConfigured() bool
	SearchSeries(ctx context.Context, query string, year int) ([]tvdb.NormalizedSeriesResult, error)
	GetSeries(ctx context.Context, id int) (*tvdb.NormalizedSeriesResult, error)
	GetEpisode(ctx context.Context, seriesID, season, episode int) (*tvdb.NormalizedEpisodeResult, error)
}
