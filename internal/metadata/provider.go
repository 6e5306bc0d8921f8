package metadata

import (
	"context"
	"time"
)

// Provider is the narrow query contract the resolver needs from a metadata
// source. Implementations report a legitimate absence with ErrNotFound (or
// ErrEpisodeNotFound) and throttling with ErrRateLimited; every other error
// is treated as a provider failure.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// SearchShow returns ranked candidates for a show hint. Confidence is
	// the provider's estimate in [0,1] of how well each title matches.
	SearchShow(ctx context.Context, query ShowQuery) ([]ShowCandidate, error)

	// GetEpisode fetches one episode of a show.
	GetEpisode(ctx context.Context, showID string, season, episode int) (*EpisodeRecord, error)
}

// ShowLookup is implemented by providers that can fetch a show by ID. It is
// used when the caller selects a show explicitly without supplying a title.
type ShowLookup interface {
	GetShow(ctx context.Context, showID string) (*ShowCandidate, error)
}

// ShowQuery is a show search request.
type ShowQuery struct {
	Hint string `json:"hint" yaml:"hint"`
	// Year narrows the search when the filename carried one; zero means any.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`
}

// ShowCandidate is a possible show identity returned by a search.
type ShowCandidate struct {
	ID         string  `json:"id" yaml:"id"`
	Title      string  `json:"title" yaml:"title"`
	Year       int     `json:"year,omitempty" yaml:"year,omitempty"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// EpisodeRecord is the provider's data for a single episode.
type EpisodeRecord struct {
	ShowID  string     `json:"showId" yaml:"showId"`
	Season  int        `json:"season" yaml:"season"`
	Episode int        `json:"episode" yaml:"episode"`
	Title   string     `json:"title,omitempty" yaml:"title,omitempty"`
	AirDate *time.Time `json:"airDate,omitempty" yaml:"airDate,omitempty"`
}

// ParseAirDate parses a provider "YYYY-MM-DD" date; empty or malformed
// values yield nil.
func ParseAirDate(s string) *time.Time {
	if len(s) < 10 {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s[:10])
	if err != nil {
		return nil
	}
	return &t
}
