// Package mock provides an offline TMDB client backed by a small fixture
// catalogue, with fault injection for exercising retry and cancellation.
package mock

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slipstream/tvrenamer/internal/metadata/tmdb"
)

// Series is a catalogue entry.
type Series struct {
	tmdb.NormalizedSeriesResult
	Episodes []tmdb.NormalizedEpisodeResult
}

// Calls counts requests per operation.
type Calls struct {
	Search  int64
	Series  int64
	Episode int64
}

// TMDBClient is a mock implementation of the TMDB client.
type TMDBClient struct {
	series []Series

	search  atomic.Int64
	details atomic.Int64
	episode atomic.Int64

	mu          sync.Mutex
	rateLimited int
	failWith    error
	delay       time.Duration
}

// NewTMDBClient creates a mock client over the built-in catalogue.
func NewTMDBClient() *TMDBClient {
	return NewTMDBClientWith(DefaultCatalogue())
}

// NewTMDBClientWith creates a mock client over a caller-supplied catalogue.
func NewTMDBClientWith(series []Series) *TMDBClient {
	return &TMDBClient{series: series}
}

func (c *TMDBClient) Name() string {
	return "tmdb-mock"
}

func (c *TMDBClient) IsConfigured() bool {
	return true
}

// RateLimitNext makes the next n requests fail with tmdb.ErrRateLimited.
func (c *TMDBClient) RateLimitNext(n int) {
	c.mu.Lock()
	c.rateLimited = n
	c.mu.Unlock()
}

// FailWith makes every request fail with err until cleared with nil.
func (c *TMDBClient) FailWith(err error) {
	c.mu.Lock()
	c.failWith = err
	c.mu.Unlock()
}

// SetDelay makes every request take at least d, or until its context ends.
func (c *TMDBClient) SetDelay(d time.Duration) {
	c.mu.Lock()
	c.delay = d
	c.mu.Unlock()
}

// Calls returns the request counters.
func (c *TMDBClient) Calls() Calls {
	return Calls{
		Search:  c.search.Load(),
		Series:  c.details.Load(),
		Episode: c.episode.Load(),
	}
}

func (c *TMDBClient) fault(ctx context.Context) error {
	c.mu.Lock()
	delay, failWith := c.delay, c.failWith
	limited := c.rateLimited > 0
	if limited {
		c.rateLimited--
	}
	c.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if limited {
		return tmdb.ErrRateLimited
	}
	return failWith
}

func (c *TMDBClient) SearchSeries(ctx context.Context, query string, year int) ([]tmdb.NormalizedSeriesResult, error) {
	c.search.Add(1)
	if err := c.fault(ctx); err != nil {
		return nil, err
	}

	words := strings.Fields(strings.ToLower(query))
	var results []tmdb.NormalizedSeriesResult
	for i := range c.series {
		s := &c.series[i].NormalizedSeriesResult
		if year > 0 && s.Year != year {
			continue
		}
		title := strings.ToLower(s.Title)
		for _, w := range words {
			if len(w) > 2 && strings.Contains(title, w) {
				results = append(results, *s)
				break
			}
		}
	}
	return results, nil
}

func (c *TMDBClient) GetSeries(ctx context.Context, id int) (*tmdb.NormalizedSeriesResult, error) {
	c.details.Add(1)
	if err := c.fault(ctx); err != nil {
		return nil, err
	}

	for i := range c.series {
		if c.series[i].ID == id {
			s := c.series[i].NormalizedSeriesResult
			return &s, nil
		}
	}
	return nil, tmdb.ErrNotFound
}

func (c *TMDBClient) GetEpisode(ctx context.Context, seriesID, season, episode int) (*tmdb.NormalizedEpisodeResult, error) {
	c.episode.Add(1)
	if err := c.fault(ctx); err != nil {
		return nil, err
	}

	for i := range c.series {
		if c.series[i].ID != seriesID {
			continue
		}
		for _, ep := range c.series[i].Episodes {
			if ep.SeasonNumber == season && ep.EpisodeNumber == episode {
				ep.SeriesID = seriesID
				return &ep, nil
			}
		}
	}
	return nil, tmdb.ErrNotFound
}

func ep(season, number int, title, airDate string) tmdb.NormalizedEpisodeResult {
	return tmdb.NormalizedEpisodeResult{SeasonNumber: season, EpisodeNumber: number, Title: title, AirDate: airDate}
}

// DefaultCatalogue returns the built-in fixture series.
func DefaultCatalogue() []Series {
	return []Series{
		{
			NormalizedSeriesResult: tmdb.NormalizedSeriesResult{ID: 2316, Title: "The Office", Year: 2005, OriginCountry: []string{"US"}, Status: "Ended"},
			Episodes: []tmdb.NormalizedEpisodeResult{
				ep(1, 1, "Pilot", "2005-03-24"),
				ep(1, 2, "Diversity Day", "2005-03-29"),
				ep(1, 3, "Health Care", "2005-04-05"),
				ep(2, 1, "The Dundies", "2005-09-20"),
				ep(2, 2, "Sexual Harassment", "2005-09-27"),
				ep(3, 1, "Gay Witch Hunt", "2006-09-21"),
				ep(3, 2, "The Convention", "2006-09-28"),
				ep(3, 10, "A Benihana Christmas (1)", "2006-12-14"),
				ep(3, 11, "A Benihana Christmas (2)", "2006-12-14"),
			},
		},
		{
			NormalizedSeriesResult: tmdb.NormalizedSeriesResult{ID: 2996, Title: "The Office", Year: 2001, OriginCountry: []string{"GB"}, Status: "Ended"},
			Episodes: []tmdb.NormalizedEpisodeResult{
				ep(1, 1, "Downsize", "2001-07-09"),
				ep(1, 2, "Work Experience", "2001-07-16"),
			},
		},
		{
			NormalizedSeriesResult: tmdb.NormalizedSeriesResult{ID: 1396, Title: "Breaking Bad", Year: 2008, OriginCountry: []string{"US"}, Status: "Ended"},
			Episodes: []tmdb.NormalizedEpisodeResult{
				ep(1, 1, "Pilot", "2008-01-20"),
				ep(1, 2, "Cat's in the Bag...", "2008-01-27"),
				ep(1, 3, "...And the Bag's in the River", "2008-02-10"),
				ep(1, 4, "Cancer Man", "2008-02-17"),
				ep(2, 1, "Seven Thirty-Seven", "2009-03-08"),
				ep(5, 14, "Ozymandias", "2013-09-15"),
				ep(5, 16, "Felina", "2013-09-29"),
			},
		},
		{
			NormalizedSeriesResult: tmdb.NormalizedSeriesResult{ID: 1399, Title: "Game of Thrones", Year: 2011, OriginCountry: []string{"US"}, Status: "Ended"},
			Episodes: []tmdb.NormalizedEpisodeResult{
				ep(1, 1, "Winter Is Coming", "2011-04-17"),
				ep(1, 2, "The Kingsroad", "2011-04-24"),
				ep(1, 3, "Lord Snow", "2011-05-01"),
			},
		},
		{
			NormalizedSeriesResult: tmdb.NormalizedSeriesResult{ID: 1429, Title: "Attack on Titan", OriginalTitle: "進撃の巨人", Year: 2013, OriginCountry: []string{"JP"}, Status: "Ended"},
			Episodes: []tmdb.NormalizedEpisodeResult{
				ep(1, 1, "To You, in 2000 Years: The Fall of Shiganshina, Part 1", "2013-04-07"),
				ep(1, 2, "That Day: The Fall of Shiganshina, Part 2", "2013-04-14"),
			},
		},
		{
			NormalizedSeriesResult: tmdb.NormalizedSeriesResult{ID: 60625, Title: "Rick and Morty", Year: 2013, OriginCountry: []string{"US"}},
			Episodes: []tmdb.NormalizedEpisodeResult{
				ep(1, 1, "Pilot", "2013-12-02"),
				ep(1, 2, "Lawnmower Dog", "2013-12-09"),
				// Untitled in the provider data.
				ep(7, 1, "", "2023-10-15"),
			},
		},
	}
}
