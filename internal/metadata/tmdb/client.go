package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/slipstream/tvrenamer/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrNotFound      = errors.New("TMDB resource not found")
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
)

// Client is a TMDB API client.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
		now:    time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tmdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Test verifies connectivity to the TMDB API by making a configuration request.
func (c *Client) Test(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	var result struct {
		Images struct {
			BaseURL string `json:"base_url"`
		} `json:"images"`
	}

	return c.doRequest(ctx, "/configuration", c.params(), &result)
}

// SearchSeries searches for TV series by query, optionally restricted to a
// first-air year. Results are ordered by relevance unless ordering is
// disabled in the configuration.
func (c *Client) SearchSeries(ctx context.Context, query string, year int) ([]NormalizedSeriesResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := c.params()
	params.Set("query", query)
	params.Set("include_adult", "false")
	if year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(year))
	}

	var response SearchTVResponse
	if err := c.doRequest(ctx, "/search/tv", params, &response); err != nil {
		return nil, err
	}

	series := response.Results
	if len(series) > 1 && !c.config.DisableSearchOrdering {
		currentYear := c.now().Year()

		maxVoteCount := 0
		for _, s := range series {
			if s.VoteCount > maxVoteCount {
				maxVoteCount = s.VoteCount
			}
		}

		scored := make([]scoreableSeries, len(series))
		for i, s := range series {
			scored[i] = scoreableSeries{
				TVResult: s,
				Score:    calculateSeriesScore(s, maxVoteCount, currentYear),
			}
		}

		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Score > scored[j].Score
		})

		for i := range scored {
			series[i] = scored[i].TVResult
		}
	}

	results := make([]NormalizedSeriesResult, len(series))
	for i, s := range series {
		results[i] = toSeriesResult(s)
	}

	c.logger.Debug().
		Str("query", query).
		Int("year", year).
		Int("results", len(results)).
		Msg("TV search completed")

	return results, nil
}

// GetSeries gets TV series info by TMDB ID.
func (c *Client) GetSeries(ctx context.Context, id int) (*NormalizedSeriesResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	var details TVDetails
	if err := c.doRequest(ctx, fmt.Sprintf("/tv/%d", id), c.params(), &details); err != nil {
		return nil, err
	}

	result := tvDetailsToResult(details)

	c.logger.Debug().
		Int("id", id).
		Str("title", result.Title).
		Msg("Got TV series details")

	return &result, nil
}

// GetEpisode gets a single episode of a series.
func (c *Client) GetEpisode(ctx context.Context, seriesID, seasonNumber, episodeNumber int) (*NormalizedEpisodeResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	path := fmt.Sprintf("/tv/%d/season/%d/episode/%d", seriesID, seasonNumber, episodeNumber)
	var details EpisodeDetails
	if err := c.doRequest(ctx, path, c.params(), &details); err != nil {
		return nil, err
	}

	result := NormalizedEpisodeResult{
		SeriesID:      seriesID,
		EpisodeNumber: details.EpisodeNumber,
		SeasonNumber:  details.SeasonNumber,
		Title:         details.Name,
		Overview:      details.Overview,
		AirDate:       details.AirDate,
		Runtime:       details.Runtime,
	}

	c.logger.Debug().
		Int("seriesID", seriesID).
		Int("season", seasonNumber).
		Int("episode", episodeNumber).
		Str("title", result.Title).
		Msg("Got episode details")

	return &result, nil
}

func (c *Client) params() url.Values {
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	if c.config.Language != "" {
		params.Set("language", c.config.Language)
	}
	return params
}

// doRequest performs a GET against path. The query string carries the API
// key, so only the path is ever logged.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result interface{}) error {
	reqURL := c.config.BaseURL + path
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error().Str("path", path).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request to %s failed", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Debug().
				Int("status", resp.StatusCode).
				Str("path", path).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrAPIError, err)
	}

	return nil
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, _ := strconv.Atoi(date[:4])
	return year
}

// toSeriesResult converts a TMDB TV search result to a NormalizedSeriesResult.
func toSeriesResult(tv TVResult) NormalizedSeriesResult {
	return NormalizedSeriesResult{
		ID:            tv.ID,
		Title:         tv.Name,
		OriginalTitle: tv.OriginalName,
		Year:          yearOf(tv.FirstAirDate),
		Overview:      tv.Overview,
		OriginCountry: tv.OriginCountry,
	}
}

// tvDetailsToResult converts TMDB TV details to a NormalizedSeriesResult.
func tvDetailsToResult(details TVDetails) NormalizedSeriesResult {
	return NormalizedSeriesResult{
		ID:            details.ID,
		Title:         details.Name,
		OriginalTitle: details.OriginalName,
		Year:          yearOf(details.FirstAirDate),
		Overview:      details.Overview,
		OriginCountry: details.OriginCountry,
		Status:        details.Status,
	}
}

type scoreableSeries struct {
	TVResult
	Score float64
}

// calculateSeriesScore calculates the relevance score for a series result
func calculateSeriesScore(series TVResult, maxVoteCount int, currentYear int) float64 {
	// Normalize vote count to 0-1 scale
	voteCountNormalized := 0.0
	if maxVoteCount > 0 {
		voteCountNormalized = float64(series.VoteCount) / float64(maxVoteCount)
	}

	// Recency factor (0-1 scale, newer is better)
	recencyFactor := 0.0
	if year := yearOf(series.FirstAirDate); year > 0 {
		yearsDiff := currentYear - year
		recencyFactor = math.Exp(-float64(yearsDiff) * 0.2)
	}

	completenessFactor := 0.0
	if series.PosterPath != nil {
		completenessFactor += 0.05
	}
	if series.Overview != "" {
		completenessFactor += 0.03
	}
	if len(series.GenreIDs) > 0 {
		completenessFactor += 0.02
	}

	return (series.Popularity * 0.3) +
		(series.VoteAverage * voteCountNormalized * 0.4) +
		(recencyFactor * 0.2) +
		(completenessFactor * 0.1)
}
