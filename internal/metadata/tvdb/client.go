package tvdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/slipstream/tvrenamer/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("TVDB API key is not configured")
	ErrNotFound      = errors.New("TVDB resource not found")
	ErrAPIError      = errors.New("TVDB API error")
	ErrAuthFailed    = errors.New("TVDB authentication failed")
	ErrRateLimited   = errors.New("TVDB API rate limited")
)

// Client is a TVDB v4 API client.
type Client struct {
	httpClient *http.Client
	config     config.TVDBConfig
	logger     zerolog.Logger

	// Token management
	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new TVDB client.
func NewClient(cfg config.TVDBConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tvdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tvdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// authenticate gets or refreshes the authentication token.
func (c *Client) authenticate(ctx context.Context) error {
	c.mu.RLock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	body, err := json.Marshal(LoginRequest{APIKey: c.config.APIKey})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		c.logger.Error().Int("status", resp.StatusCode).Msg("TVDB authentication failed")
		return ErrAuthFailed
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	c.token = loginResp.Data.Token
	// Tokens are valid for a month; refresh daily.
	c.tokenExpiry = time.Now().Add(24 * time.Hour)

	c.logger.Debug().Msg("TVDB authentication successful")
	return nil
}

// SearchSeries searches for TV series by query, optionally narrowed to a year.
func (c *Client) SearchSeries(ctx context.Context, query string, year int) ([]NormalizedSeriesResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "series")
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var response SearchResponse
	if err := c.get(ctx, "/search", params, &response); err != nil {
		return nil, err
	}

	results := make([]NormalizedSeriesResult, 0, len(response.Data))
	for _, item := range response.Data {
		if item.Type == "series" {
			results = append(results, searchResultToSeries(item))
		}
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("TV search completed")

	return results, nil
}

// GetSeries gets TV series info by TVDB ID.
func (c *Client) GetSeries(ctx context.Context, id int) (*NormalizedSeriesResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	var response SeriesResponse
	if err := c.get(ctx, fmt.Sprintf("/series/%d", id), nil, &response); err != nil {
		return nil, err
	}

	result := seriesDetailToResult(response.Data)

	c.logger.Debug().
		Int("id", id).
		Str("title", result.Title).
		Msg("Got series details")

	return &result, nil
}

// GetEpisode gets one episode of a series in the default (aired) order.
func (c *Client) GetEpisode(ctx context.Context, seriesID, seasonNumber, episodeNumber int) (*NormalizedEpisodeResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("page", "0")
	params.Set("season", strconv.Itoa(seasonNumber))
	params.Set("episodeNumber", strconv.Itoa(episodeNumber))

	var response EpisodesResponse
	if err := c.get(ctx, fmt.Sprintf("/series/%d/episodes/default", seriesID), params, &response); err != nil {
		return nil, err
	}

	for _, ep := range response.Data.Episodes {
		if ep.SeasonNumber == seasonNumber && ep.Number == episodeNumber {
			return &NormalizedEpisodeResult{
				SeriesID:      seriesID,
				SeasonNumber:  ep.SeasonNumber,
				EpisodeNumber: ep.Number,
				Title:         ep.Name,
				AirDate:       ep.Aired,
			}, nil
		}
	}
	return nil, ErrNotFound
}

// get authenticates and performs the request, re-authenticating once when
// the token was rejected.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	for attempt := 0; ; attempt++ {
		if err := c.authenticate(ctx); err != nil {
			return err
		}
		err := c.doRequest(ctx, path, params, result)
		if errors.Is(err, errUnauthorized) && attempt == 0 {
			continue
		}
		return err
	}
}

var errUnauthorized = fmt.Errorf("%w: unauthorized", ErrAPIError)

// doRequest performs an HTTP GET request with authentication.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result interface{}) error {
	reqURL := c.config.BaseURL + path
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized:
			// Token might be expired, clear it
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			return errUnauthorized
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

func mapStatus(s string) string {
	switch s {
	case "Ended":
		return "ended"
	case "Upcoming":
		return "upcoming"
	}
	return "continuing"
}

// searchResultToSeries converts a TVDB search result to a NormalizedSeriesResult.
func searchResultToSeries(item SearchResult) NormalizedSeriesResult {
	year, _ := strconv.Atoi(item.Year)

	id, _ := strconv.Atoi(item.TvdbID)
	if id == 0 {
		// Search ids look like "series-81189".
		if i := len(item.ID) - 1; i >= 0 {
			j := i
			for j >= 0 && item.ID[j] >= '0' && item.ID[j] <= '9' {
				j--
			}
			id, _ = strconv.Atoi(item.ID[j+1:])
		}
	}

	title := item.Name
	if eng, ok := item.Translations["eng"]; ok && eng != "" {
		title = eng
	}

	return NormalizedSeriesResult{
		ID:       id,
		Title:    title,
		Aliases:  item.Aliases,
		Year:     year,
		Overview: item.Overview,
		Status:   mapStatus(item.Status),
	}
}

// seriesDetailToResult converts a TVDB series detail to a NormalizedSeriesResult.
func seriesDetailToResult(detail SeriesDetail) NormalizedSeriesResult {
	year, _ := strconv.Atoi(detail.Year)
	return NormalizedSeriesResult{
		ID:       detail.ID,
		Title:    detail.Name,
		Year:     year,
		Overview: detail.Overview,
		Status:   mapStatus(detail.Status.Name),
	}
}
