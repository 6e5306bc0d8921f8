package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream/tvrenamer/internal/config"
	"github.com/slipstream/tvrenamer/internal/metadata/tmdb"
	"github.com/slipstream/tvrenamer/internal/metadata/tvdb"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/tv":
			json.NewEncoder(w).Encode(tmdb.SearchTVResponse{
				Results: []tmdb.TVResult{
					{ID: 1396, Name: "Breaking Bad", FirstAirDate: "2008-01-20", OriginCountry: []string{"US"}},
					{ID: 2316, Name: "The Office", FirstAirDate: "2005-03-24", OriginCountry: []string{"US"}},
				},
			})
		case "/tv/1396":
			json.NewEncoder(w).Encode(tmdb.TVDetails{ID: 1396, Name: "Breaking Bad", FirstAirDate: "2008-01-20"})
		case "/tv/1396/season/1/episode/1":
			json.NewEncoder(w).Encode(tmdb.EpisodeDetails{Name: "Pilot", AirDate: "2008-01-20", SeasonNumber: 1, EpisodeNumber: 1})
		case "/tv/1396/season/1/episode/2":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testTMDBProvider(t *testing.T) *TMDBProvider {
	server := setupTestServer(t)
	cfg := &config.MetadataConfig{
		Provider: config.ProviderTMDB,
		TMDB: config.TMDBConfig{
			APIKey:                "test-key",
			BaseURL:               server.URL,
			Timeout:               5,
			DisableSearchOrdering: true,
		},
	}
	logger := zerolog.Nop()
	p, err := NewProvider(cfg, &logger)
	require.NoError(t, err)
	require.IsType(t, &TMDBProvider{}, p)
	return p.(*TMDBProvider)
}

func TestTMDBProvider_SearchShow(t *testing.T) {
	p := testTMDBProvider(t)

	cands, err := p.SearchShow(context.Background(), ShowQuery{Hint: "The Office US"})
	require.NoError(t, err)
	require.Len(t, cands, 2)

	assert.Equal(t, "1396", cands[0].ID)
	assert.Equal(t, 2008, cands[0].Year)
	assert.Less(t, cands[0].Confidence, 0.5)

	assert.Equal(t, "2316", cands[1].ID)
	assert.Equal(t, 1.0, cands[1].Confidence, "country-qualified title matches")
}

func TestTMDBProvider_GetEpisode(t *testing.T) {
	p := testTMDBProvider(t)

	ep, err := p.GetEpisode(context.Background(), "1396", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "Pilot", ep.Title)
	assert.Equal(t, "1396", ep.ShowID)
	require.NotNil(t, ep.AirDate)

	_, err = p.GetEpisode(context.Background(), "1396", 1, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = p.GetEpisode(context.Background(), "1396", 1, 2)
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = p.GetEpisode(context.Background(), "not-a-number", 1, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTMDBProvider_GetShow(t *testing.T) {
	p := testTMDBProvider(t)

	show, err := p.GetShow(context.Background(), "1396")
	require.NoError(t, err)
	assert.Equal(t, "Breaking Bad", show.Title)
	assert.Equal(t, 2008, show.Year)

	_, err = p.GetShow(context.Background(), "42")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTVDBProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			resp := tvdb.LoginResponse{Status: "success"}
			resp.Data.Token = "tok"
			json.NewEncoder(w).Encode(resp)
		case "/search":
			json.NewEncoder(w).Encode(tvdb.SearchResponse{Data: []tvdb.SearchResult{
				{TvdbID: "81189", Name: "Breaking Bad", Type: "series", Year: "2008"},
				{TvdbID: "73244", Name: "The Office (US)", Type: "series", Year: "2005", Aliases: []string{"The Office US"}},
			}})
		case "/series/81189/episodes/default":
			var resp tvdb.EpisodesResponse
			resp.Data.Episodes = []tvdb.Episode{{Name: "Pilot", SeasonNumber: 1, Number: 1, Aired: "2008-01-20"}}
			json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := &config.MetadataConfig{
		Provider: config.ProviderTVDB,
		TVDB:     config.TVDBConfig{APIKey: "k", BaseURL: server.URL, Timeout: 5},
	}
	logger := zerolog.Nop()
	p, err := NewProvider(cfg, &logger)
	require.NoError(t, err)
	assert.Equal(t, "tvdb", p.Name())

	cands, err := p.SearchShow(context.Background(), ShowQuery{Hint: "The Office US"})
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, "73244", cands[1].ID)
	assert.Equal(t, 1.0, cands[1].Confidence, "alias matches")

	ep, err := p.GetEpisode(context.Background(), "81189", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "Pilot", ep.Title)

	_, err = p.GetEpisode(context.Background(), "81189", 2, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewProvider_Errors(t *testing.T) {
	logger := zerolog.Nop()

	_, err := NewProvider(&config.MetadataConfig{Provider: config.ProviderTMDB}, &logger)
	assert.ErrorIs(t, err, ErrNoProviderConfigured)

	_, err = NewProvider(&config.MetadataConfig{Provider: config.ProviderTVDB}, &logger)
	assert.ErrorIs(t, err, ErrNoProviderConfigured)

	_, err = NewProvider(&config.MetadataConfig{Provider: "imdb"}, &logger)
	assert.ErrorIs(t, err, ErrNoProviderConfigured)
}
