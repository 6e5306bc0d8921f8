package tvdb

// LoginRequest is the request body for TVDB authentication.
type LoginRequest struct {
	APIKey string `json:"apikey"`
}

// LoginResponse is the response from TVDB authentication.
type LoginResponse struct {
	Status string `json:"status"`
	Data   struct {
		Token string `json:"token"`
	} `json:"data"`
}

// SearchResponse is the response from TVDB search.
type SearchResponse struct {
	Status string         `json:"status"`
	Data   []SearchResult `json:"data"`
}

// SearchResult is a search result from TVDB.
type SearchResult struct {
	ObjectID     string            `json:"objectID"`
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Type         string            `json:"type"` // "series", "movie", etc.
	Year         string            `json:"year"`
	Overview     string            `json:"overview"`
	Status       string            `json:"status"`
	FirstAirTime string            `json:"first_air_time"`
	Network      string            `json:"network"`
	TvdbID       string            `json:"tvdb_id"`
	Aliases      []string          `json:"aliases"`
	Translations map[string]string `json:"translations"`
}

// SeriesResponse is the response for a single series.
type SeriesResponse struct {
	Status string       `json:"status"`
	Data   SeriesDetail `json:"data"`
}

// SeriesDetail contains series information.
type SeriesDetail struct {
	ID              int          `json:"id"`
	Name            string       `json:"name"`
	Slug            string       `json:"slug"`
	FirstAired      string       `json:"firstAired"`
	Status          SeriesStatus `json:"status"`
	OriginalCountry string       `json:"originalCountry"`
	Overview        string       `json:"overview"`
	Year            string       `json:"year"`
}

// SeriesStatus represents the status of a series.
type SeriesStatus struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// EpisodesResponse is the response for series episodes.
type EpisodesResponse struct {
	Status string `json:"status"`
	Data   struct {
		Series   SeriesDetail `json:"series"`
		Episodes []Episode    `json:"episodes"`
	} `json:"data"`
}

// Episode represents a TV episode.
type Episode struct {
	ID             int    `json:"id"`
	SeriesID       int    `json:"seriesId"`
	Name           string `json:"name"`
	Aired          string `json:"aired"`
	Runtime        int    `json:"runtime"`
	Overview       string `json:"overview"`
	SeasonNumber   int    `json:"seasonNumber"`
	Number         int    `json:"number"`
	AbsoluteNumber int    `json:"absoluteNumber"`
}

// NormalizedSeriesResult is the normalized series result returned by the client.
type NormalizedSeriesResult struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Aliases  []string `json:"aliases,omitempty"`
	Year     int      `json:"year"`
	Overview string   `json:"overview"`
	Status   string   `json:"status,omitempty"`
}

// NormalizedEpisodeResult is the normalized episode result.
type NormalizedEpisodeResult struct {
	SeriesID      int    `json:"seriesId"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title"`
	AirDate       string `json:"airDate,omitempty"`
}
