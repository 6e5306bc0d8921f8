package metadata

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by providers when the requested entity does
	// not exist.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited is returned by providers when the remote API throttles.
	// The resolver retries these and never surfaces them directly.
	ErrRateLimited = errors.New("rate limited")

	ErrAmbiguousShow   = errors.New("ambiguous show")
	ErrEpisodeNotFound = errors.New("episode not found")
	ErrProvider        = errors.New("metadata provider error")
)

// AmbiguousShowError is returned when no search candidate clears the
// confidence threshold, or when the best two are tied within TieMargin.
// It carries the ranked candidates so a caller can ask for an explicit
// choice.
type AmbiguousShowError struct {
	Hint       string
	Threshold  float64
	Candidates []ShowCandidate
	// Tied is set when the best candidate cleared Threshold but the
	// runner-up scored within TieMargin of it.
	Tied bool
}

func (e *AmbiguousShowError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("%s: no candidates for %q", ErrAmbiguousShow, e.Hint)
	}
	titles := make([]string, 0, 3)
	for i, c := range e.Candidates {
		if i == 3 {
			titles = append(titles, "...")
			break
		}
		titles = append(titles, fmt.Sprintf("%s [%s] %.2f", c.Title, c.ID, c.Confidence))
	}
	if e.Tied {
		return fmt.Sprintf("%s: %q top candidates tied within %.2f: %s", ErrAmbiguousShow, e.Hint, TieMargin, strings.Join(titles, ", "))
	}
	return fmt.Sprintf("%s: %q best candidates below %.2f: %s", ErrAmbiguousShow, e.Hint, e.Threshold, strings.Join(titles, ", "))
}

func (e *AmbiguousShowError) Unwrap() error {
	return ErrAmbiguousShow
}

// EpisodeNotFoundError is returned when the provider confirms an episode
// does not exist.
type EpisodeNotFoundError struct {
	ShowID  string
	Season  int
	Episode int
}

func (e *EpisodeNotFoundError) Error() string {
	return fmt.Sprintf("%s: show %s S%02dE%02d", ErrEpisodeNotFound, e.ShowID, e.Season, e.Episode)
}

func (e *EpisodeNotFoundError) Unwrap() error {
	return ErrEpisodeNotFound
}
