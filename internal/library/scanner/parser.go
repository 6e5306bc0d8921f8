package scanner

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrUnrecognizedFormat = errors.New("unrecognized format")
)

// ParsedToken is the structured identity extracted from an episode filename.
// Season is nil when the filename carries no season marker; Episodes is never
// empty for a successfully parsed name.
type ParsedToken struct {
	ShowHint string            `json:"showHint" yaml:"showHint"`
	Season   *int              `json:"season,omitempty" yaml:"season,omitempty"`
	Episodes []int             `json:"episodes" yaml:"episodes"`
	Extra    map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
	Matcher  string            `json:"matcher" yaml:"matcher"`
}

// HasSeason reports whether a season marker was present.
func (t *ParsedToken) HasSeason() bool {
	return t.Season != nil
}

// SeasonOr returns the parsed season, or def when none was present.
func (t *ParsedToken) SeasonOr(def int) int {
	if t.Season == nil {
		return def
	}
	return *t.Season
}

// IsMultiEpisode reports whether the file spans more than one episode.
func (t *ParsedToken) IsMultiEpisode() bool {
	return len(t.Episodes) > 1
}

// Matcher recognizes one filename convention.
type Matcher interface {
	Name() string
	TryMatch(name string) (*ParsedToken, bool)
}

// maxRangeSpan bounds E01-E30 style expansion; wider spans are rejected.
const maxRangeSpan = 30

var (
	bracketPattern   = regexp.MustCompile(`[\[{(]([^\[\]{}()]*)[\]})]`)
	separatorPattern = regexp.MustCompile(`[._\s]+`)
	dashRunPattern   = regexp.MustCompile(`(?:^|\s)-+(?:\s|$)`)
	rangeStepPattern = regexp.MustCompile(`(?i)(-)?[\s._]*[ex]?(\d+)`)
	hintSeasonExpr   = regexp.MustCompile(`(?i)(?:^|[\s._-])season[\s._-]*(\d{1,3})(?:[\s._-]|$)`)
)

// patternMatcher is a regexp with named groups: season, episode, range and
// optionally hint and version. Without a hint group the show hint is the text
// before the match and the release remainder is the text after it.
type patternMatcher struct {
	name    string
	pattern *regexp.Regexp
	// seasonFromHint looks for "Season N" inside the hint when the pattern
	// itself carries no season.
	seasonFromHint bool
	validate       func(t *ParsedToken) bool
}

func (m *patternMatcher) Name() string {
	return m.name
}

func (m *patternMatcher) TryMatch(name string) (*ParsedToken, bool) {
	loc := m.pattern.FindStringSubmatchIndex(name)
	if loc == nil {
		return nil, false
	}

	group := func(n string) (string, bool) {
		i := m.pattern.SubexpIndex(n)
		if i < 0 || loc[2*i] < 0 {
			return "", false
		}
		return name[loc[2*i]:loc[2*i+1]], true
	}

	token := &ParsedToken{Matcher: m.name, Extra: map[string]string{}}

	if s, ok := group("season"); ok {
		season, err := strconv.Atoi(s)
		if err != nil {
			return nil, false
		}
		token.Season = &season
	}

	first, ok := group("episode")
	if !ok {
		return nil, false
	}
	firstEp, err := strconv.Atoi(first)
	if err != nil {
		return nil, false
	}
	rng, _ := group("range")
	episodes, ok := expandEpisodes(firstEp, rng)
	if !ok || episodes[0] < 1 {
		return nil, false
	}
	token.Episodes = episodes

	hint, hasHint := group("hint")
	rest := ""
	if !hasHint {
		hint = name[:loc[0]]
		rest = name[loc[1]:]
	}

	if m.seasonFromHint && token.Season == nil {
		if sm := hintSeasonExpr.FindStringSubmatchIndex(hint); sm != nil {
			season, _ := strconv.Atoi(hint[sm[2]:sm[3]])
			token.Season = &season
			hint = hint[:sm[0]] + " " + hint[sm[1]:]
		}
	}

	if v, ok := group("version"); ok {
		token.Extra[TagVersion] = v
	}

	extractTags(rest, token.Extra)
	if g := releaseGroup(rest); g != "" {
		token.Extra[TagGroup] = g
	}
	token.ShowHint = cleanHint(hint, token.Extra)

	if m.validate != nil && !m.validate(token) {
		return nil, false
	}
	return token, true
}

// expandEpisodes turns the first episode plus a range suffix into an ordered,
// strictly increasing list. "-E03" and "-03" expand inclusively; "E02"
// appends and a repeated number is dropped. A step that goes backwards or a
// dash range wider than maxRangeSpan invalidates the whole marker.
func expandEpisodes(first int, rng string) ([]int, bool) {
	episodes := []int{first}
	for _, step := range rangeStepPattern.FindAllStringSubmatch(rng, -1) {
		n, err := strconv.Atoi(step[2])
		if err != nil {
			return nil, false
		}
		last := episodes[len(episodes)-1]
		switch {
		case n == last:
			continue
		case n < last:
			return nil, false
		case step[1] == "-":
			if n-last > maxRangeSpan {
				return nil, false
			}
			for e := last + 1; e <= n; e++ {
				episodes = append(episodes, e)
			}
		default:
			episodes = append(episodes, n)
		}
	}
	return episodes, true
}

// cleanHint strips bracketed tags, release tags and a trailing year from the
// raw show hint, moving what it removes into extra.
func cleanHint(raw string, extra map[string]string) string {
	hint := raw

	// Innermost brackets first so nested tags collapse one level at a time.
	for i := 0; i < 8; i++ {
		loc := bracketPattern.FindStringSubmatchIndex(hint)
		if loc == nil {
			break
		}
		inner := strings.TrimSpace(hint[loc[2]:loc[3]])
		keep := ""
		switch {
		case yearPattern.MatchString(inner):
			if _, ok := extra[TagYear]; !ok {
				extra[TagYear] = inner
			}
		case hint[loc[0]] == '[' && strings.TrimSpace(hint[:loc[0]]) == "" && inner != "":
			if _, ok := extra[TagGroup]; !ok {
				extra[TagGroup] = inner
			}
		case hint[loc[0]] == '(' && !isTagWord(inner, true):
			keep = inner
		default:
			extractTags(inner, extra)
		}
		hint = hint[:loc[0]] + " " + keep + " " + hint[loc[1]:]
	}
	hint = strings.NewReplacer("[", " ", "]", " ", "{", " ", "}", " ", "(", " ", ")", " ").Replace(hint)

	// Hyphen-only names ("The-Office-S03E01") use hyphens as separators.
	if !strings.ContainsAny(strings.TrimSpace(hint), " ._") {
		hint = strings.ReplaceAll(hint, "-", " ")
	}
	hint = separatorPattern.ReplaceAllString(hint, " ")
	hint = dashRunPattern.ReplaceAllString(hint, " ")
	hint = dashRunPattern.ReplaceAllString(hint, " ")

	words := strings.Fields(hint)
	kept := words[:0]
	for _, w := range words {
		if isTagWord(w, true) {
			extractTags(w, extra)
			continue
		}
		kept = append(kept, w)
	}
	if n := len(kept); n > 1 && yearPattern.MatchString(kept[n-1]) {
		if _, ok := extra[TagYear]; !ok {
			extra[TagYear] = kept[n-1]
		}
		kept = kept[:n-1]
	}
	return strings.Trim(strings.Join(kept, " "), " -")
}

func isCalendarYear(t *ParsedToken) bool {
	return yearPattern.MatchString(strconv.Itoa(t.Episodes[0]))
}

// DefaultMatchers lists the supported conventions in decreasing specificity.
// The first matcher that accepts a name wins.
var DefaultMatchers = []Matcher{
	// Show.Name.S01E02, S01E02E03, S01E02-E04, S01 E02, s1e2
	&patternMatcher{
		name:    "season-episode",
		pattern: regexp.MustCompile(`(?i)(?:^|[\s._\-\[(])s(?P<season>\d{1,3})[\s._-]?e(?P<episode>\d{1,4})(?P<range>(?:[\s._]?-?[\s._]?e\d{1,4}|-\d{1,4})*)(?:[^0-9a-z]|$)`),
	},
	// Show.Name.Season.1.Episode.02
	&patternMatcher{
		name:    "season-episode-words",
		pattern: regexp.MustCompile(`(?i)(?:^|[\s._\-\[(])season[\s._-]*(?P<season>\d{1,3})[\s._,-]*(?:episode|ep)[\s._-]*(?P<episode>\d{1,4})(?P<range>(?:-\d{1,4})*)(?:[^0-9a-z]|$)`),
	},
	// Show.Name.E02.S01
	&patternMatcher{
		name:    "episode-season",
		pattern: regexp.MustCompile(`(?i)(?:^|[\s._\-\[(])e(?P<episode>\d{1,4})[\s._-]+s(?P<season>\d{1,3})(?:[^0-9a-z]|$)`),
	},
	// Show.Name.1x02, 1x02-03, 1x02x03
	&patternMatcher{
		name:    "cross",
		pattern: regexp.MustCompile(`(?i)(?:^|[\s._\-\[(])(?P<season>\d{1,2})x(?P<episode>\d{2,3})(?P<range>(?:-\d{2,3}|x\d{2,3})*)(?:[^0-9a-z]|$)`),
	},
	// [Group] Show Name - 01 [1080p], [Tag]Show_-_01
	&patternMatcher{
		name:     "absolute",
		pattern:  regexp.MustCompile(`(?i)(?:[\s_]+-[\s_]+|_-_)(?P<episode>\d{1,4})(?:v(?P<version>\d))?(?P<range>(?:-\d{1,4})*)(?:[\s_\[(]|$)`),
		validate: func(t *ParsedToken) bool { return !isCalendarYear(t) },
	},
	// 01 - Show Name Season 2
	&patternMatcher{
		name:           "leading-episode",
		pattern:        regexp.MustCompile(`^(?P<episode>\d{1,3})[\s._]*-[\s._]*(?P<hint>.+)$`),
		seasonFromHint: true,
	},
	// Show.Name.102: one season digit, two episode digits.
	&patternMatcher{
		name:    "numeric",
		pattern: regexp.MustCompile(`(?:^|[\s._-])(?P<season>[1-9])(?P<episode>\d{2})(?:[\s._-]|$)`),
	},
}

// ParseFilename extracts a ParsedToken from a bare filename (a directory part,
// if any, is ignored). It fails with ErrUnrecognizedFormat when no matcher
// finds season or episode information; it never guesses a default.
func ParseFilename(filename string) (*ParsedToken, error) {
	return ParseWith(DefaultMatchers, filename)
}

// ParseWith is ParseFilename with a caller-supplied matcher list.
func ParseWith(matchers []Matcher, filename string) (*ParsedToken, error) {
	base := filepath.Base(filename)
	name := strings.TrimSpace(stripKnownExtension(base))
	if name == "" {
		return nil, fmt.Errorf("%w: empty filename", ErrUnrecognizedFormat)
	}

	for _, m := range matchers {
		if token, ok := m.TryMatch(name); ok {
			return token, nil
		}
	}
	return nil, fmt.Errorf("%w: no season/episode marker in %q", ErrUnrecognizedFormat, base)
}
