package organizer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrInvalidTemplate = errors.New("invalid naming template")

// DefaultEpisodeFileFormat renders "Show Name - S01E02 - Episode Title".
const DefaultEpisodeFileFormat = "{show} - S{season:02}E{episode:02} - {title}"

// DefaultTitleSeparator joins the titles of a multi-episode file.
const DefaultTitleSeparator = " & "

// NamingConfig holds naming template configuration.
type NamingConfig struct {
	EpisodeFileFormat string `json:"episodeFileFormat" yaml:"episodeFileFormat"`
	TitleSeparator    string `json:"titleSeparator" yaml:"titleSeparator"`
	// TitleCase re-cases show and episode titles, keeping short articles
	// lowercase after the first word.
	TitleCase bool `json:"titleCase" yaml:"titleCase"`
}

// DefaultNamingConfig returns default naming configuration.
func DefaultNamingConfig() NamingConfig {
	return NamingConfig{
		EpisodeFileFormat: DefaultEpisodeFileFormat,
		TitleSeparator:    DefaultTitleSeparator,
	}
}

// EpisodeTokens contains tokens for episode naming. Episodes is ordered and
// non-empty; EpisodeTitles holds one entry per episode, empty when the
// provider has no title.
type EpisodeTokens struct {
	SeriesTitle   string
	SeasonNumber  int
	Episodes      []int
	EpisodeTitles []string
	Year          string
	Resolution    string
	Source        string
	Codec         string
}

// tokenPattern matches template tokens like {Token} or {Token:format}
var tokenPattern = regexp.MustCompile(`\{([^}:]+)(?::([^}]+))?\}`)

var (
	whitespacePattern        = regexp.MustCompile(`\s+`)
	emptyGroupPattern        = regexp.MustCompile(`\s*(?:\(\s*\)|\[\s*\])`)
	repeatedSeparatorPattern = regexp.MustCompile(`\s+-(?:\s+-)+\s+`)
)

var knownTokens = map[string]bool{
	"show": true, "series": true, "series title": true,
	"season":  true,
	"episode": true,
	"title":   true, "episode title": true,
	"year": true, "resolution": true, "source": true, "codec": true,
}

// ValidateTemplate checks that a template only uses known tokens and carries
// an episode number, so distinct episodes cannot format to the same name.
func ValidateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("%w: template is empty", ErrInvalidTemplate)
	}

	hasEpisode := false
	for _, m := range tokenPattern.FindAllStringSubmatch(template, -1) {
		name := strings.ToLower(strings.TrimSpace(m[1]))
		if !knownTokens[name] {
			return fmt.Errorf("%w: unknown token {%s}", ErrInvalidTemplate, m[1])
		}
		if name == "episode" {
			hasEpisode = true
		}
	}
	if !hasEpisode {
		return fmt.Errorf("%w: template must contain {episode}", ErrInvalidTemplate)
	}
	return nil
}

// FormatEpisodeFile formats an episode filename (without extension) using the
// template. The result is sanitized and stable: formatting the same tokens
// always yields the same name.
func (c NamingConfig) FormatEpisodeFile(tokens EpisodeTokens) string {
	template := c.EpisodeFileFormat
	if template == "" {
		template = DefaultEpisodeFileFormat
	}

	return c.formatTemplate(template, func(token, format string, prev byte) string {
		return c.resolveEpisodeToken(token, format, prev, tokens)
	})
}

// FormatEpisodeFilename is FormatEpisodeFile with the original extension
// appended unchanged.
func (c NamingConfig) FormatEpisodeFilename(tokens EpisodeTokens, ext string) string {
	return c.FormatEpisodeFile(tokens) + ext
}

// formatTemplate applies token resolution to a template string. prev is the
// template byte immediately before the token, or 0 at the start.
func (c NamingConfig) formatTemplate(template string, resolver func(token, format string, prev byte) string) string {
	var b strings.Builder
	last := 0
	for _, loc := range tokenPattern.FindAllStringSubmatchIndex(template, -1) {
		b.WriteString(template[last:loc[0]])

		token := template[loc[2]:loc[3]]
		format := ""
		if loc[4] >= 0 {
			format = template[loc[4]:loc[5]]
		}
		var prev byte
		if loc[0] > 0 {
			prev = template[loc[0]-1]
		}
		b.WriteString(resolver(token, format, prev))
		last = loc[1]
	}
	b.WriteString(template[last:])

	return cleanFilename(b.String())
}

// resolveEpisodeToken resolves an episode template token.
func (c NamingConfig) resolveEpisodeToken(token, format string, prev byte, tokens EpisodeTokens) string {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "show", "series", "series title":
		return c.caseTitle(tokens.SeriesTitle)
	case "season":
		return formatNumber(tokens.SeasonNumber, format)
	case "episode":
		return formatEpisodes(tokens.Episodes, format, prev == 'E' || prev == 'e')
	case "title", "episode title":
		return c.joinTitles(tokens.EpisodeTitles)
	case "year":
		return tokens.Year
	case "resolution":
		return tokens.Resolution
	case "source":
		return tokens.Source
	case "codec":
		return tokens.Codec
	}
	return ""
}

// joinTitles joins the non-empty titles of a multi-episode file. Adjacent
// duplicates collapse so a two-part episode sharing one title renders once.
func (c NamingConfig) joinTitles(titles []string) string {
	sep := c.TitleSeparator
	if sep == "" {
		sep = DefaultTitleSeparator
	}

	parts := make([]string, 0, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" || (len(parts) > 0 && parts[len(parts)-1] == t) {
			continue
		}
		parts = append(parts, t)
	}
	return c.caseTitle(strings.Join(parts, sep))
}

func (c NamingConfig) caseTitle(s string) string {
	if !c.TitleCase {
		return s
	}
	return TitleCase(s)
}

// lowercaseWords stay lowercase unless they start the title.
var lowercaseWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"but": true, "nor": true, "for": true, "yet": true, "so": true,
}

var titleCaser = cases.Title(language.Und)

// TitleCase title-cases s, keeping articles and conjunctions lowercase after
// the first word.
func TitleCase(s string) string {
	words := strings.Fields(titleCaser.String(s))
	for i, w := range words {
		if i > 0 && lowercaseWords[strings.ToLower(w)] {
			words[i] = strings.ToLower(w)
		}
	}
	return strings.Join(words, " ")
}

// formatEpisodes renders one episode, a contiguous range ("01-E03" after an
// "E", "01-03" otherwise) or a list for non-contiguous episodes.
func formatEpisodes(episodes []int, format string, afterE bool) string {
	if len(episodes) == 0 {
		return ""
	}
	first := formatNumber(episodes[0], format)
	if len(episodes) == 1 {
		return first
	}

	rangeSep, listSep := "-", "-"
	if afterE {
		rangeSep, listSep = "-E", "E"
	}

	contiguous := true
	for i := 1; i < len(episodes); i++ {
		if episodes[i] != episodes[i-1]+1 {
			contiguous = false
			break
		}
	}
	if contiguous {
		return first + rangeSep + formatNumber(episodes[len(episodes)-1], format)
	}

	parts := make([]string, len(episodes))
	for i, ep := range episodes {
		parts[i] = formatNumber(ep, format)
	}
	return strings.Join(parts, listSep)
}

// formatNumber formats a number zero-padded to the width given by format
// ("02" or "00" both mean two digits). Without a format the width is two.
// Values that need more digits widen instead of being truncated.
func formatNumber(n int, format string) string {
	width := 2
	if format != "" {
		if strings.Trim(format, "0") == "" {
			width = len(format)
		} else if w, err := strconv.Atoi(format); err == nil && w > 0 {
			width = w
		}
	}
	return fmt.Sprintf("%0*d", width, n)
}

// cleanFilename sanitizes a rendered name and tidies separators left behind
// by empty tokens.
func cleanFilename(name string) string {
	name = Sanitize(name)
	name = emptyGroupPattern.ReplaceAllString(name, "")
	name = repeatedSeparatorPattern.ReplaceAllString(name, " - ")
	name = strings.Trim(name, " -")
	return whitespacePattern.ReplaceAllString(name, " ")
}

// fileNameReplacer maps characters that are illegal in file names on common
// filesystems to a dash.
var fileNameReplacer = strings.NewReplacer(
	"<", "-",
	">", "-",
	":", "-",
	"\"", "-",
	"/", "-",
	"\\", "-",
	"|", "-",
	"?", "-",
	"*", "-",
)

// Sanitize replaces illegal filename characters (and control characters)
// with "-" and collapses whitespace. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '-'
		}
		return r
	}, name)
	name = fileNameReplacer.Replace(name)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(name, " "))
}
