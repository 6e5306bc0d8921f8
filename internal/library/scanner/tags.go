package scanner

import (
	"regexp"
	"strings"
)

// Extra keys recorded on a ParsedToken.
const (
	TagResolution = "resolution"
	TagSource     = "source"
	TagCodec      = "codec"
	TagHDR        = "hdr"
	TagAudio      = "audio"
	TagGroup      = "group"
	TagYear       = "year"
	TagVersion    = "version"
)

type tagRule struct {
	value   string
	pattern *regexp.Regexp
	// weak rules are ordinary words too ("Web", "DV") and are never stripped
	// from a show hint.
	weak bool
}

type tagCategory struct {
	key   string
	rules []tagRule
}

// tagPattern wraps alternatives with word boundaries that treat dots,
// dashes, underscores and brackets as separators.
func tagPattern(alts string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:` + alts + `)(?:$|[^a-z0-9])`)
}

// Categories are checked in order and, within a category, the first (most
// specific) rule wins.
var tagVocabulary = []tagCategory{
	{key: TagResolution, rules: []tagRule{
		{"2160p", tagPattern(`2160p|4k|uhd`), false},
		{"1080p", tagPattern(`1080[pi]`), false},
		{"720p", tagPattern(`720p`), false},
		{"576p", tagPattern(`576[pi]`), false},
		{"480p", tagPattern(`480[pi]`), false},
	}},
	{key: TagSource, rules: []tagRule{
		{"Remux", tagPattern(`remux|bdremux`), false},
		{"BluRay", tagPattern(`blu-?ray|bdrip|brrip`), false},
		{"BluRay", tagPattern(`bd`), true},
		{"WEB-DL", tagPattern(`web-?dl|webdl`), false},
		{"WEBRip", tagPattern(`web-?rip`), false},
		{"WEB", tagPattern(`web`), true},
		{"HDTV", tagPattern(`hdtv`), false},
		{"DVDRip", tagPattern(`dvd-?rip|dvd-?r`), false},
		{"DVDRip", tagPattern(`dvd`), true},
		{"SDTV", tagPattern(`sdtv|pdtv|dsr`), false},
	}},
	{key: TagCodec, rules: []tagRule{
		{"x265", tagPattern(`x265|h\.?265|hevc`), false},
		{"x264", tagPattern(`x264|h\.?264`), false},
		{"x264", tagPattern(`avc`), true},
		{"AV1", tagPattern(`av1`), false},
		{"VP9", tagPattern(`vp9`), false},
		{"XviD", tagPattern(`xvid`), false},
		{"DivX", tagPattern(`divx`), false},
	}},
	{key: TagHDR, rules: []tagRule{
		{"DV", tagPattern(`dolby[. ]?vision|dovi`), false},
		{"DV", tagPattern(`dv`), true},
		{"HDR10+", tagPattern(`hdr10\+|hdr10plus`), false},
		{"HDR10", tagPattern(`hdr10`), false},
		{"HDR", tagPattern(`hdr`), true},
	}},
	{key: TagAudio, rules: []tagRule{
		{"Atmos", tagPattern(`atmos`), false},
		{"TrueHD", tagPattern(`truehd`), false},
		{"DTS-HD", tagPattern(`dts-?hd(?:[.-]?ma)?`), false},
		{"DTS", tagPattern(`dts`), true},
		{"DD+", tagPattern(`ddp(?:[257]\.[01])?|dd\+|e-?ac-?3`), false},
		{"DD", tagPattern(`dd[257]\.[01]|ac-?3`), false},
		{"AAC", tagPattern(`aac(?:[257]\.[01])?`), true},
		{"FLAC", tagPattern(`flac`), false},
	}},
}

var (
	yearPattern  = regexp.MustCompile(`^(19|20)\d{2}$`)
	groupPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
)

// extractTags scans text for release tags and records the first hit per
// category into extra. Existing keys are not overwritten.
func extractTags(text string, extra map[string]string) {
	for _, cat := range tagVocabulary {
		if _, ok := extra[cat.key]; ok {
			continue
		}
		for _, rule := range cat.rules {
			if rule.pattern.MatchString(text) {
				extra[cat.key] = rule.value
				break
			}
		}
	}
}

// isTagWord reports whether a single word belongs to the tag vocabulary.
// With strong set, weak rules are ignored.
func isTagWord(word string, strong bool) bool {
	if word == "" {
		return false
	}
	for _, cat := range tagVocabulary {
		for _, rule := range cat.rules {
			if strong && rule.weak {
				continue
			}
			loc := rule.pattern.FindStringIndex(word)
			if loc != nil && loc[0] == 0 && loc[1] == len(word) {
				return true
			}
		}
	}
	return false
}

// releaseGroup returns the "-GROUP" suffix of a release name remainder, if
// neither the suffix nor the hyphenated word is a tag ("x264-GROUP" yields
// GROUP, "WEB-DL" yields "").
func releaseGroup(rest string) string {
	rest = strings.TrimSpace(rest)
	lastWord := rest[strings.LastIndexAny(rest, " ._")+1:]
	i := strings.LastIndex(lastWord, "-")
	if i <= 0 || i == len(lastWord)-1 {
		return ""
	}
	group := lastWord[i+1:]
	if !groupPattern.MatchString(group) || isTagWord(group, false) || isTagWord(lastWord, false) {
		return ""
	}
	return group
}
