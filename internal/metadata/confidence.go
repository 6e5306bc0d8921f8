package metadata

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips diacritics: "Pokémon" and "Pokemon" compare equal.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTitle lowercases a title, folds accents, treats "&" as "and",
// drops punctuation and a leading article.
func NormalizeTitle(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = strings.ReplaceAll(strings.ToLower(folded), "&", " and ")

	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
			// "Grey's" matches "Greys"
		default:
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	if len(words) > 1 {
		switch words[0] {
		case "the", "a", "an":
			words = words[1:]
		}
	}
	return strings.Join(words, " ")
}

// TitleSimilarity scores how well a candidate title matches a query in
// [0,1]. Identical normalized titles score 1; otherwise the score blends
// word overlap with character bigram overlap.
func TitleSimilarity(query, title string) float64 {
	q, t := NormalizeTitle(query), NormalizeTitle(title)
	if q == "" || t == "" {
		return 0
	}
	if q == t {
		return 1
	}
	score := 0.5*dice(strings.Fields(q), strings.Fields(t)) + 0.5*dice(bigrams(q), bigrams(t))
	return clamp01(score)
}

// dice is the Sorensen-Dice coefficient over two multisets.
func dice(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	common := 0
	for _, s := range b {
		if counts[s] > 0 {
			counts[s]--
			common++
		}
	}
	return 2 * float64(common) / float64(len(a)+len(b))
}

func bigrams(s string) []string {
	r := []rune(strings.ReplaceAll(s, " ", ""))
	if len(r) < 2 {
		return []string{string(r)}
	}
	out := make([]string, 0, len(r)-1)
	for i := 0; i < len(r)-1; i++ {
		out = append(out, string(r[i:i+2]))
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
