package trigram

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// reSeparators matches anything that is not a letter or a digit. Punctuation,
// underscores and whitespace all collapse into a single word separator.
var reSeparators = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// stripAccents removes combining marks after NFD decomposition, so that
// "éléphant" and "elephant" normalize to the same string.
var stripAccents = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize prepares a string for fuzzy comparison. It encompasses the things
// humans tend to get wrong: casing, accents and erratic whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)

	if out, _, err := transform.String(stripAccents, s); err == nil {
		s = out
	}

	return strings.TrimSpace(reSeparators.ReplaceAllString(s, " "))
}

// Trigram is a compiled set of 3-character sliding windows over the words of
// a normalized string. Windows are boundary-padded with spaces (two leading,
// one trailing, like pg_trgm) and never cross word boundaries.
type Trigram struct {
	norm string
	set  map[string]struct{}
}

// New compiles a trigram from a raw string.
func New(s string) Trigram {
	t := Trigram{
		norm: Normalize(s),
		set:  make(map[string]struct{}),
	}

	for _, word := range strings.Split(t.norm, " ") {
		if word == "" {
			continue
		}

		padded := make([]rune, 0, len(word)+3)
		padded = append(padded, ' ', ' ')
		padded = append(padded, []rune(word)...)
		padded = append(padded, ' ')

		for i := 0; i+3 <= len(padded); i++ {
			t.set[string(padded[i:i+3])] = struct{}{}
		}
	}

	return t
}

// String returns the normalized form the trigram was built from.
func (t Trigram) String() string {
	return t.norm
}

// Len returns the number of distinct trigrams.
func (t Trigram) Len() int {
	return len(t.set)
}

// Similarity computes the Jaccard coefficient between both trigram sets:
// |a∩b| / (|a|+|b|-|a∩b|). An empty side always yields 0.
func (t Trigram) Similarity(other Trigram) float64 {
	if len(t.set) == 0 || len(other.set) == 0 {
		return 0
	}

	small, large := t.set, other.set
	if len(large) < len(small) {
		small, large = large, small
	}

	var count int
	for w := range small {
		if _, ok := large[w]; ok {
			count++
		}
	}

	return float64(count) / float64(len(t.set)+len(other.set)-count)
}
