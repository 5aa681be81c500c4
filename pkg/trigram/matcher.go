package trigram

// Alternative is one entry of a Matcher: a positive phrasing plus optional
// negative phrasings that suppress false positives ("thanks" vs "no thanks").
type Alternative struct {
	Positive Trigram
	Negative []Trigram
}

// Alt builds an alternative from raw strings. The first string is the
// positive phrasing, the rest are negatives.
func Alt(positive string, negatives ...string) Alternative {
	a := Alternative{Positive: New(positive)}
	for _, n := range negatives {
		a.Negative = append(a.Negative, New(n))
	}
	return a
}

// Matcher matches a candidate against several trigram alternatives at once.
// This is what intent detection is built on.
type Matcher struct {
	alternatives []Alternative
}

// NewMatcher creates a matcher from compiled alternatives.
func NewMatcher(alternatives ...Alternative) Matcher {
	return Matcher{alternatives: alternatives}
}

// NewMatcherStrings creates a positive-only matcher, one alternative per
// string.
func NewMatcherStrings(strings ...string) Matcher {
	alts := make([]Alternative, 0, len(strings))
	for _, s := range strings {
		alts = append(alts, Alternative{Positive: New(s)})
	}
	return Matcher{alternatives: alts}
}

func (a Alternative) match(candidate Trigram) float64 {
	pos := a.Positive.Similarity(candidate)

	var neg float64
	for _, n := range a.Negative {
		if s := n.Similarity(candidate); s > neg {
			neg = s
		}
	}

	if neg > pos {
		return 0
	}
	return pos
}

// Similarity returns the best score of the candidate across all
// alternatives, or 0 if there is none.
func (m Matcher) Similarity(candidate Trigram) float64 {
	var best float64
	for _, a := range m.alternatives {
		if s := a.match(candidate); s > best {
			best = s
		}
	}
	return best
}

// LabelMatcher associates an arbitrary label to each trigram, and returns the
// label along with the best score.
type LabelMatcher[L any] struct {
	entries []labelEntry[L]
}

type labelEntry[L any] struct {
	trigram Trigram
	label   L
}

// NewLabelMatcher creates an empty label matcher.
func NewLabelMatcher[L any]() *LabelMatcher[L] {
	return &LabelMatcher[L]{}
}

// Add registers a trigram under a label.
func (m *LabelMatcher[L]) Add(t Trigram, label L) {
	m.entries = append(m.entries, labelEntry[L]{trigram: t, label: label})
}

// Similarity returns the best matching score and the associated label. The
// boolean is false when the matcher is empty.
func (m *LabelMatcher[L]) Similarity(candidate Trigram) (float64, L, bool) {
	var (
		best  float64
		label L
		found bool
	)

	for _, e := range m.entries {
		if s := e.trigram.Similarity(candidate); !found || s > best {
			best = s
			label = e.label
			found = true
		}
	}

	return best, label, found
}
