// Package classify decides whether a question's free text matches a content
// heuristic. The reconciliation procedure takes a Classifier so heuristics
// can be swapped and tested without a store.
package classify

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/errors"
)

// Verdict is the outcome of classifying one text.
type Verdict struct {
	Match  bool
	Reason string
}

// Classifier reports whether text matches.
type Classifier interface {
	Classify(text string) Verdict
}

// Func adapts a function to Classifier.
type Func func(text string) Verdict

// Classify implements Classifier.
func (f Func) Classify(text string) Verdict { return f(text) }

// DefaultKeywords are common Spanish function words that rarely appear in
// English exam text. Questions containing several of them were imported in
// the wrong language.
var DefaultKeywords = []string{
	"cual", "que", "los", "las", "para",
	"una", "del", "por", "siguiente", "puede",
}

// Keyword matches text containing at least MinMatches distinct keywords as
// whole words. Matching ignores case and diacritics.
type Keyword struct {
	keywords   []string
	minMatches int
}

// NewKeyword builds a keyword classifier. minMatches must be between 1 and
// the number of distinct keywords.
func NewKeyword(keywords []string, minMatches int) (*Keyword, error) {
	var folded []string
	for _, k := range keywords {
		k = fold(strings.TrimSpace(k))
		if k == "" || slices.Contains(folded, k) {
			continue
		}
		if len(words(k)) != 1 {
			return nil, errors.NewValidationError("keywords", k, "a keyword must be a single word of letters or digits")
		}
		folded = append(folded, k)
	}
	if len(folded) == 0 {
		return nil, errors.NewValidationError("keywords", keywords, "at least one keyword is required")
	}
	if minMatches < 1 || minMatches > len(folded) {
		return nil, errors.NewValidationError("min_matches", minMatches,
			fmt.Sprintf("must be between 1 and %d", len(folded)))
	}
	return &Keyword{keywords: folded, minMatches: minMatches}, nil
}

// Default returns the keyword classifier over DefaultKeywords.
func Default() *Keyword {
	k, _ := NewKeyword(DefaultKeywords, constants.DefaultMinMatches)
	return k
}

// Keywords returns the normalized keyword set.
func (k *Keyword) Keywords() []string { return slices.Clone(k.keywords) }

// MinMatches returns the threshold.
func (k *Keyword) MinMatches() int { return k.minMatches }

// Classify implements Classifier.
func (k *Keyword) Classify(text string) Verdict {
	present := make(map[string]struct{})
	for _, w := range words(fold(text)) {
		present[w] = struct{}{}
	}

	var hits []string
	for _, kw := range k.keywords {
		if _, ok := present[kw]; ok {
			hits = append(hits, kw)
		}
	}
	v := Verdict{Match: len(hits) >= k.minMatches}
	if len(hits) == 0 {
		v.Reason = "no keywords"
	} else {
		v.Reason = fmt.Sprintf("%d of %d keywords (%s)", len(hits), len(k.keywords), strings.Join(hits, ", "))
	}
	return v
}

// String describes the heuristic for logs and summaries.
func (k *Keyword) String() string {
	return fmt.Sprintf("at least %d of [%s]", k.minMatches, strings.Join(k.keywords, " "))
}

// words splits s into runs of letters and digits.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// fold lower-cases text and strips combining marks, so "Cuál" and "cual"
// compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}
