// Package consolidate classifies feedback records into gap categories,
// merges near-duplicate observations, and produces prioritized action-item
// reports. Everything here is deterministic and rule-based.
package consolidate

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords are dropped before comparing descriptions. The list is small on
// purpose: over-stripping makes unrelated reports collide.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "i": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "or": true, "our": true,
	"that": true, "the": true, "their": true, "there": true, "this": true,
	"to": true, "was": true, "we": true, "were": true, "with": true,
}

// tokenize lowercases, splits on non-alphanumeric runs, and drops stop
// words. Duplicates are kept; token sets are built separately.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if !stopwords[f] {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// normalizeKey reduces a description to its sorted distinct significant
// tokens. Two descriptions with the same key are the same observation.
func normalizeKey(s string) string {
	set := tokenSet(tokenize(s))
	keys := make([]string, 0, len(set))
	for tok := range set {
		keys = append(keys, tok)
	}
	sort.Strings(keys)
	return strings.Join(keys, " ")
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		set[tok] = true
	}
	return set
}

// containment is |A∩B| / min(|A|,|B|). It tolerates one description being a
// wordier version of the other, which plain Jaccard similarity punishes.
func containment(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	shared := 0
	for tok := range small {
		if large[tok] {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

// mergeThreshold is the containment score at which two observations within
// one category are considered the same underlying request.
const mergeThreshold = 0.8
