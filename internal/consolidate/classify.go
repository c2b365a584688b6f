package consolidate

import (
	"strings"

	"github.com/querysage/querysage/pkg/models"
)

// rules maps each gap category to the phrases that signal it. A body can
// match several categories; the record then supports one observation per
// match. Order here fixes the order observations are emitted in.
var rules = []struct {
	category models.GapCategory
	phrases  []string
}{
	{models.GapMissingTable, []string{
		"table", "schema", "column", "dataset",
	}},
	{models.GapMissingMetricDefinition, []string{
		"metric", "definition", "calculation", "formula", "kpi", "how is", "how do we measure",
	}},
	{models.GapMissingDomainContext, []string{
		"domain", "business", "terminology", "glossary", "context", "what does", "acronym",
	}},
	{models.GapMissingExample, []string{
		"example", "sample query", "template", "how to query", "how do i query",
	}},
	{models.GapQueryQuality, []string{
		"slow", "wrong result", "wrong results", "incorrect", "timeout", "timed out", "query fails", "query failed", "syntax error",
	}},
	{models.GapAmbiguousDocumentation, []string{
		"unclear", "confusing", "ambiguous", "contradict", "vague", "hard to understand",
	}},
}

// residualQueryWords decide the fallback for a body matching no rule: a
// mention of SQL machinery reads as query-quality, anything else as
// ambiguous documentation.
var residualQueryWords = []string{"select ", "sql", "query"}

// classify returns the gap categories a record supports. Explicit tags win;
// rule matching only runs on untagged records.
func classify(record models.FeedbackRecord) []models.GapCategory {
	if len(record.Tags) > 0 {
		return dedupeTags(record.Tags)
	}

	body := strings.ToLower(record.Body)

	var matched []models.GapCategory
	for _, rule := range rules {
		for _, phrase := range rule.phrases {
			if strings.Contains(body, phrase) {
				matched = append(matched, rule.category)
				break
			}
		}
	}
	if len(matched) > 0 {
		return matched
	}

	for _, word := range residualQueryWords {
		if strings.Contains(body, word) {
			return []models.GapCategory{models.GapQueryQuality}
		}
	}
	return []models.GapCategory{models.GapAmbiguousDocumentation}
}

func dedupeTags(tags []models.GapCategory) []models.GapCategory {
	seen := make(map[models.GapCategory]bool, len(tags))
	out := tags[:0:0]
	for _, tag := range tags {
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}

// triggerTokens are the single-word rule phrases plus common gap wording.
// They are excluded when extracting an item's subject for the
// cross-reference check, so "missing dau metric" reduces to "dau".
var triggerTokens = buildTriggerTokens()

func buildTriggerTokens() map[string]bool {
	set := map[string]bool{
		"missing": true, "absent": true, "undocumented": true, "documented": true,
		"documentation": true, "docs": true, "doc": true, "found": true,
		"find": true, "exist": true, "exists": true, "not": true, "no": true,
		"cant": true, "cannot": true, "doesnt": true, "dont": true,
		"need": true, "needs": true, "want": true, "where": true, "what": true,
		"how": true, "please": true, "add": true,
	}
	for _, rule := range rules {
		for _, phrase := range rule.phrases {
			for _, tok := range tokenize(phrase) {
				set[tok] = true
			}
		}
	}
	return set
}

// subjectTokens extracts what a description is actually about: significant
// tokens of length >= 3 that are neither stop words nor trigger words.
func subjectTokens(description string) []string {
	var subject []string
	seen := make(map[string]bool)
	for _, tok := range tokenize(description) {
		if len(tok) < 3 || triggerTokens[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		subject = append(subject, tok)
	}
	return subject
}
