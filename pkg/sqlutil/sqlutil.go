// Package sqlutil contains pure helpers for working with raw SQL text.
// No side effects; safe for concurrent use.
package sqlutil

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	// Statements that must not be wrapped in a LIMIT subquery.
	reNonWrappable = regexp.MustCompile(`(?i)^\s*(SHOW|DESCRIBE|EXPLAIN|MSCK|USE|SET|CREATE|DROP|ALTER|INSERT|UPDATE|DELETE)\b`)

	// Qualified table references after FROM/JOIN, e.g. "analytics.daily_metrics".
	reTableRef = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-zA-Z_][a-zA-Z0-9_]*\.[a-zA-Z_][a-zA-Z0-9_]*)`)
)

// StripTrailingSemicolon trims whitespace and a trailing semicolon.
func StripTrailingSemicolon(query string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
}

// Wrappable reports whether a statement can be wrapped in a LIMIT subquery.
func Wrappable(query string) bool {
	return !reNonWrappable.MatchString(StripTrailingSemicolon(query))
}

// WrapWithLimit wraps a SELECT-like statement so the engine enforces an upper
// bound on result rows. Non-wrappable statements (DDL, SHOW, DESCRIBE, ...)
// are returned unchanged.
func WrapWithLimit(query string, limit int) string {
	q := StripTrailingSemicolon(query)
	if !Wrappable(q) {
		return q
	}
	return fmt.Sprintf("SELECT * FROM (\n%s\n) AS _q\nLIMIT %d", q, limit)
}

// ExtractTableRefs returns the distinct schema-qualified tables referenced
// after FROM/JOIN keywords, lowercased and sorted.
func ExtractTableRefs(query string) []string {
	seen := make(map[string]struct{})
	for _, m := range reTableRef.FindAllStringSubmatch(query, -1) {
		seen[strings.ToLower(m[1])] = struct{}{}
	}
	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
