// Package catalog loads the template query catalog from a directory of .sql
// files. Each file is one template: the filename (without extension) is the
// template name, and leading "-- key: value" comment lines carry metadata.
//
//	-- category: metrics
//	-- description: Daily active users over the trailing 30 days.
//	SELECT eventdate, dau FROM analytics.daily_metrics ...
//
// Templates default to the examples category when no directive is present.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/querysage/querysage/pkg/models"
)

const directivePrefix = "--"

// Load reads every .sql file in dir and returns the parsed templates in
// case-insensitive filename order. Files whose SQL body is empty are
// skipped; an unknown category directive is an error.
func Load(dir string) ([]models.TemplateQuery, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	var templates []models.TemplateQuery
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", name, err)
		}

		tpl, err := parse(strings.TrimSuffix(name, ".sql"), string(data))
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		if tpl.SQL == "" {
			continue
		}
		templates = append(templates, tpl)
	}

	return templates, nil
}

// parse splits leading directive comments from the SQL body. Directive
// parsing stops at the first line that is neither a directive nor blank;
// ordinary comments inside the SQL body are left alone.
func parse(name, content string) (models.TemplateQuery, error) {
	tpl := models.TemplateQuery{
		Name:     name,
		Category: models.CategoryExamples,
	}

	lines := strings.Split(content, "\n")
	body := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		key, value, ok := parseDirective(trimmed)
		if !ok {
			body = i
			break
		}

		switch key {
		case "category":
			cat, ok := models.ParseCategory(value)
			if !ok {
				return models.TemplateQuery{}, fmt.Errorf("unknown category %q", value)
			}
			tpl.Category = cat
		case "description":
			tpl.Description = value
		}
		body = i + 1
	}

	tpl.SQL = strings.TrimSpace(strings.Join(lines[body:], "\n"))
	return tpl, nil
}

func parseDirective(line string) (key, value string, ok bool) {
	if !strings.HasPrefix(line, directivePrefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, directivePrefix))
	key, value, found := strings.Cut(rest, ":")
	if !found {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key != "category" && key != "description" {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}
