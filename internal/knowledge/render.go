package knowledge

import (
	"fmt"
	"strings"
	"time"

	"github.com/querysage/querysage/pkg/models"
)

var categoryTitles = map[models.Category]string{
	models.CategoryCatalog:  "# Data catalog (generated)",
	models.CategoryDomain:   "# Domain context (generated)",
	models.CategoryMetrics:  "# Metric definitions (generated)",
	models.CategoryExamples: "# Example queries (generated)",
}

// templateResult pairs a template with its execution result for rendering.
type templateResult struct {
	Template models.TemplateQuery
	Result   *models.QueryResult
}

// schemaEntry is one described table for the catalog document. Err is set
// when the describe failed; the failure is rendered instead of dropped so
// readers know the table exists but could not be inspected.
type schemaEntry struct {
	Table  string
	Schema *models.TableSchema
	Err    error
}

// renderDocument produces the text content of one knowledge document.
// previewRows bounds how many rows of each result are inlined.
func renderDocument(category models.Category, generatedAt time.Time, results []templateResult, schemas []schemaEntry, previewRows int) string {
	var b strings.Builder

	b.WriteString(categoryTitles[category])
	b.WriteString("\n\n")
	b.WriteString(generatedAtPrefix)
	b.WriteString(generatedAt.UTC().Format(time.RFC3339))
	b.WriteString("\n")

	for _, tr := range results {
		b.WriteString("\n## ")
		b.WriteString(tr.Template.Name)
		b.WriteString("\n\n")
		if tr.Template.Description != "" {
			b.WriteString(tr.Template.Description)
			b.WriteString("\n\n")
		}
		if category == models.CategoryExamples {
			b.WriteString("```sql\n")
			b.WriteString(tr.Template.SQL)
			b.WriteString("\n```\n\n")
		}
		renderTable(&b, tr.Result.Columns, tr.Result.Rows, tr.Result.Truncated, previewRows)
	}

	for _, se := range schemas {
		b.WriteString("\n### Schema: ")
		b.WriteString(se.Table)
		b.WriteString("\n\n")
		if se.Err != nil {
			fmt.Fprintf(&b, "Schema unavailable: %v\n", se.Err)
			continue
		}
		renderSchema(&b, se.Schema)
	}

	return b.String()
}

// renderTable writes rows as a pipe-delimited text table. When there are no
// rows the table is replaced with a one-line note.
func renderTable(b *strings.Builder, columns []string, rows []map[string]string, truncated bool, previewRows int) {
	if len(rows) == 0 {
		b.WriteString("(no rows)\n")
		return
	}

	shown := rows
	if previewRows > 0 && len(shown) > previewRows {
		shown = shown[:previewRows]
		truncated = true
	}

	writeRow := func(cells []string) {
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
	}

	writeRow(columns)
	sep := make([]string, len(columns))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)

	for _, row := range shown {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = sanitizeCell(row[col])
		}
		writeRow(cells)
	}

	if truncated {
		b.WriteString("... and more rows (truncated)\n")
	}
}

func renderSchema(b *strings.Builder, schema *models.TableSchema) {
	writeColumns := func(cols []models.ColumnInfo) {
		for _, col := range cols {
			if col.Comment != "" {
				fmt.Fprintf(b, "- %s (%s): %s\n", col.Name, col.Type, col.Comment)
			} else {
				fmt.Fprintf(b, "- %s (%s)\n", col.Name, col.Type)
			}
		}
	}

	writeColumns(schema.Columns)
	if len(schema.PartitionKeys) > 0 {
		b.WriteString("\nPartition keys:\n")
		writeColumns(schema.PartitionKeys)
	}
}

// sanitizeCell keeps cell values on one line so they cannot break the table.
func sanitizeCell(v string) string {
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.ReplaceAll(v, "|", "\\|")
}
