package models

// TemplateQuery is a named, parameter-free SQL statement tied to a knowledge
// category. Templates are loaded once at catalog-load time and never mutated.
type TemplateQuery struct {
	Name        string   `json:"name"`
	SQL         string   `json:"sql"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`
}

// ResultSet is the raw output of a warehouse execution: column order as
// returned by the engine, rows as column-name -> value maps, and whether the
// engine had more rows than the requested cap.
type ResultSet struct {
	Columns   []string            `json:"columns"`
	Rows      []map[string]string `json:"rows"`
	Truncated bool                `json:"truncated"`
}

// QueryResult is a ResultSet attributed to the template that produced it.
// Invariant: len(Rows) never exceeds the cap the executor was called with.
type QueryResult struct {
	Template  string              `json:"template"`
	Category  Category            `json:"category"`
	Columns   []string            `json:"columns"`
	Rows      []map[string]string `json:"rows"`
	Truncated bool                `json:"truncated"`
}

// ColumnInfo describes a single column of a warehouse table.
type ColumnInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Comment string `json:"comment,omitempty"`
}

// TableSchema is the described shape of a warehouse table.
type TableSchema struct {
	Table         string       `json:"table"`
	Columns       []ColumnInfo `json:"columns"`
	PartitionKeys []ColumnInfo `json:"partition_keys,omitempty"`
}
