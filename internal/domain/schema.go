package domain

import "time"

// ColumnDescriptor contains column metadata from PRAGMA table_info.
type ColumnDescriptor struct {
	Name         string  `json:"name"`
	DataType     string  `json:"data_type"`
	NotNull      bool    `json:"not_null"`
	PrimaryKey   bool    `json:"primary_key"`
	DefaultValue *string `json:"default_value,omitempty"`
}

// ForeignKey describes one edge from PRAGMA foreign_key_list.
type ForeignKey struct {
	FromColumn string `json:"from_column"`
	RefTable   string `json:"ref_table"`
	RefColumn  string `json:"ref_column"`
}

// TableSchema holds everything extracted for one table, including a small
// sample of its rows in column order.
type TableSchema struct {
	Name        string             `json:"name"`
	Columns     []ColumnDescriptor `json:"columns"`
	ForeignKeys []ForeignKey       `json:"foreign_keys,omitempty"`
	SampleCols  []string           `json:"sample_columns,omitempty"`
	SampleRows  [][]any            `json:"sample_rows,omitempty"`
}

// SchemaDescriptor is an immutable snapshot of the database structure taken at
// connect time. It is never updated in place; reconnecting re-extracts it.
type SchemaDescriptor struct {
	Tables      []TableSchema `json:"tables"`
	ExtractedAt time.Time     `json:"extracted_at"`
}
