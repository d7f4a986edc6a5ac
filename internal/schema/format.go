package schema

import (
	"fmt"
	"strings"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/domain"
)

const (
	// maxSummaryCols caps the columns shown in the sample-data preview.
	maxSummaryCols = 5
	// maxPromptSampleRows caps the INSERT-style sample rows per table.
	maxPromptSampleRows = 3
)

// SummaryText renders a human-readable schema summary: per table the columns
// with PK/NULL markers, foreign keys and a truncated sample-data preview.
// Pure function of the descriptor.
func SummaryText(desc *domain.SchemaDescriptor) string {
	var b strings.Builder
	b.WriteString("DATABASE SCHEMA:\n\n")

	for _, t := range desc.Tables {
		fmt.Fprintf(&b, "Table: %s\n", t.Name)

		b.WriteString("Columns:\n")
		for _, col := range t.Columns {
			pk := ""
			if col.PrimaryKey {
				pk = "PRIMARY KEY"
			}
			null := "NULL"
			if col.NotNull {
				null = "NOT NULL"
			}
			fmt.Fprintf(&b, "  - %s (%s) %s %s\n", col.Name, col.DataType, pk, null)
		}

		if len(t.ForeignKeys) > 0 {
			b.WriteString("Foreign Keys:\n")
			for _, fk := range t.ForeignKeys {
				fmt.Fprintf(&b, "  - %s -> %s.%s\n", fk.FromColumn, fk.RefTable, fk.RefColumn)
			}
		}

		if len(t.SampleRows) > 0 {
			b.WriteString("Sample Data:\n")
			writeSampleTable(&b, t.SampleCols, t.SampleRows)
		}

		b.WriteString("\n")
	}

	return b.String()
}

// writeSampleTable renders sample rows as an aligned text table, showing at
// most maxSummaryCols columns with a marker when more exist.
func writeSampleTable(b *strings.Builder, cols []string, rows [][]any) {
	truncated := false
	if len(cols) > maxSummaryCols {
		cols = cols[:maxSummaryCols]
		truncated = true
	}

	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, cols)
	for _, row := range rows {
		line := make([]string, len(cols))
		for i := range cols {
			if i < len(row) {
				line[i] = cellString(row[i])
			}
		}
		cells = append(cells, line)
	}

	widths := make([]int, len(cols))
	for _, line := range cells {
		for i, c := range line {
			if len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	for _, line := range cells {
		b.WriteString(" ")
		for i, c := range line {
			fmt.Fprintf(b, " %-*s", widths[i], c)
		}
		b.WriteString("\n")
	}

	if truncated {
		b.WriteString("  ... (more columns not shown)\n")
	}
}

// PromptText renders the machine-oriented grounding context: a synthesized
// CREATE TABLE statement per table with inline foreign-key clauses, up to
// three INSERT-style sample rows, and a flat relationship list. Pure function
// of the descriptor.
func PromptText(desc *domain.SchemaDescriptor) string {
	var b strings.Builder
	b.WriteString("DATABASE SCHEMA:\n\n")

	for _, t := range desc.Tables {
		fmt.Fprintf(&b, "Table: %s\n", t.Name)
		b.WriteString("CREATE TABLE statement:\n")
		b.WriteString(createTableStmt(t))
		b.WriteString("\n")

		if len(t.SampleRows) > 0 {
			b.WriteString("Sample Data:\n")
			n := len(t.SampleRows)
			if n > maxPromptSampleRows {
				n = maxPromptSampleRows
			}
			for _, row := range t.SampleRows[:n] {
				fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s);\n",
					t.Name, strings.Join(t.SampleCols, ", "), valueList(row))
			}
			if len(t.SampleRows) > maxPromptSampleRows {
				b.WriteString("-- (more rows exist)\n")
			}
		}

		b.WriteString("\n")
	}

	b.WriteString("TABLE RELATIONSHIPS:\n")
	for _, t := range desc.Tables {
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(&b, "- %s.%s references %s.%s\n", t.Name, fk.FromColumn, fk.RefTable, fk.RefColumn)
		}
	}
	b.WriteString("\n")

	return b.String()
}

func createTableStmt(t domain.TableSchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", t.Name)

	for i, col := range t.Columns {
		pk := ""
		if col.PrimaryKey {
			pk = " PRIMARY KEY"
		}
		null := ""
		if col.NotNull {
			null = " NOT NULL"
		}
		fmt.Fprintf(&b, "  %s %s%s%s", col.Name, col.DataType, pk, null)
		if i < len(t.Columns)-1 || len(t.ForeignKeys) > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}

	for i, fk := range t.ForeignKeys {
		fmt.Fprintf(&b, "  FOREIGN KEY (%s) REFERENCES %s(%s)", fk.FromColumn, fk.RefTable, fk.RefColumn)
		if i < len(t.ForeignKeys)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}

	b.WriteString(");\n")
	return b.String()
}

// valueList renders row values as SQL literals: strings quoted, nil as NULL.
func valueList(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		switch val := v.(type) {
		case nil:
			parts[i] = "NULL"
		case string:
			parts[i] = "'" + strings.ReplaceAll(val, "'", "''") + "'"
		default:
			parts[i] = fmt.Sprintf("%v", val)
		}
	}
	return strings.Join(parts, ", ")
}

func cellString(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
