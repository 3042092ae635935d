// Package dataset loads tabular files (csv, tsv, ndjson, parquet) into
// in-memory tables via DuckDB, and validates the paths they come from.
package dataset

import "context"

// Row is one record keyed by column name.
type Row map[string]any

// Table is a materialized dataset: column order plus rows.
type Table struct {
	Columns []string
	Rows    []Row
}

// Clone returns a deep-enough copy for transform pipelines that rewrite
// column values: rows are copied, values are shared.
func (t *Table) Clone() *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	out.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		clone := make(Row, len(row))
		for k, v := range row {
			clone[k] = v
		}
		out.Rows[i] = clone
	}
	return out
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column name if not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Loader materializes a dataset from a validated file path.
type Loader interface {
	Load(ctx context.Context, path string) (*Table, error)
}
