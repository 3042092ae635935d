// Package profile computes a lightweight statistical profile of a dataset:
// per-column semantic type inference plus missing and unique counts. The
// profile feeds the decide prompt; the core pipeline consumes it as opaque
// input only.
package profile

import (
	"time"

	"github.com/vizlake/vizlake/pkg/dataset"
	"github.com/vizlake/vizlake/pkg/decision"
)

const (
	typeSampleSize      = 50
	nominalUniqueCutoff = 50
)

// Profile returns profiling information for every column of the table.
func Profile(table *dataset.Table) *decision.DatasetProfile {
	rowCount := len(table.Rows)
	out := &decision.DatasetProfile{RowCount: &rowCount}

	for _, col := range table.Columns {
		var values []any
		missing := 0
		for _, row := range table.Rows {
			v := row[col]
			if v == nil {
				missing++
				continue
			}
			values = append(values, v)
		}
		unique := countUnique(values)

		m, u := missing, unique
		out.Columns = append(out.Columns, decision.ColumnProfile{
			Name:         col,
			InferredType: inferType(values, unique),
			Missing:      &m,
			Unique:       &u,
		})
	}
	return out
}

// Columns derives the field list for a decide request from a profile,
// assigning a default role per inferred type.
func Columns(p *decision.DatasetProfile) []decision.FieldSpec {
	fields := make([]decision.FieldSpec, 0, len(p.Columns))
	for _, col := range p.Columns {
		role := decision.RoleDimension
		switch col.InferredType {
		case decision.TypeQuantitative:
			role = decision.RoleMeasure
		case decision.TypeTemporal:
			role = decision.RoleTime
		}
		fields = append(fields, decision.FieldSpec{
			Name: col.Name,
			Role: role,
			Type: col.InferredType,
		})
	}
	return fields
}

// Sample returns up to n rows for prompt context.
func Sample(table *dataset.Table, n int) []dataset.Row {
	if len(table.Rows) <= n {
		return table.Rows
	}
	return table.Rows[:n]
}

// inferType determines a column's semantic type: numeric values are
// quantitative; values that mostly parse as timestamps are temporal; the
// rest split on cardinality, low-unique columns reading as nominal.
func inferType(values []any, unique int) decision.SemanticType {
	if len(values) == 0 {
		return decision.TypeNominal
	}

	numeric := true
	for _, v := range values {
		if _, ok := toFloat(v); !ok {
			numeric = false
			break
		}
	}
	if numeric {
		return decision.TypeQuantitative
	}

	sample := values
	if len(sample) > typeSampleSize {
		sample = sample[:typeSampleSize]
	}
	temporalHits := 0
	for _, v := range sample {
		if isTemporal(v) {
			temporalHits++
		}
	}
	threshold := len(sample) / 4
	if threshold < 3 {
		threshold = 3
	}
	if temporalHits >= threshold {
		return decision.TypeTemporal
	}

	if unique <= nominalUniqueCutoff {
		return decision.TypeNominal
	}
	return decision.TypeOrdinal
}

func countUnique(values []any) int {
	seen := make(map[any]bool, len(values))
	for _, v := range values {
		switch v.(type) {
		case map[string]any, []any:
			// unhashable; count each occurrence distinctly
			seen[len(seen)] = true
		default:
			seen[v] = true
		}
	}
	return len(seen)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

func isTemporal(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case string:
		for _, layout := range timeLayouts {
			if _, err := time.Parse(layout, t); err == nil {
				return true
			}
		}
	}
	return false
}
