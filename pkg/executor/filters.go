package executor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vizlake/vizlake/pkg/apierr"
	"github.com/vizlake/vizlake/pkg/dataset"
	"github.com/vizlake/vizlake/pkg/decision"
)

// applyFilters is the shared filter helper for request-level and clause-level
// filters. Null values never match a value predicate; only is_null does.
func applyFilters(table *dataset.Table, specs []decision.FilterSpec) (*dataset.Table, error) {
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, apierr.InvalidRequest(err.Error())
		}
		pred, err := buildPredicate(spec)
		if err != nil {
			return nil, err
		}
		if err := requireColumn(table, spec.Field); err != nil {
			return nil, err
		}

		kept := make([]dataset.Row, 0, len(table.Rows))
		for _, row := range table.Rows {
			if pred(row[spec.Field]) {
				kept = append(kept, row)
			}
		}
		table.Rows = kept
	}
	return table, nil
}

func buildPredicate(spec decision.FilterSpec) (func(any) bool, error) {
	switch spec.Op {
	case decision.OpIsNull:
		return func(v any) bool { return v == nil }, nil
	case decision.OpIsNotNull:
		return func(v any) bool { return v != nil }, nil
	case decision.OpEq:
		return func(v any) bool { return v != nil && equalValues(v, spec.Value) }, nil
	case decision.OpNe:
		return func(v any) bool { return v != nil && !equalValues(v, spec.Value) }, nil
	case decision.OpGt:
		return comparisonPredicate(spec.Value, func(c int) bool { return c > 0 }), nil
	case decision.OpGte:
		return comparisonPredicate(spec.Value, func(c int) bool { return c >= 0 }), nil
	case decision.OpLt:
		return comparisonPredicate(spec.Value, func(c int) bool { return c < 0 }), nil
	case decision.OpLte:
		return comparisonPredicate(spec.Value, func(c int) bool { return c <= 0 }), nil
	case decision.OpIn:
		return func(v any) bool { return v != nil && containsValue(spec.Values, v) }, nil
	case decision.OpNotIn:
		return func(v any) bool { return v != nil && !containsValue(spec.Values, v) }, nil
	case decision.OpBetween:
		if len(spec.Values) != 2 {
			return nil, apierr.InvalidRequest("between filter expects two values")
		}
		lo, hi := spec.Values[0], spec.Values[1]
		// Bounds are order-agnostic; inclusive on both ends.
		if c, ok := compareValues(lo, hi); ok && c > 0 {
			lo, hi = hi, lo
		}
		return func(v any) bool {
			if v == nil {
				return false
			}
			cl, okl := compareValues(v, lo)
			ch, okh := compareValues(v, hi)
			return okl && okh && cl >= 0 && ch <= 0
		}, nil
	case decision.OpRegex:
		return nil, apierr.InvalidRequest("regex filter not implemented")
	default:
		return nil, apierr.InvalidRequest(fmt.Sprintf("unsupported filter operation: %s", spec.Op))
	}
}

func comparisonPredicate(target any, accept func(int) bool) func(any) bool {
	return func(v any) bool {
		if v == nil {
			return false
		}
		c, ok := compareValues(v, target)
		return ok && accept(c)
	}
}

func containsValue(values []any, v any) bool {
	for _, candidate := range values {
		if equalValues(v, candidate) {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// compareValues orders two dynamic values: numerically when both coerce to
// float, chronologically when both coerce to time, lexically when both are
// strings. Returns ok=false for incomparable pairs.
func compareValues(a, b any) (int, bool) {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if at, aok := toTime(a); aok {
		if bt, bok := toTime(b); bok {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.Compare(as, bs), true
		}
	}
	return 0, false
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

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// parseNumber accepts numeric strings too; used where a column read from
// delimited text arrives as a string but the clause needs a number.
func parseNumber(v any) (float64, bool) {
	if f, ok := toFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
