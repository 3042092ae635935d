package executor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vizlake/vizlake/pkg/apierr"
	"github.com/vizlake/vizlake/pkg/dataset"
	"github.com/vizlake/vizlake/pkg/decision"
)

// applyTimeUnits truncates temporal columns to the requested granularity.
// A non-auto unit writes the bucketed value under the alias "{field}:{unit}";
// auto leaves the column unbucketed and the alias equals the field name.
func applyTimeUnits(table *dataset.Table, specs []decision.TimeUnitSpec) (*dataset.Table, error) {
	for _, spec := range specs {
		if err := requireColumn(table, spec.Field); err != nil {
			return nil, err
		}
		if spec.Unit == decision.UnitAuto {
			continue
		}
		alias := fmt.Sprintf("%s:%s", spec.Field, spec.Unit)
		table.AddColumn(alias)
		for _, row := range table.Rows {
			v := row[spec.Field]
			if v == nil {
				row[alias] = nil
				continue
			}
			t, ok := toTime(v)
			if !ok {
				return nil, apierr.InvalidRequest(fmt.Sprintf("cannot cast column %q to temporal", spec.Field))
			}
			row[alias] = truncateTime(t.UTC(), spec.Unit)
		}
	}
	return table, nil
}

func truncateTime(t time.Time, unit decision.TimeUnit) time.Time {
	switch unit {
	case decision.UnitSecond:
		return t.Truncate(time.Second)
	case decision.UnitMinute:
		return t.Truncate(time.Minute)
	case decision.UnitHour:
		return t.Truncate(time.Hour)
	case decision.UnitDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case decision.UnitWeek:
		// Weeks start on Monday.
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case decision.UnitMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case decision.UnitQuarter:
		month := (int(t.Month())-1)/3*3 + 1
		return time.Date(t.Year(), time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	case decision.UnitYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// applyBins rewrites a numeric column to bucket lower bounds: a fixed step
// gives floor(v/step)*step, otherwise an equal-width split into maxbins
// buckets (default 10) over the observed range.
func applyBins(table *dataset.Table, specs []decision.BinSpec) (*dataset.Table, error) {
	for _, spec := range specs {
		if err := requireColumn(table, spec.Field); err != nil {
			return nil, err
		}
		if spec.Params != nil && spec.Params.Step != nil {
			step := *spec.Params.Step
			for _, row := range table.Rows {
				v := row[spec.Field]
				if v == nil {
					continue
				}
				f, ok := parseNumber(v)
				if !ok {
					return nil, apierr.InvalidRequest(fmt.Sprintf("bin field %q is not numeric", spec.Field))
				}
				row[spec.Field] = math.Floor(f/step) * step
			}
			continue
		}

		maxBins := 10
		if spec.Params != nil && spec.Params.MaxBins != nil {
			maxBins = *spec.Params.MaxBins
		}
		if err := binEqualWidth(table, spec.Field, maxBins); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func binEqualWidth(table *dataset.Table, field string, maxBins int) error {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, row := range table.Rows {
		v := row[field]
		if v == nil {
			continue
		}
		f, ok := parseNumber(v)
		if !ok {
			return apierr.InvalidRequest(fmt.Sprintf("bin field %q is not numeric", field))
		}
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	if lo > hi {
		return nil // no non-null values, nothing to bin
	}
	width := (hi - lo) / float64(maxBins)
	for _, row := range table.Rows {
		v := row[field]
		if v == nil {
			continue
		}
		f, _ := parseNumber(v)
		if width == 0 {
			row[field] = lo
			continue
		}
		idx := int(math.Floor((f - lo) / width))
		if idx >= maxBins {
			idx = maxBins - 1 // the range maximum falls into the last bucket
		}
		row[field] = lo + float64(idx)*width
	}
	return nil
}

// applyAggregates groups rows by the listed columns and computes each
// measure. Group order follows first appearance in the input.
func applyAggregates(table *dataset.Table, specs []decision.AggregateSpec) (*dataset.Table, error) {
	for _, spec := range specs {
		for _, col := range spec.GroupBy {
			if err := requireColumn(table, col); err != nil {
				return nil, err
			}
		}
		for _, m := range spec.Measures {
			if err := requireColumn(table, m.Field); err != nil {
				return nil, err
			}
			if !supportedAggregateOp(m.Op) {
				return nil, apierr.InvalidRequest(fmt.Sprintf("unsupported aggregate operation: %s", m.Op))
			}
		}

		type group struct {
			keys dataset.Row
			rows []dataset.Row
		}
		var order []string
		groups := make(map[string]*group)
		for _, row := range table.Rows {
			key := ""
			for _, col := range spec.GroupBy {
				key += fmt.Sprintf("%v\x1f", row[col])
			}
			g, ok := groups[key]
			if !ok {
				g = &group{keys: make(dataset.Row, len(spec.GroupBy))}
				for _, col := range spec.GroupBy {
					g.keys[col] = row[col]
				}
				groups[key] = g
				order = append(order, key)
			}
			g.rows = append(g.rows, row)
		}

		out := &dataset.Table{Columns: append([]string(nil), spec.GroupBy...)}
		for _, m := range spec.Measures {
			out.AddColumn(measureAlias(m))
		}
		for _, key := range order {
			g := groups[key]
			row := make(dataset.Row, len(out.Columns))
			for col, v := range g.keys {
				row[col] = v
			}
			for _, m := range spec.Measures {
				row[measureAlias(m)] = aggregate(g.rows, m)
			}
			out.Rows = append(out.Rows, row)
		}
		table = out
	}
	return table, nil
}

func measureAlias(m decision.AggregateMeasure) string {
	if m.As != "" {
		return m.As
	}
	return fmt.Sprintf("%s_%s", m.Field, m.Op)
}

func supportedAggregateOp(op decision.AggregateOp) bool {
	switch op {
	case decision.AggSum, decision.AggMean, decision.AggMedian,
		decision.AggMin, decision.AggMax, decision.AggCount:
		return true
	}
	return false
}

func aggregate(rows []dataset.Row, m decision.AggregateMeasure) any {
	if m.Op == decision.AggCount {
		n := 0
		for _, row := range rows {
			if row[m.Field] != nil {
				n++
			}
		}
		return n
	}

	var values []float64
	for _, row := range rows {
		v := row[m.Field]
		if v == nil {
			continue
		}
		if f, ok := parseNumber(v); ok {
			values = append(values, f)
		}
	}
	if len(values) == 0 {
		return nil
	}

	switch m.Op {
	case decision.AggSum:
		sum := 0.0
		for _, f := range values {
			sum += f
		}
		return sum
	case decision.AggMean:
		sum := 0.0
		for _, f := range values {
			sum += f
		}
		return sum / float64(len(values))
	case decision.AggMedian:
		sort.Float64s(values)
		mid := len(values) / 2
		if len(values)%2 == 1 {
			return values[mid]
		}
		return (values[mid-1] + values[mid]) / 2
	case decision.AggMin:
		minV := values[0]
		for _, f := range values[1:] {
			minV = math.Min(minV, f)
		}
		return minV
	case decision.AggMax:
		maxV := values[0]
		for _, f := range values[1:] {
			maxV = math.Max(maxV, f)
		}
		return maxV
	}
	return nil
}
