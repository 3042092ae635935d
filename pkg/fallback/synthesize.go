// Package fallback derives a legal, if generic, chart decision purely from
// column type signals. It is used when the model is unavailable or returns
// invalid output, and performs no I/O so it stays trivially testable.
package fallback

import (
	"fmt"
	"strings"

	"github.com/vizlake/vizlake/pkg/decision"
)

// fallbackScore is the fixed confidence attached to every synthesized
// decision so callers can distinguish heuristic from model output.
const fallbackScore = 0.3

// signal tags the column-type combinations the synthesizer recognizes,
// in rule-priority order.
type signal int

const (
	signalNone signal = iota
	signalTemporalQuantitative
	signalNominalQuantitative
	signalTwoQuantitative
	signalSingleQuantitative
)

// Synthesize returns a decision derived from the columns' semantic types, or
// nil when no usable pattern exists (the caller must surface its original
// failure). The result is deterministic for a given column list and always
// passes contract validation.
func Synthesize(columns []decision.FieldSpec, profile *decision.DatasetProfile, reason string) *decision.VisualizationDecision {
	byType := func(t decision.SemanticType) []decision.FieldSpec {
		var out []decision.FieldSpec
		for _, col := range columns {
			if strings.EqualFold(string(col.Type), string(t)) {
				out = append(out, col)
			}
		}
		return out
	}

	quantitative := byType(decision.TypeQuantitative)
	temporal := byType(decision.TypeTemporal)
	nominal := byType(decision.TypeNominal)

	var d *decision.VisualizationDecision
	switch classify(len(temporal), len(nominal), len(quantitative)) {
	case signalTemporalQuantitative:
		d = lineDecision(temporal[0].Name, quantitative[0].Name)
	case signalNominalQuantitative:
		d = barDecision(nominal[0].Name, quantitative[0].Name)
	case signalTwoQuantitative:
		d = scatterDecision(quantitative[0].Name, quantitative[1].Name)
	case signalSingleQuantitative:
		d = histogramDecision(quantitative[0].Name)
	default:
		return nil
	}

	d.Profile = profile
	d.Assumptions = []string{
		"Heuristic fallback applied because model decision failed",
		fmt.Sprintf("Reason: %s", reason),
	}
	return d
}

// classify picks the first matching rule; rule order is load-bearing.
func classify(temporal, nominal, quantitative int) signal {
	switch {
	case temporal >= 1 && quantitative >= 1:
		return signalTemporalQuantitative
	case nominal >= 1 && quantitative >= 1:
		return signalNominalQuantitative
	case quantitative >= 2:
		return signalTwoQuantitative
	case quantitative == 1:
		return signalSingleQuantitative
	default:
		return signalNone
	}
}

func lineDecision(timeField, measureField string) *decision.VisualizationDecision {
	return &decision.VisualizationDecision{
		Chart: decision.Chart{Type: decision.ChartLine, Score: fallbackScore},
		Fields: []decision.FieldSpec{
			{Name: timeField, Role: decision.RoleTime, Type: decision.TypeTemporal},
			{Name: measureField, Role: decision.RoleMeasure, Type: decision.TypeQuantitative, Aggregate: decision.AggSum},
		},
		Encoding: decision.Encoding{
			X: &decision.Channel{Field: timeField, Type: decision.TypeTemporal},
			Y: &decision.Channel{Field: measureField, Type: decision.TypeQuantitative, Aggregate: decision.AggSum},
		},
		Justification: "LLM unavailable; fallback line chart showing quantitative trend over time.",
	}
}

func barDecision(dimensionField, measureField string) *decision.VisualizationDecision {
	return &decision.VisualizationDecision{
		Chart: decision.Chart{Type: decision.ChartBar, Score: fallbackScore},
		Fields: []decision.FieldSpec{
			{Name: dimensionField, Role: decision.RoleDimension, Type: decision.TypeNominal},
			{Name: measureField, Role: decision.RoleMeasure, Type: decision.TypeQuantitative, Aggregate: decision.AggSum},
		},
		Encoding: decision.Encoding{
			X: &decision.Channel{Field: dimensionField, Type: decision.TypeNominal},
			Y: &decision.Channel{Field: measureField, Type: decision.TypeQuantitative, Aggregate: decision.AggSum},
		},
		Justification: "LLM unavailable; fallback bar chart comparing quantitative values across categories.",
	}
}

func scatterDecision(xField, yField string) *decision.VisualizationDecision {
	return &decision.VisualizationDecision{
		Chart: decision.Chart{Type: decision.ChartScatter, Score: fallbackScore},
		Fields: []decision.FieldSpec{
			{Name: xField, Role: decision.RoleMeasure, Type: decision.TypeQuantitative},
			{Name: yField, Role: decision.RoleMeasure, Type: decision.TypeQuantitative},
		},
		Encoding: decision.Encoding{
			X: &decision.Channel{Field: xField, Type: decision.TypeQuantitative},
			Y: &decision.Channel{Field: yField, Type: decision.TypeQuantitative},
		},
		Justification: "LLM unavailable; fallback scatter plot to observe relationship between two measures.",
	}
}

func histogramDecision(field string) *decision.VisualizationDecision {
	return &decision.VisualizationDecision{
		Chart: decision.Chart{Type: decision.ChartHistogram, Score: fallbackScore},
		Fields: []decision.FieldSpec{
			{Name: field, Role: decision.RoleMeasure, Type: decision.TypeQuantitative},
		},
		Encoding: decision.Encoding{
			X: &decision.Channel{Field: field, Type: decision.TypeQuantitative, Bin: true},
			Y: &decision.Channel{Field: field, Type: decision.TypeQuantitative, Aggregate: decision.AggCount},
		},
		Justification: "LLM unavailable; fallback histogram to show distribution of the measure.",
	}
}
