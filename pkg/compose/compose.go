// Package compose maps a validated decision plus already-materialized rows
// into a Vega-Lite specification. No validation happens here; the composer
// trusts the decision passed the contract gate.
package compose

import (
	"github.com/vizlake/vizlake/pkg/apierr"
	"github.com/vizlake/vizlake/pkg/dataset"
	"github.com/vizlake/vizlake/pkg/decision"
)

const vegaLiteSchema = "https://vega.github.io/schema/vega-lite/v5.json"

// markOverrides maps chart types that do not translate 1:1 to a mark name.
// Unmapped types pass through as their literal name.
var markOverrides = map[decision.ChartType]map[string]any{
	decision.ChartStackedBar:          {"type": "bar", "stack": "normal"},
	decision.ChartDivergingStackedBar: {"type": "bar", "stack": "normalize"},
}

// Compose builds the Vega-Lite spec for a decision, with rows inlined as the
// data payload. The row, column and order channels are reserved; a decision
// that sets them is rejected rather than guessed at.
func Compose(d *decision.VisualizationDecision, rows []dataset.Row) (map[string]any, error) {
	if d.Encoding.Row != nil || d.Encoding.Column != nil || d.Encoding.Order != nil {
		return nil, apierr.InvalidRequest("row/column/order encoding channels not implemented")
	}

	if rows == nil {
		rows = []dataset.Row{}
	}
	spec := map[string]any{
		"$schema":  vegaLiteSchema,
		"data":     map[string]any{"values": rows},
		"mark":     mapMark(d.Chart.Type),
		"encoding": buildEncoding(d),
		"config":   axisConfig(d),
	}
	return spec, nil
}

func mapMark(t decision.ChartType) any {
	if mark, ok := markOverrides[t]; ok {
		return mark
	}
	return string(t)
}

func axisConfig(d *decision.VisualizationDecision) map[string]any {
	angle := 0
	if d.RenderHints != nil && d.RenderHints.XRotation != nil {
		angle = *d.RenderHints.XRotation
	}
	return map[string]any{"axis": map[string]any{"labelAngle": angle}}
}

func buildEncoding(d *decision.VisualizationDecision) map[string]any {
	encoding := map[string]any{}
	channels := []struct {
		name string
		ch   *decision.Channel
	}{
		{"x", d.Encoding.X},
		{"y", d.Encoding.Y},
		{"color", d.Encoding.Color},
		{"size", d.Encoding.Size},
		{"shape", d.Encoding.Shape},
	}
	for _, c := range channels {
		if c.ch != nil {
			encoding[c.name] = encodeChannel(c.ch)
		}
	}
	return encoding
}

// encodeChannel emits the channel's sub-keys, omitting any whose source
// value is absent. A boolean bin passes through as-is; a structured bin
// parameter is flattened to its non-null fields.
func encodeChannel(ch *decision.Channel) map[string]any {
	spec := map[string]any{}
	if ch.Field != "" {
		spec["field"] = ch.Field
	}
	if ch.Type != "" {
		spec["type"] = string(ch.Type)
	}
	if ch.Aggregate != "" {
		spec["aggregate"] = string(ch.Aggregate)
	}
	if ch.TimeUnit != "" {
		spec["timeUnit"] = string(ch.TimeUnit)
	}
	if bin := encodeBin(ch.Bin); bin != nil {
		spec["bin"] = bin
	}
	return spec
}

func encodeBin(bin any) any {
	switch v := bin.(type) {
	case bool:
		if v {
			return true
		}
		return nil
	case map[string]any:
		out := map[string]any{}
		for k, val := range v {
			if val != nil {
				out[k] = val
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case *decision.BinParam:
		if v == nil {
			return nil
		}
		return flattenBinParam(*v)
	case decision.BinParam:
		return flattenBinParam(v)
	default:
		return nil
	}
}

func flattenBinParam(p decision.BinParam) any {
	out := map[string]any{}
	if p.Strategy != "" {
		out["strategy"] = p.Strategy
	}
	if p.MaxBins != nil {
		out["maxbins"] = *p.MaxBins
	}
	if p.Step != nil {
		out["step"] = *p.Step
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
