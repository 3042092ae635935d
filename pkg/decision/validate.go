package decision

import (
	"encoding/json"
	"fmt"
)

var chartTypes = map[ChartType]bool{
	ChartBar: true, ChartColumn: true, ChartLine: true, ChartArea: true,
	ChartScatter: true, ChartHistogram: true, ChartBoxplot: true,
	ChartStackedBar: true, ChartDivergingStackedBar: true, ChartPie: true,
	ChartHeatmap: true, ChartHexbin: true, ChartGeoChoropleth: true,
}

var semanticTypes = map[SemanticType]bool{
	TypeNominal: true, TypeOrdinal: true, TypeQuantitative: true,
	TypeTemporal: true, TypeGeospatial: true,
}

var fieldRoles = map[FieldRole]bool{
	RoleDimension: true, RoleMeasure: true, RoleTime: true, RoleSeries: true,
	RoleGeo: true, RoleValue: true, RoleX: true, RoleY: true,
}

var aggregateOps = map[AggregateOp]bool{
	AggSum: true, AggMean: true, AggMedian: true, AggMin: true, AggMax: true,
	AggCount: true, AggAuto: true,
}

var timeUnits = map[TimeUnit]bool{
	UnitAuto: true, UnitSecond: true, UnitMinute: true, UnitHour: true,
	UnitDay: true, UnitWeek: true, UnitMonth: true, UnitQuarter: true,
	UnitYear: true,
}

var filterOps = map[FilterOp]bool{
	OpIsNull: true, OpIsNotNull: true, OpEq: true, OpNe: true, OpGt: true,
	OpGte: true, OpLt: true, OpLte: true, OpIn: true, OpNotIn: true,
	OpBetween: true, OpRegex: true,
}

// Validate parses raw JSON into a VisualizationDecision and checks it against
// the contract. It is the only place malformed model output is rejected; every
// downstream stage assumes a decision that passed here.
func Validate(raw []byte) (*VisualizationDecision, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("decision is not a JSON object: %w", err)
	}
	for _, required := range []string{"chart", "fields", "encoding", "justification"} {
		if _, ok := keys[required]; !ok {
			return nil, fmt.Errorf("missing required field %q", required)
		}
	}

	var d VisualizationDecision
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to parse decision: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks an already-unmarshalled decision against the contract.
// Fallback-synthesized decisions pass through here too, for consistency.
func (d *VisualizationDecision) Validate() error {
	if err := d.Chart.validate(); err != nil {
		return err
	}
	if d.Justification == "" {
		return fmt.Errorf("justification is required")
	}
	for i, f := range d.Fields {
		if err := f.validate(); err != nil {
			return fmt.Errorf("fields[%d]: %w", i, err)
		}
	}
	if d.Transform != nil {
		if err := d.Transform.validate(); err != nil {
			return err
		}
	}
	if err := d.Encoding.validate(); err != nil {
		return err
	}
	if d.RenderHints != nil && d.RenderHints.XRotation != nil {
		if r := *d.RenderHints.XRotation; r < 0 || r > 90 {
			return fmt.Errorf("render_hints.x_rotation must be between 0 and 90, got %d", r)
		}
	}
	return nil
}

func (c Chart) validate() error {
	if c.Type == "" {
		return fmt.Errorf("chart.type is required")
	}
	if !chartTypes[c.Type] {
		return fmt.Errorf("unknown chart type %q", c.Type)
	}
	if c.Score < 0 || c.Score > 1 {
		return fmt.Errorf("chart score must be within [0, 1], got %v", c.Score)
	}
	if c.Alternates != nil && len(c.Alternates) == 0 {
		return fmt.Errorf("alternates cannot be an empty array")
	}
	for i, alt := range c.Alternates {
		if !chartTypes[alt.Type] {
			return fmt.Errorf("alternates[%d]: unknown chart type %q", i, alt.Type)
		}
		if alt.Score < 0 || alt.Score > 1 {
			return fmt.Errorf("alternates[%d]: score must be within [0, 1], got %v", i, alt.Score)
		}
	}
	return nil
}

func (f FieldSpec) validate() error {
	if f.Name == "" {
		return fmt.Errorf("field name is required")
	}
	if !fieldRoles[f.Role] {
		return fmt.Errorf("unknown field role %q", f.Role)
	}
	if !semanticTypes[f.Type] {
		return fmt.Errorf("unknown semantic type %q", f.Type)
	}
	if f.Aggregate != "" && !aggregateOps[f.Aggregate] {
		return fmt.Errorf("unknown aggregate op %q", f.Aggregate)
	}
	if f.TimeUnit != "" && !timeUnits[f.TimeUnit] {
		return fmt.Errorf("unknown time unit %q", f.TimeUnit)
	}
	return nil
}

func (t *Transform) validate() error {
	for i, spec := range t.Filter {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("transform.filter[%d]: %w", i, err)
		}
	}
	for i, spec := range t.TimeUnit {
		if spec.Field == "" {
			return fmt.Errorf("transform.time_unit[%d]: field is required", i)
		}
		if !timeUnits[spec.Unit] {
			return fmt.Errorf("transform.time_unit[%d]: unknown time unit %q", i, spec.Unit)
		}
	}
	for i, spec := range t.Bin {
		if spec.Field == "" {
			return fmt.Errorf("transform.bin[%d]: field is required", i)
		}
		if p := spec.Params; p != nil {
			if p.MaxBins != nil && *p.MaxBins < 1 {
				return fmt.Errorf("transform.bin[%d]: maxbins must be >= 1, got %d", i, *p.MaxBins)
			}
			if p.Step != nil && *p.Step <= 0 {
				return fmt.Errorf("transform.bin[%d]: step must be > 0, got %v", i, *p.Step)
			}
		}
	}
	for i, spec := range t.Aggregate {
		for j, m := range spec.Measures {
			if m.Field == "" {
				return fmt.Errorf("transform.aggregate[%d].measures[%d]: field is required", i, j)
			}
			if !aggregateOps[m.Op] {
				return fmt.Errorf("transform.aggregate[%d].measures[%d]: unknown aggregate op %q", i, j, m.Op)
			}
		}
	}
	return nil
}

// Validate checks a single filter spec. Exported because request-level
// filters arrive outside a decision and go through the same gate.
func (f FilterSpec) Validate() error {
	if f.Field == "" {
		return fmt.Errorf("filter field is required")
	}
	if !filterOps[f.Op] {
		return fmt.Errorf("unknown filter op %q", f.Op)
	}
	if f.Values != nil && len(f.Values) == 0 {
		return fmt.Errorf("filter values cannot be empty")
	}
	return nil
}

func (e Encoding) validate() error {
	channels := map[string]*Channel{
		"x": e.X, "y": e.Y, "color": e.Color, "size": e.Size, "shape": e.Shape,
	}
	for name, ch := range channels {
		if ch == nil {
			continue
		}
		if ch.Type != "" && !semanticTypes[ch.Type] {
			return fmt.Errorf("encoding.%s: unknown semantic type %q", name, ch.Type)
		}
		if ch.Aggregate != "" && !aggregateOps[ch.Aggregate] {
			return fmt.Errorf("encoding.%s: unknown aggregate op %q", name, ch.Aggregate)
		}
		if ch.TimeUnit != "" && !timeUnits[ch.TimeUnit] {
			return fmt.Errorf("encoding.%s: unknown time unit %q", name, ch.TimeUnit)
		}
		if err := validateChannelBin(name, ch.Bin); err != nil {
			return err
		}
	}
	for name, fc := range map[string]*FacetChannel{"row": e.Row, "column": e.Column} {
		if fc == nil {
			continue
		}
		if fc.Type != "" && fc.Type != "nominal" && fc.Type != "ordinal" {
			return fmt.Errorf("encoding.%s: facet type must be nominal or ordinal, got %q", name, fc.Type)
		}
		if fc.MaxColumns != nil && *fc.MaxColumns < 1 {
			return fmt.Errorf("encoding.%s: max_columns must be >= 1, got %d", name, *fc.MaxColumns)
		}
	}
	if e.Order != nil && e.Order.Direction != "" &&
		e.Order.Direction != "asc" && e.Order.Direction != "desc" {
		return fmt.Errorf("encoding.order: direction must be asc or desc, got %q", e.Order.Direction)
	}
	return nil
}

// validateChannelBin accepts a bool or a BinParam-shaped object, the two
// forms the contract allows for a channel's bin.
func validateChannelBin(channel string, bin any) error {
	switch v := bin.(type) {
	case nil, bool:
		return nil
	case map[string]any:
		if mb, ok := v["maxbins"].(float64); ok && mb < 1 {
			return fmt.Errorf("encoding.%s: bin maxbins must be >= 1, got %v", channel, mb)
		}
		if step, ok := v["step"].(float64); ok && step <= 0 {
			return fmt.Errorf("encoding.%s: bin step must be > 0, got %v", channel, step)
		}
		return nil
	case *BinParam:
		return nil
	case BinParam:
		return nil
	default:
		return fmt.Errorf("encoding.%s: bin must be a boolean or bin params object", channel)
	}
}
