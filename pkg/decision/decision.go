// Package decision defines the visualization decision contract: the shape of
// what a chart decision may legally contain, whether it came from the model
// or from heuristic fallback. Validation here is the sole gate between
// untrusted model output and the rest of the pipeline.
package decision

// ChartType enumerates the chart types a decision may choose.
type ChartType string

const (
	ChartBar                 ChartType = "bar"
	ChartColumn              ChartType = "column"
	ChartLine                ChartType = "line"
	ChartArea                ChartType = "area"
	ChartScatter             ChartType = "scatter"
	ChartHistogram           ChartType = "histogram"
	ChartBoxplot             ChartType = "boxplot"
	ChartStackedBar          ChartType = "stacked_bar"
	ChartDivergingStackedBar ChartType = "diverging_stacked_bar"
	ChartPie                 ChartType = "pie"
	ChartHeatmap             ChartType = "heatmap"
	ChartHexbin              ChartType = "hexbin"
	ChartGeoChoropleth       ChartType = "geo_choropleth"
)

// SemanticType is a column's semantic type as used by encodings.
type SemanticType string

const (
	TypeNominal      SemanticType = "nominal"
	TypeOrdinal      SemanticType = "ordinal"
	TypeQuantitative SemanticType = "quantitative"
	TypeTemporal     SemanticType = "temporal"
	TypeGeospatial   SemanticType = "geospatial"
)

// FieldRole names the semantic role a column plays in a chart.
type FieldRole string

const (
	RoleDimension FieldRole = "dimension"
	RoleMeasure   FieldRole = "measure"
	RoleTime      FieldRole = "time"
	RoleSeries    FieldRole = "series"
	RoleGeo       FieldRole = "geo"
	RoleValue     FieldRole = "value"
	RoleX         FieldRole = "x"
	RoleY         FieldRole = "y"
)

// AggregateOp enumerates aggregation operators. "auto" is a contract member
// the executor rejects as unsupported.
type AggregateOp string

const (
	AggSum    AggregateOp = "sum"
	AggMean   AggregateOp = "mean"
	AggMedian AggregateOp = "median"
	AggMin    AggregateOp = "min"
	AggMax    AggregateOp = "max"
	AggCount  AggregateOp = "count"
	AggAuto   AggregateOp = "auto"
)

// TimeUnit enumerates time bucketing granularities.
type TimeUnit string

const (
	UnitAuto    TimeUnit = "auto"
	UnitSecond  TimeUnit = "second"
	UnitMinute  TimeUnit = "minute"
	UnitHour    TimeUnit = "hour"
	UnitDay     TimeUnit = "day"
	UnitWeek    TimeUnit = "week"
	UnitMonth   TimeUnit = "month"
	UnitQuarter TimeUnit = "quarter"
	UnitYear    TimeUnit = "year"
)

// FilterOp enumerates filter operators. "regex" is declared but reserved;
// invoking it is an explicit not-implemented error at execution time.
type FilterOp string

const (
	OpIsNull    FilterOp = "is_null"
	OpIsNotNull FilterOp = "is_not_null"
	OpEq        FilterOp = "eq"
	OpNe        FilterOp = "ne"
	OpGt        FilterOp = "gt"
	OpGte       FilterOp = "gte"
	OpLt        FilterOp = "lt"
	OpLte       FilterOp = "lte"
	OpIn        FilterOp = "in"
	OpNotIn     FilterOp = "not_in"
	OpBetween   FilterOp = "between"
	OpRegex     FilterOp = "regex"
)

// FieldSpec identifies one column's semantic role in a chart. Name is
// checked against the dataset lazily at execution time, not at parse time.
type FieldSpec struct {
	Name        string       `json:"name"`
	Role        FieldRole    `json:"role"`
	Type        SemanticType `json:"type"`
	Aggregate   AggregateOp  `json:"aggregate,omitempty"`
	TimeUnit    TimeUnit     `json:"time_unit,omitempty"`
	Binned      *bool        `json:"binned,omitempty"`
	Description string       `json:"description,omitempty"`
}

// BinParam controls binning: an explicit step wins over maxbins.
type BinParam struct {
	Strategy string   `json:"strategy,omitempty"`
	MaxBins  *int     `json:"maxbins,omitempty"`
	Step     *float64 `json:"step,omitempty"`
}

type BinSpec struct {
	Field  string    `json:"field"`
	Params *BinParam `json:"params,omitempty"`
}

type TimeUnitSpec struct {
	Field string   `json:"field"`
	Unit  TimeUnit `json:"unit"`
}

// DeriveSpec is declared for contract completeness; the executor rejects it.
type DeriveSpec struct {
	As   string `json:"as"`
	Expr string `json:"expr"`
}

type AggregateMeasure struct {
	Field string      `json:"field"`
	Op    AggregateOp `json:"op"`
	As    string      `json:"as,omitempty"`
}

type AggregateSpec struct {
	GroupBy  []string           `json:"groupby"`
	Measures []AggregateMeasure `json:"measures"`
}

// FilterSpec describes one row predicate. Comparison ops use Value,
// in/not_in/between use Values, null checks ignore both.
type FilterSpec struct {
	Field  string   `json:"field"`
	Op     FilterOp `json:"op"`
	Value  any      `json:"value,omitempty"`
	Values []any    `json:"values,omitempty"`
}

// Transform is an ordered composite of optional clauses. The executor applies
// them as a fixed fold (filter, time_unit, bin, aggregate) regardless of
// declaration order in the payload.
type Transform struct {
	Filter    []FilterSpec    `json:"filter,omitempty"`
	TimeUnit  []TimeUnitSpec  `json:"time_unit,omitempty"`
	Bin       []BinSpec       `json:"bin,omitempty"`
	Aggregate []AggregateSpec `json:"aggregate,omitempty"`
	Derive    []DeriveSpec    `json:"derive,omitempty"`
}

// Channel maps one visual channel to a field. Bin is either the boolean true
// or a structured BinParam.
type Channel struct {
	Field     string       `json:"field,omitempty"`
	Type      SemanticType `json:"type,omitempty"`
	Aggregate AggregateOp  `json:"aggregate,omitempty"`
	TimeUnit  TimeUnit     `json:"time_unit,omitempty"`
	Bin       any          `json:"bin,omitempty"`
}

type FacetChannel struct {
	Field      string `json:"field,omitempty"`
	Type       string `json:"type,omitempty"`
	MaxColumns *int   `json:"max_columns,omitempty"`
}

type OrderChannel struct {
	By        string `json:"by,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Encoding is the per-channel field mapping. Row, Column and Order are
// declared but not yet mapped by the composer.
type Encoding struct {
	X      *Channel      `json:"x,omitempty"`
	Y      *Channel      `json:"y,omitempty"`
	Color  *Channel      `json:"color,omitempty"`
	Size   *Channel      `json:"size,omitempty"`
	Shape  *Channel      `json:"shape,omitempty"`
	Row    *FacetChannel `json:"row,omitempty"`
	Column *FacetChannel `json:"column,omitempty"`
	Order  *OrderChannel `json:"order,omitempty"`
}

type ChartAlternate struct {
	Type  ChartType `json:"type"`
	Score float64   `json:"score"`
	Why   string    `json:"why,omitempty"`
}

type Chart struct {
	Type       ChartType        `json:"type"`
	Score      float64          `json:"score"`
	Alternates []ChartAlternate `json:"alternates,omitempty"`
}

type RenderHints struct {
	XRotation   *int     `json:"x_rotation,omitempty"`
	YZero       *bool    `json:"y_zero,omitempty"`
	Stack       string   `json:"stack,omitempty"`
	LabelFormat string   `json:"label_format,omitempty"`
	Tooltip     []string `json:"tooltip,omitempty"`
}

type DataChecks struct {
	Missing     map[string]int            `json:"missing,omitempty"`
	Outliers    map[string]map[string]any `json:"outliers,omitempty"`
	Cardinality map[string]int            `json:"cardinality,omitempty"`
}

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ColumnProfile struct {
	Name         string       `json:"name"`
	InferredType SemanticType `json:"inferred_type"`
	Unique       *int         `json:"unique,omitempty"`
	Missing      *int         `json:"missing,omitempty"`
	Outliers     *int         `json:"outliers,omitempty"`
}

type DatasetProfile struct {
	RowCount        *int                `json:"row_count,omitempty"`
	Columns         []ColumnProfile     `json:"columns,omitempty"`
	Issues          []string            `json:"issues,omitempty"`
	TimeGranularity map[string]TimeUnit `json:"time_granularity,omitempty"`
}

// VisualizationDecision is the single object passed between every stage of
// the pipeline. It is immutable once produced; execution and composition
// only read it.
type VisualizationDecision struct {
	Chart         Chart           `json:"chart"`
	Fields        []FieldSpec     `json:"fields"`
	Transform     *Transform      `json:"transform,omitempty"`
	Encoding      Encoding        `json:"encoding"`
	Assumptions   []string        `json:"assumptions,omitempty"`
	Justification string          `json:"justification"`
	DataChecks    *DataChecks     `json:"data_checks,omitempty"`
	RenderHints   *RenderHints    `json:"render_hints,omitempty"`
	Profile       *DatasetProfile `json:"profile,omitempty"`
	Warnings      []Warning       `json:"warnings,omitempty"`
	Errors        []string        `json:"errors,omitempty"`
}
