package fallback_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/vizlake/vizlake/pkg/decision"
	"github.com/vizlake/vizlake/pkg/fallback"
)

func col(name string, typ decision.SemanticType) decision.FieldSpec {
	return decision.FieldSpec{Name: name, Role: decision.RoleDimension, Type: typ}
}

func TestFallback_Synthesize(t *testing.T) {
	t.Parallel()

	t.Run("temporal plus quantitative wins over everything", func(t *testing.T) {
		t.Parallel()

		d := fallback.Synthesize([]decision.FieldSpec{
			col("category", decision.TypeNominal),
			col("day", decision.TypeTemporal),
			col("amount", decision.TypeQuantitative),
		}, nil, "model timed out")
		require.NotNil(t, d)
		require.Equal(t, decision.ChartLine, d.Chart.Type)
		require.Equal(t, "day", d.Encoding.X.Field)
		require.Equal(t, "amount", d.Encoding.Y.Field)
	})

	t.Run("nominal plus quantitative gives bar", func(t *testing.T) {
		t.Parallel()

		d := fallback.Synthesize([]decision.FieldSpec{
			col("category", decision.TypeNominal),
			col("amount", decision.TypeQuantitative),
		}, nil, "x")
		require.NotNil(t, d)
		require.Equal(t, decision.ChartBar, d.Chart.Type)
		require.Equal(t, "category", d.Encoding.X.Field)
		require.Equal(t, decision.AggSum, d.Encoding.Y.Aggregate)
	})

	t.Run("two quantitative give scatter", func(t *testing.T) {
		t.Parallel()

		d := fallback.Synthesize([]decision.FieldSpec{
			col("height", decision.TypeQuantitative),
			col("weight", decision.TypeQuantitative),
		}, nil, "x")
		require.NotNil(t, d)
		require.Equal(t, decision.ChartScatter, d.Chart.Type)
		require.Equal(t, "height", d.Encoding.X.Field)
		require.Equal(t, "weight", d.Encoding.Y.Field)
	})

	t.Run("single quantitative gives binned histogram", func(t *testing.T) {
		t.Parallel()

		d := fallback.Synthesize([]decision.FieldSpec{
			col("amount", decision.TypeQuantitative),
		}, nil, "x")
		require.NotNil(t, d)
		require.Equal(t, decision.ChartHistogram, d.Chart.Type)
		require.Equal(t, true, d.Encoding.X.Bin)
		require.Equal(t, decision.AggCount, d.Encoding.Y.Aggregate)
		require.Equal(t, d.Encoding.X.Field, d.Encoding.Y.Field)
	})

	t.Run("no usable signal returns nil", func(t *testing.T) {
		t.Parallel()

		require.Nil(t, fallback.Synthesize([]decision.FieldSpec{
			col("category", decision.TypeNominal),
			col("label", decision.TypeOrdinal),
		}, nil, "x"))
		require.Nil(t, fallback.Synthesize(nil, nil, "x"))
	})

	t.Run("column type comparison is case-insensitive", func(t *testing.T) {
		t.Parallel()

		d := fallback.Synthesize([]decision.FieldSpec{
			col("day", decision.SemanticType("Temporal")),
			col("amount", decision.SemanticType("QUANTITATIVE")),
		}, nil, "x")
		require.NotNil(t, d)
		require.Equal(t, decision.ChartLine, d.Chart.Type)
	})

	t.Run("fixed score, reason in assumptions, profile carried through", func(t *testing.T) {
		t.Parallel()

		rowCount := 42
		prof := &decision.DatasetProfile{RowCount: &rowCount}
		d := fallback.Synthesize([]decision.FieldSpec{
			col("amount", decision.TypeQuantitative),
		}, prof, "model returned no parseable JSON")
		require.NotNil(t, d)
		require.Equal(t, 0.3, d.Chart.Score)
		require.Equal(t, []string{
			"Heuristic fallback applied because model decision failed",
			"Reason: model returned no parseable JSON",
		}, d.Assumptions)
		require.Same(t, prof, d.Profile)
	})

	t.Run("deterministic for the same inputs", func(t *testing.T) {
		t.Parallel()

		columns := []decision.FieldSpec{
			col("day", decision.TypeTemporal),
			col("amount", decision.TypeQuantitative),
		}
		a := fallback.Synthesize(columns, nil, "x")
		b := fallback.Synthesize(columns, nil, "x")
		require.Empty(t, cmp.Diff(a, b))
	})

	t.Run("output always passes contract validation", func(t *testing.T) {
		t.Parallel()

		cases := [][]decision.FieldSpec{
			{col("day", decision.TypeTemporal), col("amount", decision.TypeQuantitative)},
			{col("category", decision.TypeNominal), col("amount", decision.TypeQuantitative)},
			{col("height", decision.TypeQuantitative), col("weight", decision.TypeQuantitative)},
			{col("amount", decision.TypeQuantitative)},
		}
		for _, columns := range cases {
			d := fallback.Synthesize(columns, nil, "x")
			require.NotNil(t, d)
			require.NoError(t, d.Validate())
		}
	})
}
