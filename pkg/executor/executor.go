// Package executor applies a validated decision's transform clause to a
// dataset: filter, time-unit bucketing, binning and aggregation, in that
// fixed order. Execution is atomic; any structural problem fails the whole
// request with an invalid-request error.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vizlake/vizlake/pkg/apierr"
	"github.com/vizlake/vizlake/pkg/dataset"
	"github.com/vizlake/vizlake/pkg/decision"
)

// Meta is execution metadata returned alongside the materialized rows.
type Meta struct {
	RowsAfterFilter int `json:"rows_after_filter"`
	AppliedFilters  int `json:"applied_filters"`
}

type Config struct {
	Logger *slog.Logger
	Loader dataset.Loader
	Paths  dataset.PathPolicy
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.Loader == nil {
		return fmt.Errorf("loader is required")
	}
	return nil
}

type Executor struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate executor config: %w", err)
	}
	return &Executor{log: cfg.Logger, cfg: cfg}, nil
}

// clause enumerates the transform pipeline stages. The order of this slice
// is the order clauses are applied, independent of how the payload declared
// them: aggregation must see post-bucketed and post-binned columns.
type clause int

const (
	clauseFilter clause = iota
	clauseTimeUnit
	clauseBin
	clauseAggregate
)

var clauseOrder = []clause{clauseFilter, clauseTimeUnit, clauseBin, clauseAggregate}

// Execute loads the dataset at path and reduces it per the decision's
// transform clause. Request-level filters are applied first, using the same
// filter logic as clause-level filters. limitRows truncation happens last,
// after all transforms.
func (e *Executor) Execute(ctx context.Context, path string, d *decision.VisualizationDecision, filters []decision.FilterSpec, limitRows int) (*dataset.Table, Meta, error) {
	resolved, err := e.cfg.Paths.Validate(path)
	if err != nil {
		return nil, Meta{}, err
	}

	table, err := e.cfg.Loader.Load(ctx, resolved)
	if err != nil {
		return nil, Meta{}, err
	}

	table, err = applyFilters(table, filters)
	if err != nil {
		return nil, Meta{}, err
	}

	if d != nil && d.Transform != nil {
		table, err = e.applyTransform(table, d.Transform)
		if err != nil {
			return nil, Meta{}, err
		}
	}

	if limitRows > 0 && len(table.Rows) > limitRows {
		table.Rows = table.Rows[:limitRows]
	}

	meta := Meta{
		RowsAfterFilter: len(table.Rows),
		AppliedFilters:  len(filters),
	}
	e.log.Debug("executor: executed transform",
		"path", resolved, "rows", meta.RowsAfterFilter, "filters", meta.AppliedFilters)
	return table, meta, nil
}

func (e *Executor) applyTransform(table *dataset.Table, t *decision.Transform) (*dataset.Table, error) {
	if len(t.Derive) > 0 {
		return nil, apierr.InvalidRequest("derive transform not implemented")
	}

	var err error
	for _, c := range clauseOrder {
		switch c {
		case clauseFilter:
			table, err = applyFilters(table, t.Filter)
		case clauseTimeUnit:
			table, err = applyTimeUnits(table, t.TimeUnit)
		case clauseBin:
			table, err = applyBins(table, t.Bin)
		case clauseAggregate:
			table, err = applyAggregates(table, t.Aggregate)
		}
		if err != nil {
			return nil, err
		}
	}
	return table, nil
}

func requireColumn(table *dataset.Table, field string) error {
	if !table.HasColumn(field) {
		return apierr.InvalidRequest(fmt.Sprintf("unknown column: %s", field))
	}
	return nil
}
