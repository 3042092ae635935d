package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vizlake/vizlake/pkg/cache"
	"github.com/vizlake/vizlake/pkg/dataset"
	"github.com/vizlake/vizlake/pkg/decider"
	"github.com/vizlake/vizlake/pkg/decision"
	"github.com/vizlake/vizlake/pkg/executor"
	"github.com/vizlake/vizlake/pkg/logger"
	"github.com/vizlake/vizlake/pkg/server"
)

type fakeDecider struct {
	DecideFunc func(ctx context.Context, req decider.DecideRequest) (*decision.VisualizationDecision, error)
}

func (d *fakeDecider) Decide(ctx context.Context, req decider.DecideRequest) (*decision.VisualizationDecision, error) {
	return d.DecideFunc(ctx, req)
}

type fakeLoader struct {
	loads atomic.Int64
	table *dataset.Table
}

func (l *fakeLoader) Load(ctx context.Context, path string) (*dataset.Table, error) {
	l.loads.Add(1)
	return l.table.Clone(), nil
}

func salesTable() *dataset.Table {
	return &dataset.Table{
		Columns: []string{"region", "sales"},
		Rows: []dataset.Row{
			{"region": "west", "sales": 100.0},
			{"region": "east", "sales": 50.0},
			{"region": "west", "sales": 95.0},
		},
	}
}

func barDecision() *decision.VisualizationDecision {
	return &decision.VisualizationDecision{
		Chart:         decision.Chart{Type: decision.ChartBar, Score: 0.9},
		Fields: []decision.FieldSpec{
			{Name: "region", Role: decision.RoleDimension, Type: decision.TypeNominal},
			{Name: "sales", Role: decision.RoleMeasure, Type: decision.TypeQuantitative},
		},
		Encoding: decision.Encoding{
			X: &decision.Channel{Field: "region", Type: decision.TypeNominal},
			Y: &decision.Channel{Field: "sales", Type: decision.TypeQuantitative, Aggregate: decision.AggSum},
		},
		Justification: "Bar chart comparing sales across regions.",
	}
}

type testServer struct {
	srv    *server.Server
	loader *fakeLoader
	dir    string
}

func newTestServer(t *testing.T, dec server.ChartDecider, renderCache *cache.Store) *testServer {
	t.Helper()

	log := logger.NewTest()
	loader := &fakeLoader{table: salesTable()}
	dir := t.TempDir()
	paths := dataset.PathPolicy{AllowedRoots: []string{dir}}

	exec, err := executor.New(executor.Config{Logger: log, Loader: loader, Paths: paths})
	require.NoError(t, err)

	if dec == nil {
		dec = &fakeDecider{
			DecideFunc: func(ctx context.Context, req decider.DecideRequest) (*decision.VisualizationDecision, error) {
				return barDecision(), nil
			},
		}
	}

	srv, err := server.New(server.Config{
		Logger:   log,
		Decider:  dec,
		Executor: exec,
		Loader:   loader,
		Paths:    paths,
		Cache:    renderCache,
	})
	require.NoError(t, err)

	return &testServer{srv: srv, loader: loader, dir: dir}
}

func (ts *testServer) writeDataset(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(ts.dir, name)
	require.NoError(t, os.WriteFile(path, []byte("region,sales\nwest,100\n"), 0o600))
	return path
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil, nil)
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Decide(t *testing.T) {
	t.Parallel()

	t.Run("explicit columns are passed through", func(t *testing.T) {
		t.Parallel()

		var got decider.DecideRequest
		ts := newTestServer(t, &fakeDecider{
			DecideFunc: func(ctx context.Context, req decider.DecideRequest) (*decision.VisualizationDecision, error) {
				got = req
				return barDecision(), nil
			},
		}, nil)

		rec := ts.do(t, http.MethodPost, "/decide", map[string]any{
			"columns": []map[string]any{
				{"name": "region", "role": "dimension", "type": "nominal"},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, got.Columns, 1)
		require.Equal(t, "region", got.Columns[0].Name)

		var resp struct {
			Decision decision.VisualizationDecision `json:"decision"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, decision.ChartBar, resp.Decision.Chart.Type)
	})

	t.Run("path-only request profiles the dataset", func(t *testing.T) {
		t.Parallel()

		var got decider.DecideRequest
		ts := newTestServer(t, &fakeDecider{
			DecideFunc: func(ctx context.Context, req decider.DecideRequest) (*decision.VisualizationDecision, error) {
				got = req
				return barDecision(), nil
			},
		}, nil)
		path := ts.writeDataset(t, "sales.csv")

		rec := ts.do(t, http.MethodPost, "/decide", map[string]any{"path": path})
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, got.Profile)
		require.Len(t, got.Columns, 2)
		require.NotEmpty(t, got.Sample)
	})

	t.Run("missing columns and path", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, nil, nil)
		rec := ts.do(t, http.MethodPost, "/decide", map[string]any{})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		require.Equal(t, "INVALID_REQUEST", payload["error"])
		require.NotEmpty(t, payload["correlation_id"])
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, nil, nil)
		req := httptest.NewRequest(http.MethodPost, "/decide", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		ts.srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_Render(t *testing.T) {
	t.Parallel()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, nil, nil)
		path := ts.writeDataset(t, "sales.csv")

		rec := ts.do(t, http.MethodPost, "/render", map[string]any{
			"path":     path,
			"decision": barDecision(),
			"filters": []map[string]any{
				{"field": "sales", "op": "gt", "value": 60},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			VegaLite map[string]any `json:"vega_lite"`
			Data     []dataset.Row  `json:"data"`
			Meta     executor.Meta  `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "bar", resp.VegaLite["mark"])
		require.Len(t, resp.Data, 2)
		require.Equal(t, 2, resp.Meta.RowsAfterFilter)
		require.Equal(t, 1, resp.Meta.AppliedFilters)
	})

	t.Run("identical request is served from cache", func(t *testing.T) {
		t.Parallel()

		store := cache.New(time.Minute)
		defer store.Stop()
		ts := newTestServer(t, nil, store)
		path := ts.writeDataset(t, "sales.csv")

		body := map[string]any{"path": path, "decision": barDecision()}
		first := ts.do(t, http.MethodPost, "/render", body)
		require.Equal(t, http.StatusOK, first.Code)
		require.Equal(t, int64(1), ts.loader.loads.Load())

		second := ts.do(t, http.MethodPost, "/render", body)
		require.Equal(t, http.StatusOK, second.Code)
		require.Equal(t, int64(1), ts.loader.loads.Load(), "cached response must not reload the dataset")
		require.JSONEq(t, first.Body.String(), second.Body.String())
	})

	t.Run("contract-invalid decision", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, nil, nil)
		path := ts.writeDataset(t, "sales.csv")

		rec := ts.do(t, http.MethodPost, "/render", map[string]any{
			"path":     path,
			"decision": map[string]any{"chart": map[string]any{"type": "sankey"}},
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		require.Equal(t, "SCHEMA_VALIDATION_FAILED", payload["error"])
	})

	t.Run("missing dataset path", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, nil, nil)
		rec := ts.do(t, http.MethodPost, "/render", map[string]any{
			"path":     filepath.Join(ts.dir, "nope.csv"),
			"decision": barDecision(),
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("path outside allowed roots", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, nil, nil)
		outside := filepath.Join(t.TempDir(), "sales.csv")
		require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

		rec := ts.do(t, http.MethodPost, "/render", map[string]any{
			"path":     outside,
			"decision": barDecision(),
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_DataFilter(t *testing.T) {
	t.Parallel()

	t.Run("filters and limit", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, nil, nil)
		path := ts.writeDataset(t, "sales.csv")

		rec := ts.do(t, http.MethodPost, "/data/filter", map[string]any{
			"path": path,
			"filters": []map[string]any{
				{"field": "region", "op": "eq", "value": "west"},
			},
			"limit_rows": 1,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data []dataset.Row `json:"data"`
			Meta executor.Meta `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		require.Equal(t, "west", resp.Data[0]["region"])
		require.Equal(t, 1, resp.Meta.AppliedFilters)
	})

	t.Run("between with wrong arity", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, nil, nil)
		path := ts.writeDataset(t, "sales.csv")

		rec := ts.do(t, http.MethodPost, "/data/filter", map[string]any{
			"path": path,
			"filters": []map[string]any{
				{"field": "sales", "op": "between", "values": []any{1}},
			},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		require.Equal(t, "INVALID_REQUEST", payload["error"])
	})
}

func TestServer_CorrelationID(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil, nil)

	t.Run("caller-provided ID is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/decide", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("X-Correlation-ID", "req-42")
		rec := httptest.NewRecorder()
		ts.srv.Handler().ServeHTTP(rec, req)

		require.Equal(t, "req-42", rec.Header().Get("X-Correlation-ID"))
		var payload map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		require.Equal(t, "req-42", payload["correlation_id"])
	})

	t.Run("generated when absent", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/decide", map[string]any{})
		require.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	})
}
