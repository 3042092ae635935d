package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/vizlake/vizlake/pkg/apierr"
	"github.com/vizlake/vizlake/pkg/cache"
	"github.com/vizlake/vizlake/pkg/compose"
	"github.com/vizlake/vizlake/pkg/dataset"
	"github.com/vizlake/vizlake/pkg/decider"
	"github.com/vizlake/vizlake/pkg/decision"
	"github.com/vizlake/vizlake/pkg/executor"
	"github.com/vizlake/vizlake/pkg/profile"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decideRequest is the decide endpoint payload. Callers either supply the
// column metadata themselves or point at a dataset to profile.
type decideRequest struct {
	Path    string                   `json:"path,omitempty"`
	Profile *decision.DatasetProfile `json:"profile,omitempty"`
	Columns []decision.FieldSpec     `json:"columns,omitempty"`
	Sample  []dataset.Row            `json:"sample,omitempty"`
}

type decideResponse struct {
	Decision *decision.VisualizationDecision `json:"decision"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	dreq := decider.DecideRequest{
		Profile: req.Profile,
		Columns: req.Columns,
		Sample:  req.Sample,
	}

	// Without explicit columns the dataset itself is profiled.
	if len(dreq.Columns) == 0 {
		if req.Path == "" {
			s.writeError(w, r, apierr.InvalidRequest("either columns or path is required"))
			return
		}
		resolved, err := s.cfg.Paths.Validate(req.Path)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		table, err := s.cfg.Loader.Load(r.Context(), resolved)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		prof := profile.Profile(table)
		dreq.Profile = prof
		dreq.Columns = profile.Columns(prof)
		if len(dreq.Sample) == 0 {
			dreq.Sample = profile.Sample(table, 5)
		}
	}

	dec, err := s.cfg.Decider.Decide(r.Context(), dreq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, decideResponse{Decision: dec})
}

type renderRequest struct {
	Path      string                `json:"path"`
	Decision  json.RawMessage       `json:"decision"`
	Filters   []decision.FilterSpec `json:"filters,omitempty"`
	LimitRows int                   `json:"limit_rows,omitempty"`
}

type renderResponse struct {
	VegaLite map[string]any `json:"vega_lite"`
	Data     any            `json:"data"`
	Meta     executor.Meta  `json:"meta"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, requestBodyError(err))
		return
	}
	var req renderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, apierr.InvalidRequest("invalid JSON body: "+err.Error()))
		return
	}
	if req.Path == "" {
		s.writeError(w, r, apierr.InvalidRequest("path is required"))
		return
	}
	if len(req.Decision) == 0 {
		s.writeError(w, r, apierr.InvalidRequest("decision is required"))
		return
	}

	resolved, err := s.cfg.Paths.Validate(req.Path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// The cache key covers both the dataset bytes and the full request, so a
	// changed decision or filter set never serves a stale spec.
	var key string
	if s.cfg.Cache != nil {
		content, err := os.ReadFile(resolved)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		key = cache.Key(append(content, body...))
		if cached, ok := s.cfg.Cache.Get(key); ok {
			RenderCacheLookups.WithLabelValues(CacheResultHit).Inc()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write(cached); err != nil {
				s.log.Error("server: failed to write cached render response", "error", err)
			}
			return
		}
		RenderCacheLookups.WithLabelValues(CacheResultMiss).Inc()
	}

	dec, err := decision.Validate(req.Decision)
	if err != nil {
		s.writeError(w, r, apierr.SchemaValidationFailed("invalid decision").WithDetails(err.Error()).WithCause(err))
		return
	}

	table, meta, err := s.cfg.Executor.Execute(r.Context(), req.Path, dec, req.Filters, req.LimitRows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	spec, err := compose.Compose(dec, table.Rows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := renderResponse{VegaLite: spec, Data: table.Rows, Meta: meta}
	encoded, err := json.Marshal(resp)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.cfg.Cache != nil {
		s.cfg.Cache.Put(key, encoded)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(encoded); err != nil {
		s.log.Error("server: failed to write render response", "error", err)
	}
}

type dataFilterRequest struct {
	Path      string                `json:"path"`
	Filters   []decision.FilterSpec `json:"filters,omitempty"`
	LimitRows int                   `json:"limit_rows,omitempty"`
}

type dataFilterResponse struct {
	Data any           `json:"data"`
	Meta executor.Meta `json:"meta"`
}

func (s *Server) handleDataFilter(w http.ResponseWriter, r *http.Request) {
	var req dataFilterRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Path == "" {
		s.writeError(w, r, apierr.InvalidRequest("path is required"))
		return
	}

	table, meta, err := s.cfg.Executor.Execute(r.Context(), req.Path, nil, req.Filters, req.LimitRows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dataFilterResponse{Data: table.Rows, Meta: meta})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return requestBodyError(err)
	}
	return nil
}

func requestBodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apierr.DataTooLarge("request body exceeds limit").WithCause(err)
	}
	return apierr.InvalidRequest("invalid JSON body: " + err.Error()).WithCause(err)
}
