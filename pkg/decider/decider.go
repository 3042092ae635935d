// Package decider runs the model decision step: it asks an LLM to choose a
// chart for a profiled dataset, validates the answer against the decision
// contract, and falls back to heuristic synthesis when the model path fails.
package decider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/vizlake/vizlake/pkg/apierr"
	"github.com/vizlake/vizlake/pkg/dataset"
	"github.com/vizlake/vizlake/pkg/decision"
	"github.com/vizlake/vizlake/pkg/fallback"
)

// LLMClient is the interface for interacting with an LLM.
type LLMClient interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Config struct {
	Logger     *slog.Logger
	LLM        LLMClient
	Timeout    time.Duration // per-request ceiling on the model call (default 30s)
	MaxRetries int           // transport retries before giving up (default 2)
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.LLM == nil {
		return fmt.Errorf("LLM client is required")
	}
	return nil
}

type Decider struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Decider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate decider config: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	return &Decider{log: cfg.Logger, cfg: cfg}, nil
}

// DecideRequest carries the dataset context the model decides over.
type DecideRequest struct {
	Profile *decision.DatasetProfile `json:"profile,omitempty"`
	Columns []decision.FieldSpec     `json:"columns"`
	Sample  []dataset.Row            `json:"sample,omitempty"`
}

// Decide asks the model for a chart decision and validates it. On model or
// validation failure it attempts heuristic fallback once; if that also
// yields nothing, the original error is returned with a note that heuristic
// recovery was attempted.
func (d *Decider) Decide(ctx context.Context, req DecideRequest) (*decision.VisualizationDecision, error) {
	if len(req.Columns) == 0 {
		return nil, apierr.InvalidRequest("columns are required")
	}

	dec, err := d.decideViaModel(ctx, req)
	if err == nil {
		return dec, nil
	}

	var coded *apierr.Error
	if !errors.As(err, &coded) ||
		(coded.Code != apierr.CodeModelDecisionFailed && coded.Code != apierr.CodeSchemaValidationFailed) {
		return nil, err
	}

	if fb := fallback.Synthesize(req.Columns, req.Profile, coded.Message); fb != nil {
		d.log.Warn("decider: model decision failed, using heuristic fallback", "reason", coded.Message)
		if verr := fb.Validate(); verr != nil {
			// Fallback output violating the contract is a bug, not a user error.
			return nil, fmt.Errorf("fallback decision failed validation: %w", verr)
		}
		return fb, nil
	}

	return nil, coded.WithDetails("heuristic fallback was attempted and yielded no usable decision")
}

func (d *Decider) decideViaModel(ctx context.Context, req DecideRequest) (*decision.VisualizationDecision, error) {
	userPrompt, err := buildUserPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	start := time.Now()
	response, err := backoff.Retry(ctx, func() (string, error) {
		return d.cfg.LLM.Complete(ctx, systemPrompt, userPrompt)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(d.cfg.MaxRetries+1)),
	)
	if err != nil {
		return nil, apierr.ModelDecisionFailed(fmt.Sprintf("model request failed: %v", err)).WithCause(err)
	}
	d.log.Debug("decider: model call completed", "duration", time.Since(start), "responseLen", len(response))

	raw := extractJSON(response)
	if raw == "" {
		return nil, apierr.ModelDecisionFailed("model returned no parseable JSON")
	}

	dec, err := decision.Validate([]byte(raw))
	if err != nil {
		return nil, apierr.SchemaValidationFailed("invalid decision").WithDetails(err.Error()).WithCause(err)
	}
	return dec, nil
}
