package decider

import (
	"encoding/json"
	"fmt"

	"github.com/vizlake/vizlake/pkg/decision"
)

const systemPrompt = "You are a visualization planning assistant. " +
	"Always respond with strict JSON matching the schema."

const samplePreviewRows = 5

// buildUserPrompt assembles the decide prompt: the contract's JSON schema,
// the dataset profile, the column metadata and a few sample rows.
func buildUserPrompt(req DecideRequest) (string, error) {
	schemaJSON, err := decision.SchemaJSON()
	if err != nil {
		return "", err
	}

	profileJSON, err := json.MarshalIndent(req.Profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal profile: %w", err)
	}
	columnsJSON, err := json.MarshalIndent(req.Columns, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal columns: %w", err)
	}
	sample := req.Sample
	if len(sample) > samplePreviewRows {
		sample = sample[:samplePreviewRows]
	}
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal sample: %w", err)
	}

	return fmt.Sprintf(`You are assisting with automatic visualization selection. Return a JSON object
that conforms to the provided JSON schema. Do not include any text outside of
the JSON payload.

JSON Schema (draft 2020-12):
%s

Dataset profile:
%s

Columns metadata:
%s

Sample rows (up to %d shown):
%s

Requirements:
- Choose a primary chart type from the allowed enum.
- Include alternates only when appropriate.
- Limit transforms to aggregate, filter, bin, and time_unit as defined in schema.
- Use clear field roles and ensure referenced fields exist in the columns list.
- Justification should be concise.`,
		schemaJSON, profileJSON, columnsJSON, samplePreviewRows, sampleJSON), nil
}
