package decision

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Schema returns the JSON schema of the decision contract, derived from the
// Go types. The decider embeds it in the model prompt so the model sees the
// same contract the validator enforces.
func Schema() (*jsonschema.Schema, error) {
	s, err := jsonschema.For[VisualizationDecision](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision schema: %w", err)
	}
	return s, nil
}

// SchemaJSON returns the contract schema serialized for prompt embedding.
func SchemaJSON() (string, error) {
	s, err := Schema()
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal decision schema: %w", err)
	}
	return string(out), nil
}
