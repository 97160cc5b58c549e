package nlp

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed interpret_schema.json
var interpretSchemaJSON string

// interpretSchema validates the model's raw JSON output before any of it is
// trusted.  Compiled once at init; the schema is part of the binary.
var interpretSchema = jsonschema.MustCompileString("interpret_schema.json", interpretSchemaJSON)

// parseInterpretation decodes and schema-checks the model's output.  Every
// failure mode maps to ErrMalformedOutput so the engine can treat them
// uniformly.
func parseInterpretation(content string) (*InterpretResponse, error) {
	var doc any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v (raw content: %.200s)", ErrMalformedOutput, err, content)
	}
	if err := interpretSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	var out InterpretResponse
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return &out, nil
}
