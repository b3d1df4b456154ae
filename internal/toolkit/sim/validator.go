package sim

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/commandtable-v1.json
var commandTableSchemaJSON string

// Validator checks command tables against the device schema.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("commandtable-v1.json",
		strings.NewReader(commandTableSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("commandtable-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// ValidateCommandTable validates a JSON encoded command table.
func (v *Validator) ValidateCommandTable(data []byte) error {
	var ct interface{}
	if err := json.Unmarshal(data, &ct); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", types.ErrValidation, err)
	}

	if err := v.schema.Validate(ct); err != nil {
		return fmt.Errorf("%w: schema validation failed: %v", types.ErrValidation, err)
	}

	return nil
}

// Schema returns the schema document as a decoded mapping.
func (v *Validator) Schema() (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(commandTableSchemaJSON), &out); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	return out, nil
}
