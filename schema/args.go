package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateArgs checks model-supplied tool arguments against the
// contract's input schema and returns a typed record. Unlike form
// validation, the input here is already JSON, so the full schema
// (types, minLength, enum, required) is enforced in one pass.
func (c *Contract) ValidateArgs(args json.RawMessage) (Record, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	schemaLoader := gojsonschema.NewGoLoader(c.InputSchema())
	docLoader := gojsonschema.NewBytesLoader(args)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("validate arguments for %q: %w", c.Name, err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("invalid arguments for %q: %s", c.Name, formatSchemaErrors(result))
	}

	var decoded map[string]any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return nil, fmt.Errorf("decode arguments for %q: %w", c.Name, err)
	}
	record := Record{}
	for _, f := range c.Input {
		if v, ok := decoded[f.Name]; ok {
			record[f.Name] = v
		}
	}
	return record, nil
}

// ValidateOutput checks a provider's structured response against the
// contract's declared output schema.
func (c *Contract) ValidateOutput(doc json.RawMessage) error {
	if len(c.Output) == 0 {
		return nil
	}
	schemaLoader := gojsonschema.NewGoLoader(c.Output)
	docLoader := gojsonschema.NewBytesLoader(doc)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("validate output for %q: %w", c.Name, err)
	}
	if !result.Valid() {
		return fmt.Errorf("output for %q does not match contract: %s", c.Name, formatSchemaErrors(result))
	}
	return nil
}

func formatSchemaErrors(result *gojsonschema.Result) string {
	msg := ""
	for i, e := range result.Errors() {
		if i > 0 {
			msg += "; "
		}
		msg += e.String()
	}
	return msg
}
