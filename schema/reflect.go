package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// OutputSchemaOf derives a contract output schema from the flow's typed
// result struct, so the declared Go type and the wire contract cannot
// drift apart. Extra fields are tolerated (providers add metadata);
// missing declared fields are not.
func OutputSchemaOf(v any) map[string]any {
	reflector := jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	s := reflector.Reflect(v)
	s.Version = ""

	raw, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("reflect output schema: %v", err))
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("reflect output schema: %v", err))
	}
	delete(out, "$schema")
	return out
}
