package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestContract_ValidateArgs_AcceptsConformingJSON(t *testing.T) {
	c := priceContract()
	record, err := c.ValidateArgs(json.RawMessage(`{
		"productDescription": "Hand-carved walnut serving spoon",
		"materialCost": 8,
		"hoursOfWork": 2.5
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := record["hoursOfWork"].(float64); !ok || got != 2.5 {
		t.Errorf("hoursOfWork = %v, want 2.5", record["hoursOfWork"])
	}
}

func TestContract_ValidateArgs_RejectsMissingRequired(t *testing.T) {
	c := priceContract()
	_, err := c.ValidateArgs(json.RawMessage(`{"materialCost": 8}`))
	if err == nil {
		t.Fatal("expected missing-field error")
	}
	if !strings.Contains(err.Error(), "suggestPrice") {
		t.Errorf("error should name the contract, got %q", err.Error())
	}
}

func TestContract_ValidateArgs_RejectsWrongType(t *testing.T) {
	c := priceContract()
	_, err := c.ValidateArgs(json.RawMessage(`{
		"productDescription": "Hand-carved walnut serving spoon",
		"materialCost": "eight",
		"hoursOfWork": 2
	}`))
	if err == nil {
		t.Fatal("expected type error for string materialCost")
	}
}

func TestContract_ValidateArgs_EmptyArgsMeansEmptyObject(t *testing.T) {
	c := &Contract{
		Name:  "answerQuery",
		Input: []FieldSpec{{Name: "query", Type: FieldString}},
	}
	record, err := c.ValidateArgs(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(record) != 0 {
		t.Errorf("expected empty record, got %v", record)
	}
}

func TestContract_ValidateOutput(t *testing.T) {
	c := feedbackContract()
	ok := json.RawMessage(`{"category":"complaint","sentiment":"negative","summary":"Mug arrived chipped."}`)
	if err := c.ValidateOutput(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := json.RawMessage(`{"category":"complaint"}`)
	if err := c.ValidateOutput(missing); err == nil {
		t.Fatal("expected error for missing required output fields")
	}

	empty := &Contract{Name: "nop"}
	if err := empty.ValidateOutput(json.RawMessage(`"anything"`)); err != nil {
		t.Fatalf("contract without output schema should accept anything: %v", err)
	}
}

func TestOutputSchemaOf_ReflectsStructShape(t *testing.T) {
	type sample struct {
		Summary string  `json:"summary" jsonschema:"description=One-sentence summary"`
		Score   float64 `json:"score"`
	}
	schema := OutputSchemaOf(sample{})
	if schema["type"] != "object" {
		t.Fatalf("type = %v, want object", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", schema)
	}
	if _, ok := props["summary"]; !ok {
		t.Error("summary property missing")
	}
	if _, ok := props["score"]; !ok {
		t.Error("score property missing")
	}
}
