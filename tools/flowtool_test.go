package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/artisanhub/craft-ai-bridge/schema"
)

type invokerFunc func(ctx context.Context, flowName string, args json.RawMessage) (json.RawMessage, error)

func (f invokerFunc) Invoke(ctx context.Context, flowName string, args json.RawMessage) (json.RawMessage, error) {
	return f(ctx, flowName, args)
}

func TestBindFlow_DeclaresContractSchema(t *testing.T) {
	schema.Reset()
	t.Cleanup(schema.Reset)
	schema.MustRegister(&schema.Contract{
		Name:        "suggestPrice",
		Description: "Suggests a price range.",
		Input: []schema.FieldSpec{
			{Name: "productName", Type: schema.FieldString, Required: true},
		},
	})

	tool, err := BindFlow(invokerFunc(func(ctx context.Context, flowName string, args json.RawMessage) (json.RawMessage, error) {
		if flowName != "suggestPrice" {
			t.Errorf("flowName = %q", flowName)
		}
		return json.RawMessage(`{"min":20,"max":35}`), nil
	}), "suggestPrice")
	if err != nil {
		t.Fatalf("BindFlow failed: %v", err)
	}

	def := tool.Definition()
	if def.Name != "suggestPrice" || def.Description == "" {
		t.Errorf("definition = %+v", def)
	}
	props, ok := def.JSONSchema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %v", def.JSONSchema)
	}
	if _, ok := props["productName"]; !ok {
		t.Error("productName missing from declared schema")
	}

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"productName":"Mug"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	raw, ok := out.(json.RawMessage)
	if !ok {
		t.Fatalf("output type %T", out)
	}
	if string(raw) != `{"min":20,"max":35}` {
		t.Errorf("output = %s", raw)
	}
}

func TestBindFlow_UnknownContract(t *testing.T) {
	schema.Reset()
	t.Cleanup(schema.Reset)

	_, err := BindFlow(invokerFunc(func(ctx context.Context, flowName string, args json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("unreachable")
	}), "missing")
	if err == nil {
		t.Fatal("expected error for unknown contract")
	}
}

func TestFuncTool_Execute(t *testing.T) {
	tool := NewFuncTool("echo", "echoes input", map[string]any{"type": "object"},
		func(ctx context.Context, args json.RawMessage) (any, error) {
			return map[string]any{"echo": string(args)}, nil
		})
	out, err := tool.Execute(context.Background(), json.RawMessage(`{"a":1}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok || m["echo"] != `{"a":1}` {
		t.Errorf("out = %v", out)
	}
}
