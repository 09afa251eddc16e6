package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/artisanhub/craft-ai-bridge/schema"
)

// Invoker runs a named flow with model-supplied JSON arguments. The
// flow runner satisfies this; the indirection keeps tools from
// depending on the runner package.
type Invoker interface {
	Invoke(ctx context.Context, flowName string, args json.RawMessage) (json.RawMessage, error)
}

// BindFlow exposes a registered contract as a callable tool. The tool's
// declared schema is the contract's input schema, so the model sees the
// same contract the form boundary enforces.
func BindFlow(invoker Invoker, contractName string) (Tool, error) {
	contract, ok := schema.Get(contractName)
	if !ok {
		return nil, fmt.Errorf("cannot bind tool: contract %q not registered", contractName)
	}
	return NewFuncTool(
		contract.Name,
		contract.Description,
		contract.InputSchema(),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			return invoker.Invoke(ctx, contract.Name, args)
		},
	), nil
}

// MustBindFlow binds a flow-backed tool and panics on error. Bindings
// are wired at startup, so a failure here is a configuration bug.
func MustBindFlow(invoker Invoker, contractName string) Tool {
	t, err := BindFlow(invoker, contractName)
	if err != nil {
		panic(err)
	}
	return t
}
