// Package schema defines the input/output contracts that gate every
// generative flow. A contract names an operation, declares its input
// fields with validation rules, and carries the JSON schema its output
// must conform to. Invocations validate against exactly one contract
// before any provider call is made.
package schema

import (
	"fmt"
	"sort"
	"sync"
)

type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
)

// FieldSpec declares one input field and its validation rules.
type FieldSpec struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	MinLength   int       `json:"minLength,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Contract pairs a named operation with its input field specs and
// output JSON schema.
type Contract struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Input       []FieldSpec    `json:"input"`
	Output      map[string]any `json:"output,omitempty"`
}

// Field returns the spec for a named input field.
func (c *Contract) Field(name string) (FieldSpec, bool) {
	for _, f := range c.Input {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// InputSchema renders the input field specs as a JSON schema object,
// used both for tool declarations handed to the model and for
// validating model-supplied tool arguments.
func (c *Contract) InputSchema() map[string]any {
	properties := map[string]any{}
	required := []string{}
	for _, f := range c.Input {
		prop := map[string]any{"type": string(f.Type)}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if f.MinLength > 0 {
			prop["minLength"] = f.MinLength
		}
		if len(f.Enum) > 0 {
			enum := make([]any, 0, len(f.Enum))
			for _, v := range f.Enum {
				enum = append(enum, v)
			}
			prop["enum"] = enum
		}
		properties[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

var (
	mu        sync.RWMutex
	contracts = map[string]*Contract{}
)

// Register adds a contract to the global registry.
func Register(c *Contract) error {
	if c == nil {
		return fmt.Errorf("contract is nil")
	}
	if c.Name == "" {
		return fmt.Errorf("contract name is required")
	}
	for _, f := range c.Input {
		if f.Name == "" {
			return fmt.Errorf("contract %q has an unnamed input field", c.Name)
		}
		if f.Type == "" {
			return fmt.Errorf("contract %q field %q has no type", c.Name, f.Name)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := contracts[c.Name]; exists {
		return fmt.Errorf("contract %q already registered", c.Name)
	}
	contracts[c.Name] = c
	return nil
}

// MustRegister registers a contract and panics on error.
func MustRegister(c *Contract) {
	if err := Register(c); err != nil {
		panic(err)
	}
}

// Get returns a contract by name.
func Get(name string) (*Contract, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := contracts[name]
	return c, ok
}

// Names returns all registered contract names sorted alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(contracts))
	for name := range contracts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reset clears the registry. Intended for tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	contracts = map[string]*Contract{}
}
