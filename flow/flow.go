// Package flow defines and runs the marketplace's generative
// operations. A flow binds a contract, a prompt template, and a safety
// policy to one of three invocation kinds: structured text generation,
// image synthesis, or a tool-augmented dialogue.
package flow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/artisanhub/craft-ai-bridge/safety"
	"github.com/artisanhub/craft-ai-bridge/schema"
)

type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindDialogue Kind = "dialogue"
)

// Definition describes one registered flow.
type Definition struct {
	Name     Name
	Kind     Kind
	Contract *schema.Contract
	Policy   safety.Policy
	// EmptyMessage is the user-facing message when the provider returns
	// no usable payload for this flow.
	EmptyMessage string
	// SystemPrompt and Tools apply to dialogue flows only.
	SystemPrompt string
	Tools        []Name
}

// Name identifies a flow; it always equals its contract's name.
type Name = string

var (
	mu    sync.RWMutex
	flows = map[Name]*Definition{}
)

// Register adds a flow definition to the global registry.
func Register(d *Definition) error {
	if d == nil {
		return fmt.Errorf("flow definition is nil")
	}
	if d.Contract == nil {
		return fmt.Errorf("flow definition has no contract")
	}
	if d.Name == "" {
		d.Name = d.Contract.Name
	}
	if d.Name != d.Contract.Name {
		return fmt.Errorf("flow name %q does not match contract %q", d.Name, d.Contract.Name)
	}
	if d.Kind == "" {
		d.Kind = KindText
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := flows[d.Name]; exists {
		return fmt.Errorf("flow %q already registered", d.Name)
	}
	flows[d.Name] = d
	return nil
}

// MustRegister registers a flow and panics on error.
func MustRegister(d *Definition) {
	if err := Register(d); err != nil {
		panic(err)
	}
}

// Get returns a flow definition by name.
func Get(name Name) (*Definition, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := flows[name]
	return d, ok
}

// Names returns all registered flow names sorted alphabetically.
func Names() []Name {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Name, 0, len(flows))
	for name := range flows {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reset clears the registry. Intended for tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	flows = map[Name]*Definition{}
}
