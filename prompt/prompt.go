// Package prompt holds the instruction templates rendered for each
// generative flow. A template is bound to one contract; every
// placeholder must name a field of that contract's input schema, which
// is checked at registration so an unresolved placeholder is a
// configuration error, never a runtime one.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/artisanhub/craft-ai-bridge/schema"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// Template is an ordered sequence of literal text and field
// placeholders written as {{field}}.
type Template struct {
	Contract    string `json:"contract" yaml:"contract"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Text        string `json:"text" yaml:"text"`
}

// Placeholders returns the distinct field names referenced by the
// template, in order of first appearance.
func (t Template) Placeholders() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, match := range tokenPattern.FindAllStringSubmatch(t.Text, -1) {
		key := strings.TrimSpace(match[1])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// Render substitutes each placeholder with the field's string
// representation. Substitution is literal plain-text interpolation.
func (t Template) Render(record schema.Record) string {
	return tokenPattern.ReplaceAllStringFunc(t.Text, func(match string) string {
		parts := tokenPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return record.StringVar(strings.TrimSpace(parts[1]))
	})
}

var (
	mu        sync.RWMutex
	templates = map[string]Template{}
)

// Register binds a template to its contract. The contract must already
// be registered and every placeholder must reference one of its input
// fields.
func Register(t Template) error {
	normalized, err := normalize(t)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := templates[normalized.Contract]; exists {
		return fmt.Errorf("template for contract %q already registered", normalized.Contract)
	}
	templates[normalized.Contract] = normalized
	return nil
}

// MustRegister registers a template and panics on error.
func MustRegister(t Template) {
	if err := Register(t); err != nil {
		panic(err)
	}
}

// Override replaces any existing template for the contract. Used by the
// YAML loader so operators can tune prompts without a redeploy.
func Override(t Template) error {
	normalized, err := normalize(t)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	templates[normalized.Contract] = normalized
	return nil
}

// Resolve returns the template bound to a contract.
func Resolve(contract string) (Template, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := templates[contract]
	return t, ok
}

// Names returns the contracts that have templates, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(templates))
	for name := range templates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reset clears the registry. Intended for tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	templates = map[string]Template{}
}

func normalize(t Template) (Template, error) {
	t.Contract = strings.TrimSpace(t.Contract)
	t.Description = strings.TrimSpace(t.Description)
	t.Text = strings.TrimSpace(t.Text)
	if t.Contract == "" {
		return Template{}, fmt.Errorf("template contract is required")
	}
	if t.Text == "" {
		return Template{}, fmt.Errorf("template for %q has empty text", t.Contract)
	}
	contract, ok := schema.Get(t.Contract)
	if !ok {
		return Template{}, fmt.Errorf("template references unknown contract %q", t.Contract)
	}
	for _, name := range t.Placeholders() {
		if _, ok := contract.Field(name); !ok {
			return Template{}, fmt.Errorf("template for %q references %q, not an input field of the contract", t.Contract, name)
		}
	}
	return t, nil
}
