package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// LoadDir loads template overrides from *.yaml / *.yml files in path.
// A missing directory is not an error; deployments that never tune
// prompts simply run on the builtins.
func LoadDir(path string) (int, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		fullPath := filepath.Join(path, entry.Name())
		tpl, err := loadFile(fullPath)
		if err != nil {
			return loaded, err
		}
		if err := Override(tpl); err != nil {
			return loaded, fmt.Errorf("load template file %q: %w", fullPath, err)
		}
		loaded++
	}
	return loaded, nil
}

func loadFile(path string) (Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read template file %q: %w", path, err)
	}
	var tpl Template
	if err := yaml.Unmarshal(content, &tpl); err != nil {
		return Template{}, fmt.Errorf("decode template file %q: %w", path, err)
	}
	if strings.TrimSpace(tpl.Contract) == "" {
		base := filepath.Base(path)
		tpl.Contract = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return tpl, nil
}
