package policy

import (
	"os"
	"path/filepath"
)

// LoadRegoFiles reads all .rego files from dir, keyed by file name.
// Test files (*_test.rego) are skipped.
func LoadRegoFiles(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	modules := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".rego" {
			continue
		}
		if matched, _ := filepath.Match("*_test.rego", name); matched {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		modules[name] = string(data)
	}
	return modules, nil
}
