package config

import (
	"os"
	"path/filepath"
)

// ResolveDSN picks the database URL for command-line tools: an explicit
// override, then $DATABASE_URL, then the database section of nowgo.yaml in
// configDir (defaults apply if the file is missing).
func ResolveDSN(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v, nil
	}
	cfg := DefaultConfig()
	if err := loadOptional(filepath.Join(configDir, serviceFile), cfg); err != nil {
		return "", err
	}
	return cfg.Database.DSN(), nil
}
