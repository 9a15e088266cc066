package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ferrwyn/autocompleted/internal/utils"
)

// defaultConfigTemplate is what -init-config writes. Values mirror
// DefaultConfig; the comments are the documentation most deployments read.
const defaultConfigTemplate = `# autocompleted configuration

[server]
# Listen address for the HTTP daemon.
addr = "0.0.0.0:8420"
# Raw query byte-length bounds; out-of-range requests get a 400.
min_query = 3
max_query = 100
# Ceiling for per-request result limit overrides.
max_limit = 50

[limits]
# Rows fetched by the direct name matcher.
direct = 10
# Rows fetched by the alias resolver; kept higher than direct because
# deduplication collapses many-to-one alias hits.
alias = 20
# Length of the final ranked answer.
final = 10

[store]
# "sqlite" for deployment, "memory" for development seeding.
backend = "sqlite"
path = "data/tags.db"
# Per-query ceiling in milliseconds.
query_timeout_ms = 3000
# Optional CSV dumps loaded at startup by the memory backend.
tags_csv = ""
aliases_csv = ""

[cache]
enabled = true
max_entries = 15000
# Entry lifetime in minutes.
ttl_minutes = 360

[log]
# debug | info | warn | error
level = "info"
# text | json
format = "text"
`

// InitConfigFile writes the commented default config. With an empty path it
// targets the default location. Refuses to clobber an existing file.
func InitConfigFile(path string) (string, error) {
	if path == "" {
		defaultPath, err := GetDefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determining config path: %w", err)
		}
		path = defaultPath
	}
	if utils.FileExists(path) {
		return "", fmt.Errorf("config file already exists at %s", path)
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}
