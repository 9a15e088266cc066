/*
Package config manages TOML config for autocompleted services.
*/
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ferrwyn/autocompleted/internal/utils"
)

// LocalConfigName is the working-directory config file checked when no
// explicit path is given.
const LocalConfigName = "autocompleted.toml"

// envPrefix and envSep build the override names, e.g.
// AUTOCOMPLETED__SERVER__ADDR.
const (
	envPrefix = "AUTOCOMPLETED"
	envSep    = "__"
)

// Config holds the entire config structure
type Config struct {
	Server ServerConfig `toml:"server"`
	Limits LimitsConfig `toml:"limits"`
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig has serving surface options shared by HTTP and stdio modes.
type ServerConfig struct {
	Addr     string `toml:"addr"`
	MinQuery int    `toml:"min_query"`
	MaxQuery int    `toml:"max_query"`
	MaxLimit int    `toml:"max_limit"`
}

// LimitsConfig holds the query fan-out knobs: how many rows each matching
// stage fetches and how long the final answer is.
type LimitsConfig struct {
	Direct int `toml:"direct"`
	Alias  int `toml:"alias"`
	Final  int `toml:"final"`
}

// StoreConfig selects and tunes the taxonomy backend.
type StoreConfig struct {
	Backend        string `toml:"backend"`
	Path           string `toml:"path"`
	QueryTimeoutMS int    `toml:"query_timeout_ms"`
	TagsCSV        string `toml:"tags_csv"`
	AliasesCSV     string `toml:"aliases_csv"`
}

// CacheConfig tunes the serialized response cache.
type CacheConfig struct {
	Enabled    bool `toml:"enabled"`
	MaxEntries int  `toml:"max_entries"`
	TTLMinutes int  `toml:"ttl_minutes"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// QueryTimeout returns the per-read ceiling as a duration.
func (s StoreConfig) QueryTimeout() time.Duration {
	return time.Duration(s.QueryTimeoutMS) * time.Millisecond
}

// TTL returns the cache entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// GetConfigDir returns the config directory with fallback priority:
// 1. $XDG_CONFIG_HOME/autocompleted
// 2. ~/.config/autocompleted
// 3. Current executable dir
func GetConfigDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		xdgPath := filepath.Join(configHome, "autocompleted")
		if result := utils.CheckDirStatus(xdgPath); result.Writable {
			return xdgPath, nil
		}
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "autocompleted")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from the -config flag
// 2. ./autocompleted.toml in the working directory
// 3. Default path: [config dir]/autocompleted/config.toml
// 4. Builtin defaults
// Environment overrides and validation apply to whichever source won.
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return finalize(config), customConfigPath, nil
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying local path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying local path...", customConfigPath, statErr)
		}
	}

	if utils.FileExists(LocalConfigName) {
		config, err := LoadConfig(LocalConfigName)
		if err == nil {
			log.Debugf("Loaded config from local path: %s", LocalConfigName)
			return finalize(config), utils.GetAbsolutePath(LocalConfigName), nil
		}
		log.Warnf("Failed to load local config %s: %v. Trying default path...", LocalConfigName, err)
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using builtin defaults...", err)
		return finalize(DefaultConfig()), "", nil
	}
	if utils.FileExists(defaultPath) {
		config, err := LoadConfig(defaultPath)
		if err == nil {
			log.Debugf("Loaded config from default path: %s", defaultPath)
			return finalize(config), defaultPath, nil
		}
		log.Warnf("Failed to load config at default path %s: %v. Using builtin defaults...", defaultPath, err)
	}
	return finalize(DefaultConfig()), "", nil
}

func finalize(config *Config) *Config {
	applyEnvOverrides(config)
	config.Validate()
	return config
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     "0.0.0.0:8420",
			MinQuery: 3,
			MaxQuery: 100,
			MaxLimit: 50,
		},
		Limits: LimitsConfig{
			Direct: 10,
			Alias:  20,
			Final:  10,
		},
		Store: StoreConfig{
			Backend:        "sqlite",
			Path:           filepath.Join("data", "tags.db"),
			QueryTimeoutMS: 3000,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 15000,
			TTLMinutes: 360,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse salvages what it can from a malformed TOML file; keys
// that parse are applied, everything else keeps its default.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if serverSection, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(serverSection, &config.Server)
	}
	if limitsSection, ok := utils.ExtractSection(tempConfig, "limits"); ok {
		extractLimitsConfig(limitsSection, &config.Limits)
	}
	if storeSection, ok := utils.ExtractSection(tempConfig, "store"); ok {
		extractStoreConfig(storeSection, &config.Store)
	}
	if cacheSection, ok := utils.ExtractSection(tempConfig, "cache"); ok {
		extractCacheConfig(cacheSection, &config.Cache)
	}
	if logSection, ok := utils.ExtractSection(tempConfig, "log"); ok {
		extractLogConfig(logSection, &config.Log)
	}
	return config, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractString(data, "addr"); ok {
		server.Addr = val
	}
	if val, ok := utils.ExtractInt64(data, "min_query"); ok {
		server.MinQuery = val
	}
	if val, ok := utils.ExtractInt64(data, "max_query"); ok {
		server.MaxQuery = val
	}
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
}

func extractLimitsConfig(data map[string]any, limits *LimitsConfig) {
	if val, ok := utils.ExtractInt64(data, "direct"); ok {
		limits.Direct = val
	}
	if val, ok := utils.ExtractInt64(data, "alias"); ok {
		limits.Alias = val
	}
	if val, ok := utils.ExtractInt64(data, "final"); ok {
		limits.Final = val
	}
}

func extractStoreConfig(data map[string]any, store *StoreConfig) {
	if val, ok := utils.ExtractString(data, "backend"); ok {
		store.Backend = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		store.Path = val
	}
	if val, ok := utils.ExtractInt64(data, "query_timeout_ms"); ok {
		store.QueryTimeoutMS = val
	}
	if val, ok := utils.ExtractString(data, "tags_csv"); ok {
		store.TagsCSV = val
	}
	if val, ok := utils.ExtractString(data, "aliases_csv"); ok {
		store.AliasesCSV = val
	}
}

func extractCacheConfig(data map[string]any, cache *CacheConfig) {
	if val, ok := utils.ExtractBool(data, "enabled"); ok {
		cache.Enabled = val
	}
	if val, ok := utils.ExtractInt64(data, "max_entries"); ok {
		cache.MaxEntries = val
	}
	if val, ok := utils.ExtractInt64(data, "ttl_minutes"); ok {
		cache.TTLMinutes = val
	}
}

func extractLogConfig(data map[string]any, logc *LogConfig) {
	if val, ok := utils.ExtractString(data, "level"); ok {
		logc.Level = val
	}
	if val, ok := utils.ExtractString(data, "format"); ok {
		logc.Format = val
	}
}

// applyEnvOverrides applies AUTOCOMPLETED__SECTION__KEY variables on top of
// whatever the file provided. Flags still win over these.
func applyEnvOverrides(c *Config) {
	envString("SERVER", "ADDR", &c.Server.Addr)
	envInt("SERVER", "MIN_QUERY", &c.Server.MinQuery)
	envInt("SERVER", "MAX_QUERY", &c.Server.MaxQuery)
	envInt("SERVER", "MAX_LIMIT", &c.Server.MaxLimit)

	envInt("LIMITS", "DIRECT", &c.Limits.Direct)
	envInt("LIMITS", "ALIAS", &c.Limits.Alias)
	envInt("LIMITS", "FINAL", &c.Limits.Final)

	envString("STORE", "BACKEND", &c.Store.Backend)
	envString("STORE", "PATH", &c.Store.Path)
	envInt("STORE", "QUERY_TIMEOUT_MS", &c.Store.QueryTimeoutMS)
	envString("STORE", "TAGS_CSV", &c.Store.TagsCSV)
	envString("STORE", "ALIASES_CSV", &c.Store.AliasesCSV)

	envBool("CACHE", "ENABLED", &c.Cache.Enabled)
	envInt("CACHE", "MAX_ENTRIES", &c.Cache.MaxEntries)
	envInt("CACHE", "TTL_MINUTES", &c.Cache.TTLMinutes)

	envString("LOG", "LEVEL", &c.Log.Level)
	envString("LOG", "FORMAT", &c.Log.Format)
}

func envName(section, key string) string {
	return envPrefix + envSep + section + envSep + key
}

func envString(section, key string, dst *string) {
	if val, ok := os.LookupEnv(envName(section, key)); ok {
		*dst = val
	}
}

func envInt(section, key string, dst *int) {
	name := envName(section, key)
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Warnf("Ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = n
}

func envBool(section, key string, dst *bool) {
	name := envName(section, key)
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Warnf("Ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = b
}

// Validate clamps out-of-range values back to their defaults with a warning
// instead of failing startup.
func (c *Config) Validate() {
	def := DefaultConfig()

	if c.Server.MinQuery < 1 {
		log.Warnf("server.min_query %d out of range, using %d", c.Server.MinQuery, def.Server.MinQuery)
		c.Server.MinQuery = def.Server.MinQuery
	}
	if c.Server.MaxQuery < c.Server.MinQuery {
		log.Warnf("server.max_query %d below min_query, using %d", c.Server.MaxQuery, def.Server.MaxQuery)
		c.Server.MaxQuery = def.Server.MaxQuery
	}
	if c.Server.MaxLimit < 1 {
		log.Warnf("server.max_limit %d out of range, using %d", c.Server.MaxLimit, def.Server.MaxLimit)
		c.Server.MaxLimit = def.Server.MaxLimit
	}

	if c.Limits.Direct < 1 {
		log.Warnf("limits.direct %d out of range, using %d", c.Limits.Direct, def.Limits.Direct)
		c.Limits.Direct = def.Limits.Direct
	}
	if c.Limits.Alias < 1 {
		log.Warnf("limits.alias %d out of range, using %d", c.Limits.Alias, def.Limits.Alias)
		c.Limits.Alias = def.Limits.Alias
	}
	if c.Limits.Final < 1 {
		log.Warnf("limits.final %d out of range, using %d", c.Limits.Final, def.Limits.Final)
		c.Limits.Final = def.Limits.Final
	}

	switch c.Store.Backend {
	case "sqlite", "memory":
	default:
		log.Warnf("store.backend %q unknown, using %q", c.Store.Backend, def.Store.Backend)
		c.Store.Backend = def.Store.Backend
	}
	if c.Store.QueryTimeoutMS < 1 {
		log.Warnf("store.query_timeout_ms %d out of range, using %d", c.Store.QueryTimeoutMS, def.Store.QueryTimeoutMS)
		c.Store.QueryTimeoutMS = def.Store.QueryTimeoutMS
	}

	if c.Cache.MaxEntries < 1 {
		log.Warnf("cache.max_entries %d out of range, using %d", c.Cache.MaxEntries, def.Cache.MaxEntries)
		c.Cache.MaxEntries = def.Cache.MaxEntries
	}
	if c.Cache.TTLMinutes < 1 {
		log.Warnf("cache.ttl_minutes %d out of range, using %d", c.Cache.TTLMinutes, def.Cache.TTLMinutes)
		c.Cache.TTLMinutes = def.Cache.TTLMinutes
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		log.Warnf("log.level %q unknown, using %q", c.Log.Level, def.Log.Level)
		c.Log.Level = def.Log.Level
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		log.Warnf("log.format %q unknown, using %q", c.Log.Format, def.Log.Format)
		c.Log.Format = def.Log.Format
	}
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Update changes the tunable query knobs and saves to file. Nil pointers
// leave their field untouched.
func (c *Config) Update(configPath string, direct, alias, final, minQuery, maxQuery *int) error {
	if direct != nil {
		c.Limits.Direct = *direct
	}
	if alias != nil {
		c.Limits.Alias = *alias
	}
	if final != nil {
		c.Limits.Final = *final
	}
	if minQuery != nil {
		c.Server.MinQuery = *minQuery
	}
	if maxQuery != nil {
		c.Server.MaxQuery = *maxQuery
	}
	c.Validate()
	if configPath == "" {
		return nil
	}
	return SaveConfig(c, configPath)
}
