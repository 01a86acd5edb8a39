package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
)

// Backend types.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Source types.
const (
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// Project config file names, in lookup order.
var projectConfigNames = []string{".gpsearch.yaml", ".gpsearch.yml"}

// Config represents the complete gpsearch configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	DataDir string        `yaml:"data_dir" json:"data_dir"`
	Backend BackendConfig `yaml:"backend" json:"backend"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Source  SourceConfig  `yaml:"source" json:"source"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

// BackendConfig configures the backing store.
type BackendConfig struct {
	// Type is "redis" (default) or "memory".
	Type     string `yaml:"type" json:"type"`
	Addr     string `yaml:"addr" json:"addr"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"-"`
	DB       int    `yaml:"db" json:"db"`

	// Namespace is prepended to every document key and index prefix so several
	// sites can share one Redis.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`

	// Timeouts as Go durations ("5s", "500ms"). Empty uses the client default.
	DialTimeout  string `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`
	ReadTimeout  string `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout string `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
}

// IndexConfig names the search index.
type IndexConfig struct {
	Name   string `yaml:"name" json:"name"`
	Prefix string `yaml:"prefix" json:"prefix"`
}

// SearchConfig configures query defaults.
type SearchConfig struct {
	PageLength         int    `yaml:"page_length" json:"page_length"`
	Highlight          bool   `yaml:"highlight" json:"highlight"`
	CacheSize          int    `yaml:"cache_size" json:"cache_size"` // 0 disables the result cache
	CacheTTL           string `yaml:"cache_ttl" json:"cache_ttl"`
	SpellcheckDistance int    `yaml:"spellcheck_distance" json:"spellcheck_distance"`
}

// SourceConfig configures the site database records are read from.
type SourceConfig struct {
	// Type is "sqlite", "postgres" or empty when no source is configured.
	Type          string `yaml:"type,omitempty" json:"type,omitempty"`
	DSN           string `yaml:"dsn,omitempty" json:"-"`
	Workers       int    `yaml:"workers" json:"workers"`
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport   string `yaml:"transport" json:"transport"`
	LogLevel    string `yaml:"log_level" json:"log_level"`
	MetricsAddr string `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	return &Config{
		Version: 1,
		DataDir: defaultDataDir(),
		Backend: BackendConfig{
			Type:        BackendRedis,
			Addr:        "localhost:6379",
			DialTimeout: "5s",
			ReadTimeout: "3s",
		},
		Index: IndexConfig{
			Name:   "gameplan_search",
			Prefix: "search_doc",
		},
		Search: SearchConfig{
			PageLength:         10,
			Highlight:          true,
			CacheSize:          256,
			CacheTTL:           "5s",
			SpellcheckDistance: 1,
		},
		Source: SourceConfig{
			Workers:       workers,
			WatchDebounce: "2s",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// defaultDataDir returns ~/.gpsearch, where the reindex lock lives.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".gpsearch")
	}
	return filepath.Join(home, ".gpsearch")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/gpsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/gpsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gpsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "gpsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "gpsearch", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// ProjectConfigPath returns the project config file in dir, or "" if there is none.
func ProjectConfigPath(dir string) string {
	for _, name := range projectConfigNames {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return ""
}

// Load loads configuration for the project in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/gpsearch/config.yaml)
//  3. Project config (.gpsearch.yaml in dir)
//  4. .env in dir (never overrides variables already set)
//  5. Environment variables (GPSEARCH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if p := GetUserConfigPath(); fileExists(p) {
		if err := cfg.loadYAML(p); err != nil {
			return nil, gperrors.New(gperrors.ErrCodeConfigInvalid, "failed to load user config: "+err.Error(), err).
				WithDetail("path", p)
		}
	}

	if p := ProjectConfigPath(dir); p != "" {
		if err := cfg.loadYAML(p); err != nil {
			return nil, gperrors.New(gperrors.ErrCodeConfigInvalid, "failed to load project config: "+err.Error(), err).
				WithDetail("path", p)
		}
	}

	if p := filepath.Join(dir, ".env"); fileExists(p) {
		if err := godotenv.Load(p); err != nil {
			return nil, gperrors.New(gperrors.ErrCodeConfigInvalid, "failed to load .env: "+err.Error(), err).
				WithDetail("path", p)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, gperrors.New(gperrors.ErrCodeConfigInvalid, "invalid configuration: "+err.Error(), err).
			WithSuggestion("Run 'gpsearch config show' to inspect the effective configuration.")
	}

	return cfg, nil
}

// LoadFile reads a single config file over the defaults, without environment
// overrides or validation.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes a YAML file over c. Keys absent from the file keep their
// current values, so explicit false and zero values are honored.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies GPSEARCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	var firstErr error
	num := func(name string, dst *int) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			if firstErr == nil {
				firstErr = gperrors.New(gperrors.ErrCodeConfigInvalid,
					fmt.Sprintf("%s must be an integer, got %q", name, v), err)
			}
			return
		}
		*dst = n
	}

	str("GPSEARCH_DATA_DIR", &c.DataDir)

	str("GPSEARCH_BACKEND", &c.Backend.Type)
	str("GPSEARCH_REDIS_ADDR", &c.Backend.Addr)
	str("GPSEARCH_REDIS_USERNAME", &c.Backend.Username)
	str("GPSEARCH_REDIS_PASSWORD", &c.Backend.Password)
	num("GPSEARCH_REDIS_DB", &c.Backend.DB)
	str("GPSEARCH_NAMESPACE", &c.Backend.Namespace)

	str("GPSEARCH_INDEX_NAME", &c.Index.Name)
	str("GPSEARCH_INDEX_PREFIX", &c.Index.Prefix)

	num("GPSEARCH_PAGE_LENGTH", &c.Search.PageLength)
	num("GPSEARCH_CACHE_SIZE", &c.Search.CacheSize)
	str("GPSEARCH_CACHE_TTL", &c.Search.CacheTTL)
	num("GPSEARCH_SPELLCHECK_DISTANCE", &c.Search.SpellcheckDistance)
	if v := os.Getenv("GPSEARCH_HIGHLIGHT"); v != "" {
		c.Search.Highlight = strings.ToLower(v) == "true" || v == "1"
	}

	str("GPSEARCH_SOURCE_TYPE", &c.Source.Type)
	str("GPSEARCH_SOURCE_DSN", &c.Source.DSN)
	num("GPSEARCH_WORKERS", &c.Source.Workers)
	str("GPSEARCH_WATCH_DEBOUNCE", &c.Source.WatchDebounce)

	str("GPSEARCH_TRANSPORT", &c.Server.Transport)
	str("GPSEARCH_LOG_LEVEL", &c.Server.LogLevel)
	str("GPSEARCH_METRICS_ADDR", &c.Server.MetricsAddr)

	return firstErr
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Backend.Type) {
	case BackendRedis:
		if c.Backend.Addr == "" {
			return fmt.Errorf("backend.addr is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("backend.type must be 'redis' or 'memory', got %s", c.Backend.Type)
	}
	if c.Backend.DB < 0 {
		return fmt.Errorf("backend.db must be non-negative, got %d", c.Backend.DB)
	}
	for name, v := range map[string]string{
		"backend.dial_timeout":  c.Backend.DialTimeout,
		"backend.read_timeout":  c.Backend.ReadTimeout,
		"backend.write_timeout": c.Backend.WriteTimeout,
		"search.cache_ttl":      c.Search.CacheTTL,
		"source.watch_debounce": c.Source.WatchDebounce,
	} {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("%s must be a duration, got %s", name, v)
		}
	}

	if c.Index.Name == "" {
		return fmt.Errorf("index.name is required")
	}
	if c.Index.Prefix == "" {
		return fmt.Errorf("index.prefix is required")
	}

	if c.Search.PageLength < 1 || c.Search.PageLength > 1000 {
		return fmt.Errorf("search.page_length must be between 1 and 1000, got %d", c.Search.PageLength)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be non-negative, got %d", c.Search.CacheSize)
	}
	if c.Search.SpellcheckDistance < 1 || c.Search.SpellcheckDistance > 4 {
		return fmt.Errorf("search.spellcheck_distance must be between 1 and 4, got %d", c.Search.SpellcheckDistance)
	}

	switch strings.ToLower(c.Source.Type) {
	case "":
	case SourceSQLite, SourcePostgres:
		if c.Source.DSN == "" {
			return fmt.Errorf("source.dsn is required when source.type is %s", c.Source.Type)
		}
	default:
		return fmt.Errorf("source.type must be 'sqlite', 'postgres', or empty, got %s", c.Source.Type)
	}
	if c.Source.Workers < 1 {
		return fmt.Errorf("source.workers must be at least 1, got %d", c.Source.Workers)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// Timeouts returns the parsed backend timeouts. Invalid values are zero;
// Validate reports them.
func (b BackendConfig) Timeouts() (dial, read, write time.Duration) {
	dial, _ = parseDuration(b.DialTimeout)
	read, _ = parseDuration(b.ReadTimeout)
	write, _ = parseDuration(b.WriteTimeout)
	return dial, read, write
}

// CacheExpiry returns the parsed result cache TTL.
func (s SearchConfig) CacheExpiry() time.Duration {
	d, _ := parseDuration(s.CacheTTL)
	return d
}

// Debounce returns the parsed watch debounce window.
func (s SourceConfig) Debounce() time.Duration {
	d, _ := parseDuration(s.WatchDebounce)
	return d
}

// parseDuration parses a Go duration; empty is zero.
func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return time.ParseDuration(strings.TrimSpace(s))
}

// WriteYAML writes the configuration to a YAML file, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Backend.Password != "" {
		out.Backend.Password = "********"
	}
	if out.Source.DSN != "" {
		out.Source.DSN = redactDSN(out.Source.DSN)
	}
	return &out
}

// redactDSN masks the password of a URL-style DSN.
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPass := strings.Cut(userinfo, ":")
	if !hasPass {
		return dsn
	}
	return scheme + "://" + user + ":********@" + host
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
