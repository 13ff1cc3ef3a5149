// Package config loads docrag configuration from defaults, YAML files, a
// .env file and DOCRAG_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProjectConfigName is the per-directory config file name.
const ProjectConfigName = ".docrag.yaml"

// Config is the complete docrag configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	DataDir    string           `yaml:"data_dir" json:"data_dir"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// ChunkingConfig controls how document text is split.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	Overlap   int `yaml:"overlap" json:"overlap"`
}

// EmbeddingsConfig selects and tunes the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "static" or "ollama".
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	// Workers is the number of sub-batches encoded concurrently.
	Workers int `yaml:"workers" json:"workers"`
	// RequestsPerSecond limits calls to a remote provider. 0 means unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	// CacheSize is the number of query embeddings kept in memory. 0 disables.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// SearchConfig controls query defaults.
type SearchConfig struct {
	DefaultK int `yaml:"default_k" json:"default_k"`
	// Mode is "semantic" or "keyword".
	Mode string `yaml:"mode" json:"mode"`
}

// WatchConfig controls the inbox watcher.
type WatchConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Dir      string   `yaml:"dir" json:"dir"`
	Include  []string `yaml:"include" json:"include"`
	Debounce string   `yaml:"debounce" json:"debounce"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		DataDir: DefaultDataDir(),
		Chunking: ChunkingConfig{
			ChunkSize: 1000,
			Overlap:   200,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "all-minilm",
			Dimensions: 384,
			OllamaHost: "http://localhost:11434",
			BatchSize:  32,
			Workers:    2,
			CacheSize:  1000,
		},
		Search: SearchConfig{
			DefaultK: 5,
			Mode:     "semantic",
		},
		Watch: WatchConfig{
			Include:  []string{"**/*.txt", "**/*.md", "**/*.markdown"},
			Debounce: "500ms",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DefaultDataDir returns ~/.docrag, falling back to the temp directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docrag")
	}
	return filepath.Join(home, ".docrag")
}

// GetUserConfigPath returns $XDG_CONFIG_HOME/docrag/config.yaml or
// ~/.config/docrag/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docrag", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docrag", "config.yaml")
	}
	return filepath.Join(home, ".config", "docrag", "config.yaml")
}

// Load builds the configuration for dir. Precedence, lowest first: defaults,
// user config, project .docrag.yaml, dir/.env, DOCRAG_* environment.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if projectPath := filepath.Join(dir, ProjectConfigName); fileExists(projectPath) {
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	}

	// godotenv.Load never overrides variables already set in the process.
	if envPath := filepath.Join(dir, ".env"); fileExists(envPath) {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.DataDir = expandHome(cfg.DataDir)
	if cfg.Watch.Dir != "" {
		cfg.Watch.Dir = expandHome(cfg.Watch.Dir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML decodes path over the current values, so keys absent from the
// file keep their previous value.
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

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCRAG_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("DOCRAG_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("DOCRAG_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("DOCRAG_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("DOCRAG_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.ChunkSize = n
		}
	}
	// Zero is a valid overlap, so it can only be expressed through the env.
	if v := os.Getenv("DOCRAG_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.Overlap = n
		}
	}
	if v := os.Getenv("DOCRAG_SEARCH_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.DefaultK = n
		}
	}
	if v := os.Getenv("DOCRAG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.overlap must be non-negative, got %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.overlap (%d) must be smaller than chunking.chunk_size (%d)",
			c.Chunking.Overlap, c.Chunking.ChunkSize)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "static", "ollama":
	default:
		return fmt.Errorf("embeddings.provider must be 'static' or 'ollama', got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions < 0 {
		return fmt.Errorf("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize < 0 || c.Embeddings.Workers < 0 || c.Embeddings.CacheSize < 0 {
		return fmt.Errorf("embeddings batch_size, workers and cache_size must be non-negative")
	}
	if c.Embeddings.RequestsPerSecond < 0 {
		return fmt.Errorf("embeddings.requests_per_second must be non-negative, got %f", c.Embeddings.RequestsPerSecond)
	}

	if c.Search.DefaultK <= 0 {
		return fmt.Errorf("search.default_k must be positive, got %d", c.Search.DefaultK)
	}
	switch strings.ToLower(c.Search.Mode) {
	case "semantic", "keyword":
	default:
		return fmt.Errorf("search.mode must be 'semantic' or 'keyword', got %q", c.Search.Mode)
	}

	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("watch.debounce is not a duration: %w", err)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %q", c.Logging.Level)
	}
	return nil
}

// DebounceDuration returns the parsed watch debounce window.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// DocumentsDir is where uploaded files are copied.
func (c *Config) DocumentsDir() string {
	return filepath.Join(c.DataDir, "documents")
}

// DatabasePath is the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "docrag.db")
}

// KeywordIndexPath is the bleve index directory.
func (c *Config) KeywordIndexPath() string {
	return filepath.Join(c.DataDir, "keyword.bleve")
}

// InboxDir is the directory the watcher observes.
func (c *Config) InboxDir() string {
	if c.Watch.Dir != "" {
		return c.Watch.Dir
	}
	return filepath.Join(c.DataDir, "inbox")
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
