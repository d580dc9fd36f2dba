package rpdextract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/brunobiangulo/rpdextract/llm"
	"github.com/brunobiangulo/rpdextract/parser"
)

// ProviderNone disables the completion service; every field group is then
// extracted with patterns.
const ProviderNone = "none"

// Config holds all configuration for the Processor.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to <DBName>.db inside StorageDir.
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`

	// DBName is the database file name without extension.
	DBName string `json:"db_name" yaml:"db_name" mapstructure:"db_name"`

	// StorageDir selects where the database lives when DBPath is empty:
	// "home" (~/.rpdextract/), "local" (working dir) or "none" to run
	// without persistence.
	StorageDir string `json:"storage_dir" yaml:"storage_dir" mapstructure:"storage_dir"`

	LLM llm.Config `json:"llm" yaml:"llm" mapstructure:"llm"`

	// ExtractionConcurrency bounds field groups extracted at once per file.
	ExtractionConcurrency int `json:"extraction_concurrency" yaml:"extraction_concurrency" mapstructure:"extraction_concurrency"`
	// BatchConcurrency bounds files processed at once by ProcessFiles.
	BatchConcurrency int `json:"batch_concurrency" yaml:"batch_concurrency" mapstructure:"batch_concurrency"`

	Cache CacheConfig `json:"cache" yaml:"cache" mapstructure:"cache"`

	MaxFileSizeMB  int      `json:"max_file_size_mb" yaml:"max_file_size_mb" mapstructure:"max_file_size_mb"`
	AllowedFormats []string `json:"allowed_formats" yaml:"allowed_formats" mapstructure:"allowed_formats"`

	// External parsing for legacy formats
	LlamaParse *parser.LlamaParseConfig `json:"llamaparse,omitempty" yaml:"llamaparse,omitempty" mapstructure:"llamaparse"`

	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFile  string `json:"log_file" yaml:"log_file" mapstructure:"log_file"`
}

// CacheConfig configures the completion and parse caches.
type CacheConfig struct {
	Enabled    bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	TTLSeconds int  `json:"ttl_seconds" yaml:"ttl_seconds" mapstructure:"ttl_seconds"`
	MaxEntries int  `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`
	// Persistent backs the in-memory cache with the SQLite store.
	Persistent bool `json:"persistent" yaml:"persistent" mapstructure:"persistent"`
}

var knownFormats = []string{"pdf", "docx", "doc", "xlsx", "xls", "txt"}

// DefaultConfig returns a Config for a local Ollama model with the
// database in ~/.rpdextract/rpdextract.db.
func DefaultConfig() Config {
	return Config{
		DBName:     "rpdextract",
		StorageDir: "home",
		LLM: llm.Config{
			Provider:       "ollama",
			Model:          "llama3.1:8b",
			BaseURL:        "http://localhost:11434",
			TimeoutSeconds: 300,
			MaxRetries:     4,
		},
		ExtractionConcurrency: 4,
		BatchConcurrency:      2,
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 3600,
			MaxEntries: 1000,
			Persistent: true,
		},
		MaxFileSizeMB:  50,
		AllowedFormats: slices.Clone(knownFormats),
		LogLevel:       "info",
	}
}

// LoadConfig reads configuration from path (or rpdextract.yaml in the
// working directory or ~/.rpdextract when path is empty) on top of
// DefaultConfig. RPD_-prefixed environment variables override both, with
// nested keys joined by underscores (RPD_LLM_PROVIDER).
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("RPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rpdextract")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.rpdextract")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.LlamaParse != nil && cfg.LlamaParse.APIKey == "" {
		cfg.LlamaParse = nil
	}
	return cfg, nil
}

// setDefaults registers every key so that environment overrides apply
// even when no config file mentions them.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("db_name", d.DBName)
	v.SetDefault("storage_dir", d.StorageDir)
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.timeout_seconds", d.LLM.TimeoutSeconds)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("extraction_concurrency", d.ExtractionConcurrency)
	v.SetDefault("batch_concurrency", d.BatchConcurrency)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.persistent", d.Cache.Persistent)
	v.SetDefault("max_file_size_mb", d.MaxFileSizeMB)
	v.SetDefault("allowed_formats", d.AllowedFormats)
	v.SetDefault("llamaparse.api_key", "")
	v.SetDefault("llamaparse.base_url", "")
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.LLM.Provider == "" {
		return invalid("llm.provider is required (use %q to disable)", ProviderNone)
	}
	if c.LLM.TimeoutSeconds < 0 {
		return invalid("llm.timeout_seconds must not be negative")
	}
	if c.LLM.MaxRetries < 0 {
		return invalid("llm.max_retries must not be negative")
	}
	if c.ExtractionConcurrency < 1 {
		return invalid("extraction_concurrency must be at least 1")
	}
	if c.BatchConcurrency < 1 {
		return invalid("batch_concurrency must be at least 1")
	}
	if c.Cache.TTLSeconds < 0 {
		return invalid("cache.ttl_seconds must not be negative")
	}
	if c.Cache.Enabled && c.Cache.MaxEntries < 1 {
		return invalid("cache.max_entries must be at least 1")
	}
	if c.MaxFileSizeMB < 1 {
		return invalid("max_file_size_mb must be at least 1")
	}
	if len(c.AllowedFormats) == 0 {
		return invalid("allowed_formats must not be empty")
	}
	for _, f := range c.AllowedFormats {
		if !slices.Contains(knownFormats, normalizeFormat(f)) {
			return invalid("allowed_formats: unknown format %q", f)
		}
	}
	switch c.StorageDir {
	case "", "home", "local", "cwd", "none":
	default:
		return invalid("storage_dir must be home, local or none, got %q", c.StorageDir)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// resolveDBPath computes the database path. An empty result means no
// persistence.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "rpdextract"
	}

	switch c.StorageDir {
	case "none":
		return ""
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".rpdextract", name+".db")
	}
}

func normalizeFormat(f string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(f)), ".")
}
