package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	recallerr "github.com/viant/recall/errors"
)

// Default file names under DataDir.
const (
	DefaultSQLiteFile = "memories.sqlite3"
	DefaultIndexFile  = "memories.faiss"
)

// DefaultOllamaHost is used when neither the config nor OLLAMA_HOST names a
// server.
const DefaultOllamaHost = "http://localhost:11434"

// OllamaHost resolves an Ollama server address: host, then OLLAMA_HOST, then
// DefaultOllamaHost.
func OllamaHost(host string) string {
	if host != "" {
		return host
	}
	if env := os.Getenv("OLLAMA_HOST"); env != "" {
		return env
	}
	return DefaultOllamaHost
}

// Config is the top-level recall configuration.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Index     IndexConfig     `mapstructure:"index"`
	Embedder  EmbedderConfig  `mapstructure:"embedder"`
	Captioner CaptionerConfig `mapstructure:"captioner"`
	Log       LogConfig       `mapstructure:"log"`
}

// StorageConfig locates the backing files and controls consistency features.
type StorageConfig struct {
	SQLitePath    string `mapstructure:"sqlite_path"`
	IndexPath     string `mapstructure:"index_path"`
	Journal       bool   `mapstructure:"journal"`
	CacheRecords  bool   `mapstructure:"cache_records"`
	AutoReconcile bool   `mapstructure:"auto_reconcile"`
}

// IndexConfig controls the vector index.
type IndexConfig struct {
	Dimension int    `mapstructure:"dimension"`
	Kind      string `mapstructure:"kind"`
}

// EmbedderConfig selects the text embedding backend.
type EmbedderConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	Host     string `mapstructure:"host"`
	APIKey   string `mapstructure:"api_key"`
	CacheDir string `mapstructure:"cache_dir"`
}

// CaptionerConfig selects the image captioning backend.
type CaptionerConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	Host     string `mapstructure:"host"`
	Prompt   string `mapstructure:"prompt"`
}

// LogConfig controls the CLI log handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("storage.journal", true)
	v.SetDefault("storage.cache_records", true)
	v.SetDefault("storage.auto_reconcile", true)
	v.SetDefault("index.dimension", 384)
	v.SetDefault("index.kind", "flat")
	v.SetDefault("embedder.provider", "fastembed")
	v.SetDefault("embedder.model", "")
	v.SetDefault("embedder.host", "")
	v.SetDefault("embedder.cache_dir", "")
	v.SetDefault("captioner.provider", "ollama")
	v.SetDefault("captioner.model", "llava")
	v.SetDefault("captioner.host", "")
	v.SetDefault("captioner.prompt", "Describe this image in one short sentence.")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// SetupEnv binds environment variables: RECALL_ prefixed keys plus the
// SQLITE_DB_PATH, FAISS_DB_PATH and OPENAI_API_KEY overrides.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("storage.sqlite_path", "RECALL_STORAGE_SQLITE_PATH", "SQLITE_DB_PATH")
	_ = v.BindEnv("storage.index_path", "RECALL_STORAGE_INDEX_PATH", "FAISS_DB_PATH")
	_ = v.BindEnv("embedder.api_key", "RECALL_EMBEDDER_API_KEY", "OPENAI_API_KEY")
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, recallerr.Errorf(recallerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes, completes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, recallerr.Errorf(recallerr.CodeConfigLoadReadFailure, "unmarshalling config: %w", err)
	}
	cfg.resolvePaths()

	if err := recallerr.Join(cfg.Validate()...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePaths places unset backing files under DataDir.
func (c *Config) resolvePaths() {
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = filepath.Join(c.DataDir, DefaultSQLiteFile)
	}
	if c.Storage.IndexPath == "" {
		c.Storage.IndexPath = filepath.Join(c.DataDir, DefaultIndexFile)
	}
}

// Validate checks the configuration, collecting every issue rather than
// stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	if c.Storage.SQLitePath == "" {
		errs = append(errs, invalid("config: storage.sqlite_path must not be empty"))
	}
	if c.Storage.IndexPath == "" {
		errs = append(errs, invalid("config: storage.index_path must not be empty"))
	}
	if c.Storage.SQLitePath != "" && c.Storage.SQLitePath == c.Storage.IndexPath {
		errs = append(errs, invalid("config: storage.sqlite_path and storage.index_path must differ, both are %q",
			c.Storage.SQLitePath))
	}

	if c.Index.Dimension <= 0 {
		errs = append(errs, invalid("config: index.dimension must be greater than 0, got %d", c.Index.Dimension))
	}
	errs = append(errs, oneOf("index.kind", c.Index.Kind, "flat", "vptree")...)
	errs = append(errs, oneOf("embedder.provider", c.Embedder.Provider, "fastembed", "ollama", "openai", "hash")...)
	errs = append(errs, oneOf("captioner.provider", c.Captioner.Provider, "ollama", "none")...)
	errs = append(errs, oneOf("log.level", strings.ToLower(c.Log.Level), "debug", "info", "warn", "error")...)
	errs = append(errs, oneOf("log.format", c.Log.Format, "text", "json")...)

	if c.Embedder.Provider == "openai" && c.Embedder.APIKey == "" {
		errs = append(errs, invalid("config: embedder.api_key must be set for provider openai"))
	}
	if c.Captioner.Provider == "ollama" && c.Captioner.Model == "" {
		errs = append(errs, invalid("config: captioner.model must not be empty for provider ollama"))
	}

	return errs
}

func oneOf(key, value string, allowed ...string) []error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return []error{invalid("config: %s must be one of [%s], got %q", key, strings.Join(allowed, ", "), value)}
}

func invalid(format string, args ...any) error {
	return recallerr.Errorf(recallerr.CodeConfigValidateInvalidValue, format, args...)
}
