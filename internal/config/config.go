// Package config provides configuration loading and structs for the jobnorm tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Lexicon    LexiconConfig    `yaml:"lexicon"`
	Tokenizer  TokenizerConfig  `yaml:"tokenizer"`
	Vectorizer VectorizerConfig `yaml:"vectorizer"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the database location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LexiconConfig holds fuzzy matcher settings and the keyword files loaded at startup.
type LexiconConfig struct {
	CosineCutoff  float64  `yaml:"cosine_cutoff"`
	EditIntensity float64  `yaml:"edit_intensity"`
	Workers       int      `yaml:"workers"`
	KeywordFiles  []string `yaml:"keyword_files"`
}

// TokenizerConfig holds tokenization settings.
type TokenizerConfig struct {
	MinLength int `yaml:"min_length"`
	Workers   int `yaml:"workers"`
	ChunkSize int `yaml:"chunk_size"`
}

// VectorizerConfig holds TF-IDF pruning limits. Values below 1 are fractions of the
// corpus; values of 1 and above are absolute document counts.
type VectorizerConfig struct {
	TitleMaxDF float64 `yaml:"title_max_df"`
	TitleMinDF float64 `yaml:"title_min_df"`
	DescMaxDF  float64 `yaml:"desc_max_df"`
	DescMinDF  float64 `yaml:"desc_min_df"`
}

// ClassifierConfig holds the ensemble prediction threshold.
type ClassifierConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// WatchConfig holds keyword file watch settings.
type WatchConfig struct {
	Enabled    *bool `yaml:"enabled"`
	DebounceMS int   `yaml:"debounce_ms"`
}

// EnabledOrDefault returns whether keyword files are watched; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)
	expandPaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)
	if cwd, err := os.Getwd(); err == nil {
		expandPaths(&cfg, cwd)
	}
	return &cfg
}

func expandPaths(cfg *Config, configDir string) {
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Lexicon.KeywordFiles {
		cfg.Lexicon.KeywordFiles[i] = expandPath(cfg.Lexicon.KeywordFiles[i], configDir)
	}
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
