// Package config handles the global configuration file and cache locations.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/matsen/scry/internal/cache"
)

// Config represents configuration stored in ~/.config/scry/config.yml.
// Every field can also come from the environment; explicit CLI flags win
// over both.
type Config struct {
	ZoteroAPIKey   string `yaml:"zotero_api_key,omitempty"`
	ZoteroUserID   string `yaml:"zotero_user_id,omitempty"`
	OpenAlexMailto string `yaml:"openalex_mailto,omitempty"`
	OllamaURL      string `yaml:"ollama_url,omitempty"`
	OllamaModel    string `yaml:"ollama_model,omitempty"`

	CacheDir     string `yaml:"cache_dir,omitempty"`
	Collection   string `yaml:"collection,omitempty"`
	JournalsFile string `yaml:"journals_file,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "scry"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
	// CacheDirName is the directory name under the user cache dir.
	CacheDirName = "scry"
)

// configCache caches the loaded config.
var configCache *Config

// Path returns the path to the global config file. Respects
// XDG_CONFIG_HOME, defaults to ~/.config/scry/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// Load loads the global configuration file. Returns an empty config (not an
// error) if the file doesn't exist.
func Load() (*Config, error) {
	if configCache != nil {
		return configCache, nil
	}

	path := Path()
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.CacheDir = ExpandTilde(cfg.CacheDir)
	cfg.JournalsFile = ExpandTilde(cfg.JournalsFile)

	configCache = &cfg
	return &cfg, nil
}

// Reset clears the cached config. Useful for testing.
func Reset() {
	configCache = nil
}

// ResolveCacheDir returns the cache directory, creating it if needed.
// Defaults to the user cache dir when not configured.
func (c *Config) ResolveCacheDir() (string, error) {
	dir := c.CacheDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("locating cache dir: %w", err)
		}
		dir = filepath.Join(base, CacheDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}
	return dir, nil
}

// EmbeddingsPath returns the embeddings cache file under dir.
func EmbeddingsPath(dir string) string {
	return filepath.Join(dir, cache.EmbeddingsFileName)
}

// GraphPath returns the citation graph cache file under dir.
func GraphPath(dir string) string {
	return filepath.Join(dir, cache.GraphFileName)
}

// JournalsPath returns the journal resolution cache file under dir.
func JournalsPath(dir string) string {
	return filepath.Join(dir, cache.JournalsFileName)
}

// ReviewedDBPath returns the reviewed-papers database file under dir.
func ReviewedDBPath(dir string) string {
	return filepath.Join(dir, cache.ReviewedDBFileName)
}

// ExpandTilde expands a leading ~ to the user's home directory. Returns the
// path unchanged if it doesn't start with ~.
func ExpandTilde(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
