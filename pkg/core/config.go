// pkg/core/config.go
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds pgformula configuration
type Config struct {
	HomebrewPrefix string        `yaml:"homebrew_prefix"`
	CachePath      string        `yaml:"cache_path"`
	FormulaDir     string        `yaml:"formula_dir,omitempty"`
	EnvFile        string        `yaml:"env_file,omitempty"`
	Debug          bool          `yaml:"debug"`
	Timeout        time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		HomebrewPrefix: getDefaultPrefix(),
		CachePath:      getDefaultCachePath(),
		Debug:          false,
		Timeout:        2 * time.Minute,
	}
}

// DefaultPath is where LoadConfig and SaveConfig look when given no path
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pgformula", "config.yaml"), nil
}

// LoadConfig loads configuration from file. Fields the file leaves out
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return DefaultConfig(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// EnvOverrides reads the variables of EnvFile. Without an EnvFile there
// are none.
func (c *Config) EnvOverrides() (map[string]string, error) {
	if c.EnvFile == "" {
		return nil, nil
	}

	vars, err := godotenv.Read(c.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", c.EnvFile, err)
	}
	return vars, nil
}

func getDefaultPrefix() string {
	if path := os.Getenv("HOMEBREW_PREFIX"); path != "" {
		return path
	}
	return "/usr/local"
}

func getDefaultCachePath() string {
	if path := os.Getenv("PGFORMULA_CACHE"); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pgformula")
	}

	return filepath.Join(home, ".cache", "pgformula")
}
