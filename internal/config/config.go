package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dotcommander/viralscore/internal/types"
	"github.com/spf13/viper"
)

// Config represents the viralscore configuration
type Config struct {
	Root        string `mapstructure:"root" json:"root"`
	Ruleset     string `mapstructure:"ruleset" json:"ruleset"`
	Format      string `mapstructure:"format" json:"format"`
	Output      string `mapstructure:"output" json:"output,omitempty"`
	Store       string `mapstructure:"store" json:"store,omitempty"`
	Baseline    string `mapstructure:"baseline" json:"baseline,omitempty"`
	Version     string `mapstructure:"version" json:"version,omitempty"`
	Concurrency int    `mapstructure:"concurrency" json:"concurrency"`
	Parallel    bool   `mapstructure:"parallel" json:"parallel"`
	Quiet       bool   `mapstructure:"quiet" json:"quiet"`
	Verbose     bool   `mapstructure:"verbose" json:"verbose"`
}

// ConfigFiles are the file names searched, in order, in the working directory.
var ConfigFiles = []string{".viralscorerc.json", ".viralscorerc.yaml", ".viralscorerc.yml"}

// LoadConfig loads configuration from defaults, config file, environment and
// any flags already bound to viper. A non-empty rootPath overrides root.
func LoadConfig(rootPath string) (*Config, error) {
	viper.SetDefault("root", ".")
	viper.SetDefault("ruleset", "")
	viper.SetDefault("output", "")
	viper.SetDefault("store", "")
	viper.SetDefault("baseline", "")
	viper.SetDefault("version", "")
	viper.SetDefault("format", types.FormatJSON)
	viper.SetDefault("concurrency", 8)
	viper.SetDefault("parallel", true)
	viper.SetDefault("quiet", false)
	viper.SetDefault("verbose", false)

	for _, path := range ConfigFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		break
	}

	viper.SetEnvPrefix("VIRALSCORE")
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if rootPath != "" {
		config.Root = rootPath
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	switch config.Format {
	case types.FormatJSON, types.FormatConsole, types.FormatMarkdown, types.FormatCSV:
	default:
		return fmt.Errorf("invalid format: %s. Must be 'json', 'console', 'markdown', or 'csv'", config.Format)
	}

	if config.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}

	if config.Store != "" && config.Store != ":memory:" {
		if dir := filepath.Dir(config.Store); dir != "." {
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fmt.Errorf("store directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

// SaveConfig saves the current configuration to a file
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
