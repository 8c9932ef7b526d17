package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where Load looks for the YAML file unless
// SIM_CONFIG_PATH points elsewhere.
const DefaultConfigPath = "socialsim.yaml"

// Load builds the resolved configuration: built-in defaults, overridden by
// the YAML file when present, overridden by environment variables. A missing
// YAML file is not an error.
func Load(logger *slog.Logger) (*Config, error) {
	cfg := Defaults()

	path := os.Getenv("SIM_CONFIG_PATH")
	if path == "" {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logger.Info("No config file found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if err := mergo.Merge(cfg, &fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config file %s: %w", path, err)
		}
		logger.Info("Loaded config file", "path", path)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv layers deploy-specific environment overrides on top of the merged
// configuration.
func applyEnv(cfg *Config) {
	if host := os.Getenv("SIM_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SIM_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
	if model := os.Getenv("SIM_LLM_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
	cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
}
