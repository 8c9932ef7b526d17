// Package config loads engine configuration: built-in defaults merged with an
// optional socialsim.yaml, plus environment overrides for deploy-specific
// values.
package config

import (
	"fmt"

	"github.com/codeready-toolchain/socialsim/pkg/actiongen"
	"github.com/codeready-toolchain/socialsim/pkg/models"
)

// Config is the fully resolved engine configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Feed      FeedConfig      `yaml:"feed"`
	Actions   ActionsConfig   `yaml:"actions"`
	Generator GeneratorConfig `yaml:"generator"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LLMConfig holds the structured-completion provider settings. The API key
// comes from the environment only, never from YAML.
type LLMConfig struct {
	APIKey string `yaml:"-"`
	Model  string `yaml:"model"`
}

// Enabled reports whether LLM-backed generators can be wired.
func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

// FeedConfig holds feed pipeline defaults.
type FeedConfig struct {
	DefaultAlgorithm string `yaml:"default_algorithm"`
}

// ActionsConfig names the default algorithm per action type.
type ActionsConfig struct {
	Like    ActionConfig `yaml:"like"`
	Comment ActionConfig `yaml:"comment"`
	Follow  ActionConfig `yaml:"follow"`
}

// ActionConfig configures one action type.
type ActionConfig struct {
	DefaultAlgorithm string `yaml:"default_algorithm"`
}

// GeneratorConfig holds shared action-generator knobs.
type GeneratorConfig struct {
	// MaxActions bounds how many actions of each type one agent takes per
	// turn.
	MaxActions int `yaml:"max_actions"`
	// Probability gates each candidate in the random_simple generators.
	Probability float64 `yaml:"probability"`
	// Seed fixes the random_simple seed for reproducible runs; nil derives
	// a per-agent seed.
	Seed *int64 `yaml:"seed"`
}

// Defaults returns the built-in configuration, used as the merge base.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		LLM: LLMConfig{
			Model: "claude-sonnet-4-5",
		},
		Feed: FeedConfig{
			DefaultAlgorithm: "chronological",
		},
		Actions: ActionsConfig{
			Like:    ActionConfig{DefaultAlgorithm: actiongen.FallbackLikeAlgorithm},
			Comment: ActionConfig{DefaultAlgorithm: actiongen.FallbackCommentAlgorithm},
			Follow:  ActionConfig{DefaultAlgorithm: actiongen.FallbackFollowAlgorithm},
		},
		Generator: GeneratorConfig{
			MaxActions:  actiongen.DefaultMaxActions,
			Probability: 0.5,
		},
	}
}

// AlgorithmSelection resolves the algorithm per action type: explicit
// argument, then configuration, then the hard-coded fallback.
func (c *Config) AlgorithmSelection(explicit map[models.ActionType]string) actiongen.AlgorithmSelection {
	configured := map[models.ActionType]string{
		models.ActionTypeLike:    c.Actions.Like.DefaultAlgorithm,
		models.ActionTypeComment: c.Actions.Comment.DefaultAlgorithm,
		models.ActionTypeFollow:  c.Actions.Follow.DefaultAlgorithm,
	}

	selection := make(actiongen.AlgorithmSelection, len(models.AllActionTypes))
	for _, action := range models.AllActionTypes {
		if name := explicit[action]; name != "" {
			selection[action] = name
			continue
		}
		if name := configured[action]; name != "" {
			selection[action] = name
			continue
		}
		selection[action] = actiongen.FallbackAlgorithm(action)
	}
	return selection
}

// GeneratorSettings returns the generator config in the free-form map shape
// the generators read.
func (c *Config) GeneratorSettings() map[string]any {
	settings := map[string]any{
		"probability": c.Generator.Probability,
	}
	if c.Generator.Seed != nil {
		settings["seed"] = float64(*c.Generator.Seed)
	}
	return settings
}
