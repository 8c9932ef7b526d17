package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/socialsim/pkg/actiongen"
	"github.com/codeready-toolchain/socialsim/pkg/models"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "claude-sonnet-4-5", cfg.LLM.Model)
	assert.False(t, cfg.LLM.Enabled())
	assert.Equal(t, "chronological", cfg.Feed.DefaultAlgorithm)
	assert.Equal(t, actiongen.DefaultMaxActions, cfg.Generator.MaxActions)
	assert.Equal(t, 0.5, cfg.Generator.Probability)
	assert.Nil(t, cfg.Generator.Seed)
}

func TestLoad(t *testing.T) {
	logger := slog.Default()

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		t.Setenv("SIM_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg, err := Load(logger)
		require.NoError(t, err)
		assert.Equal(t, Defaults(), cfg)
	})

	t.Run("yaml overrides defaults and keeps the rest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "socialsim.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
generator:
  probability: 0.8
actions:
  comment:
    default_algorithm: llm
`), 0o600))
		t.Setenv("SIM_CONFIG_PATH", path)
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg, err := Load(logger)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 0.8, cfg.Generator.Probability)
		assert.Equal(t, "llm", cfg.Actions.Comment.DefaultAlgorithm)
		assert.Equal(t, actiongen.FallbackLikeAlgorithm, cfg.Actions.Like.DefaultAlgorithm)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "socialsim.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))
		t.Setenv("SIM_CONFIG_PATH", path)

		_, err := Load(logger)
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("environment overrides yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "socialsim.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))
		t.Setenv("SIM_CONFIG_PATH", path)
		t.Setenv("SIM_HOST", "127.0.0.1")
		t.Setenv("SIM_PORT", "7000")
		t.Setenv("SIM_LLM_MODEL", "claude-haiku-4-5")
		t.Setenv("ANTHROPIC_API_KEY", "sk-test")

		cfg, err := Load(logger)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr())
		assert.Equal(t, "claude-haiku-4-5", cfg.LLM.Model)
		assert.True(t, cfg.LLM.Enabled())
	})

	t.Run("non-numeric port override is ignored", func(t *testing.T) {
		t.Setenv("SIM_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
		t.Setenv("SIM_PORT", "eighty")
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg, err := Load(logger)
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})
}

func TestAlgorithmSelection(t *testing.T) {
	cfg := Defaults()
	cfg.Actions.Comment.DefaultAlgorithm = "llm"

	t.Run("explicit wins over configured", func(t *testing.T) {
		selection := cfg.AlgorithmSelection(map[models.ActionType]string{
			models.ActionTypeComment: "deterministic",
		})
		assert.Equal(t, "deterministic", selection[models.ActionTypeComment])
		assert.Equal(t, actiongen.FallbackLikeAlgorithm, selection[models.ActionTypeLike])
		assert.Equal(t, actiongen.FallbackFollowAlgorithm, selection[models.ActionTypeFollow])
	})

	t.Run("configured wins over fallback", func(t *testing.T) {
		selection := cfg.AlgorithmSelection(nil)
		assert.Equal(t, "llm", selection[models.ActionTypeComment])
	})

	t.Run("empty configuration falls back", func(t *testing.T) {
		bare := &Config{}
		selection := bare.AlgorithmSelection(nil)
		for _, action := range models.AllActionTypes {
			assert.Equal(t, actiongen.FallbackAlgorithm(action), selection[action])
		}
	})
}

func TestGeneratorSettings(t *testing.T) {
	cfg := Defaults()

	settings := cfg.GeneratorSettings()
	assert.Equal(t, 0.5, settings["probability"])
	_, hasSeed := settings["seed"]
	assert.False(t, hasSeed)

	seed := int64(42)
	cfg.Generator.Seed = &seed
	settings = cfg.GeneratorSettings()
	assert.Equal(t, float64(42), settings["seed"])
}
