// Package config loads and validates noctua's run configuration: default LLM
// provider/model, per-stage budget ceilings, repair cap, and the workspace
// base directory. Grounded on the teacher's viper-backed config loader,
// adapted from a project/orchestrator split down to the single-run shape
// this pipeline needs.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// StageBudgets holds the per-stage USD ceiling defaults from spec §4.1.6.
type StageBudgets struct {
	Recon   float64 `mapstructure:"recon" yaml:"recon"`
	Schema  float64 `mapstructure:"schema" yaml:"schema"`
	Codegen float64 `mapstructure:"codegen" yaml:"codegen"`
	Test    float64 `mapstructure:"test" yaml:"test"`
	Repair  float64 `mapstructure:"repair" yaml:"repair"`
	Harden  float64 `mapstructure:"harden" yaml:"harden"`
}

// DefaultStageBudgets returns the spec-mandated $100-per-stage defaults.
func DefaultStageBudgets() StageBudgets {
	return StageBudgets{Recon: 100, Schema: 100, Codegen: 100, Test: 100, Repair: 100, Harden: 100}
}

// Config is the fully resolved, immutable configuration for one noctua
// invocation. It is loaded once at CLI startup and passed by value into
// runPipeline's options — the pipeline core never reads global config.
type Config struct {
	Provider          string       `mapstructure:"provider" yaml:"provider"`
	Model             string       `mapstructure:"model" yaml:"model"`
	BaseDir           string       `mapstructure:"base_dir" yaml:"base_dir"`
	MaxRepairAttempts int          `mapstructure:"max_repair_attempts" yaml:"max_repair_attempts"`
	Headless          bool         `mapstructure:"headless" yaml:"headless"`
	Budgets           StageBudgets `mapstructure:"budgets" yaml:"budgets"`
}

// Default returns noctua's built-in defaults before any file/env overlay.
func Default() Config {
	return Config{
		Provider:          "anthropic",
		Model:             "claude-sonnet-4-5",
		BaseDir:           ".",
		MaxRepairAttempts: 5,
		Headless:          true,
		Budgets:           DefaultStageBudgets(),
	}
}

// Load reads noctua.yaml (if present) from configDir and overlays
// NOCTUA_-prefixed environment variables, falling back to Default() values
// for anything unset. configDir may be empty, in which case only the
// current directory and environment are consulted.
func Load(configDir string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("noctua")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(".")
	v.SetEnvPrefix("NOCTUA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setViperDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok { //nolint:errorlint // viper sentinel type
			return Config{}, fmt.Errorf("read noctua config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse noctua config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	abs, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve base_dir: %w", err)
	}
	cfg.BaseDir = abs

	return cfg, nil
}

func setViperDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("provider", cfg.Provider)
	v.SetDefault("model", cfg.Model)
	v.SetDefault("base_dir", cfg.BaseDir)
	v.SetDefault("max_repair_attempts", cfg.MaxRepairAttempts)
	v.SetDefault("headless", cfg.Headless)
	v.SetDefault("budgets.recon", cfg.Budgets.Recon)
	v.SetDefault("budgets.schema", cfg.Budgets.Schema)
	v.SetDefault("budgets.codegen", cfg.Budgets.Codegen)
	v.SetDefault("budgets.test", cfg.Budgets.Test)
	v.SetDefault("budgets.repair", cfg.Budgets.Repair)
	v.SetDefault("budgets.harden", cfg.Budgets.Harden)
}

// Validate rejects configurations that would violate pipeline invariants
// before a run ever starts.
func (c Config) Validate() error {
	if c.MaxRepairAttempts <= 0 {
		return fmt.Errorf("max_repair_attempts must be positive, got %d", c.MaxRepairAttempts)
	}
	for name, v := range map[string]float64{
		"recon": c.Budgets.Recon, "schema": c.Budgets.Schema, "codegen": c.Budgets.Codegen,
		"test": c.Budgets.Test, "repair": c.Budgets.Repair, "harden": c.Budgets.Harden,
	} {
		if v <= 0 {
			return fmt.Errorf("budgets.%s must be positive, got %.2f", name, v)
		}
	}
	switch c.Provider {
	case "anthropic", "openai", "ollama", "genai":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}
