package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete physics-agent configuration
type Config struct {
	Run          RunConfig               `mapstructure:"run"`
	Dispatch     DispatchConfig          `mapstructure:"dispatch"`
	Review       PolicyConfig            `mapstructure:"review"`
	Verification PolicyConfig            `mapstructure:"verification"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Paths        PathsConfig             `mapstructure:"paths"`
	// VectorStoreID is the remote vector store used during ingestion.
	// Empty disables remote registration; ingested sources are still
	// hashed, copied, and recorded locally.
	VectorStoreID string `mapstructure:"vector_store_id"`
}

// RunConfig controls the run loop
type RunConfig struct {
	// MaxCycles is the cycle budget for a single `run` invocation (default: 8)
	MaxCycles int `mapstructure:"max_cycles"`
}

// DispatchConfig controls concurrent task fan-out within a cycle
type DispatchConfig struct {
	// MaxParallel is the maximum number of worker calls in flight at once (default: 4)
	MaxParallel int `mapstructure:"max_parallel"`
}

// PolicyConfig resolves a per-task policy value.
// Resolution order: per-task id, then per-worker id, then Default.
type PolicyConfig struct {
	Default   string            `mapstructure:"default"`
	PerWorker map[string]string `mapstructure:"per_worker"`
	PerTask   map[string]string `mapstructure:"per_task"`
}

// Resolve returns the effective policy value for a task.
func (p *PolicyConfig) Resolve(taskID, workerID string) string {
	if v, ok := p.PerTask[taskID]; ok && v != "" {
		return v
	}
	if v, ok := p.PerWorker[workerID]; ok && v != "" {
		return v
	}
	return p.Default
}

// WorkerConfig describes one external worker
type WorkerConfig struct {
	// Model is an opaque model identifier passed through to the worker
	Model string `mapstructure:"model"`
	// Prompt is a path to the worker's system prompt file
	Prompt string `mapstructure:"prompt"`
	// Tools lists the tool identifiers the worker is allowed to use
	Tools []string `mapstructure:"tools"`
	// Command is the executable (plus fixed arguments) invoked for this
	// worker. The task request is written to stdin as JSON and the result
	// read from stdout as JSON.
	Command []string `mapstructure:"command"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// PathsConfig controls where physics-agent stores run data
type PathsConfig struct {
	// DataDir is the root under which runs/, sources/, and the record
	// database live. Supports ~ for home directory expansion; a relative
	// path is resolved against the current working directory (default: "data").
	DataDir string `mapstructure:"data_dir"`
}

// ResolveDataDir returns the resolved data directory path.
func (p *PathsConfig) ResolveDataDir() string {
	path := p.DataDir
	if path == "" {
		path = "data"
	}

	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	} else if len(path) > 1 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Run: RunConfig{
			MaxCycles: 8,
		},
		Dispatch: DispatchConfig{
			MaxParallel: 4,
		},
		Review: PolicyConfig{
			Default:   ReviewAuto,
			PerWorker: map[string]string{},
			PerTask:   map[string]string{},
		},
		Verification: PolicyConfig{
			Default:   VerifyNone,
			PerWorker: map[string]string{},
			PerTask:   map[string]string{},
		},
		Workers: map[string]WorkerConfig{},
		Logging: LoggingConfig{
			Level: "info",
		},
		Paths: PathsConfig{
			DataDir: "data",
		},
		VectorStoreID: "",
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Run defaults
	viper.SetDefault("run.max_cycles", defaults.Run.MaxCycles)

	// Dispatch defaults
	viper.SetDefault("dispatch.max_parallel", defaults.Dispatch.MaxParallel)

	// Review policy defaults
	viper.SetDefault("review.default", defaults.Review.Default)
	viper.SetDefault("review.per_worker", defaults.Review.PerWorker)
	viper.SetDefault("review.per_task", defaults.Review.PerTask)

	// Verification policy defaults
	viper.SetDefault("verification.default", defaults.Verification.Default)
	viper.SetDefault("verification.per_worker", defaults.Verification.PerWorker)
	viper.SetDefault("verification.per_task", defaults.Verification.PerTask)

	// Worker defaults
	viper.SetDefault("workers", defaults.Workers)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)

	// Paths defaults
	viper.SetDefault("paths.data_dir", defaults.Paths.DataDir)

	viper.SetDefault("vector_store_id", defaults.VectorStoreID)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.normalize()

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// normalize canonicalizes policy aliases so downstream code only ever
// sees the canonical values.
func (c *Config) normalize() {
	c.Verification.Default = canonicalVerifyPolicy(c.Verification.Default)
	for k, v := range c.Verification.PerWorker {
		c.Verification.PerWorker[k] = canonicalVerifyPolicy(v)
	}
	for k, v := range c.Verification.PerTask {
		c.Verification.PerTask[k] = canonicalVerifyPolicy(v)
	}
}

// canonicalVerifyPolicy maps accepted aliases onto canonical policy values.
// "llm" is a legacy spelling of "checked".
func canonicalVerifyPolicy(v string) string {
	if v == "llm" {
		return VerifyChecked
	}
	return v
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "physics-agent")
	}
	// Fall back to ~/.config/physics-agent
	home, err := os.UserHomeDir()
	if err != nil {
		return ".physics-agent"
	}
	return filepath.Join(home, ".config", "physics-agent")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Review policy values
const (
	// ReviewAuto marks successful tasks done without human involvement
	ReviewAuto = "auto"
	// ReviewHuman blocks successful tasks as awaiting human review
	ReviewHuman = "human"
)

// Verification policy values
const (
	// VerifyNone skips per-task verification
	VerifyNone = "none"
	// VerifyChecked runs the verifier worker on the task's artifacts
	VerifyChecked = "checked"
)

// ValidReviewPolicies returns the list of valid review policy values
func ValidReviewPolicies() []string {
	return []string{ReviewAuto, ReviewHuman}
}

// ValidVerifyPolicies returns the list of valid verification policy values
func ValidVerifyPolicies() []string {
	return []string{VerifyNone, VerifyChecked}
}

// IsValidReviewPolicy checks if the given review policy is valid
func IsValidReviewPolicy(policy string) bool {
	for _, valid := range ValidReviewPolicies() {
		if policy == valid {
			return true
		}
	}
	return false
}

// IsValidVerifyPolicy checks if the given verification policy is valid.
// The legacy alias "llm" is accepted and canonicalized to "checked" at load.
func IsValidVerifyPolicy(policy string) bool {
	if policy == "llm" {
		return true
	}
	for _, valid := range ValidVerifyPolicies() {
		if policy == valid {
			return true
		}
	}
	return false
}
