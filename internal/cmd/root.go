// Package cmd wires the physics-agent CLI: run lifecycle commands (init,
// step, run), source ingestion, the human review flow, and configuration
// management.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mtian8/physics-agent/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "physics-agent",
	Short: "Staged research runs driven by a task graph and a state document",
	Long: `physics-agent schedules a multi-stage research run: literature gathering,
derivation with computational checks, and synthesis. Progress lives in a
single markdown state document per run, so any cycle can be resumed,
inspected, or reviewed by a human.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/physics-agent/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/physics-agent")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PHYSICS_AGENT")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PHYSICS_AGENT_RUN_MAX_CYCLES for run.max_cycles
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
