package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mtian8/physics-agent/internal/config"
)

var (
	policyTaskID   string
	policyWorkerID string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify physics-agent configuration",
	Long: `View or modify physics-agent configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(config.ConfigFile())
		return nil
	},
}

var configSetModelCmd = &cobra.Command{
	Use:   "set-model <worker> <model>",
	Short: "Set a worker's model identifier",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.Set(fmt.Sprintf("workers.%s.model", args[0]), args[1])
		return saveConfig()
	},
}

var configSetPromptCmd = &cobra.Command{
	Use:   "set-prompt <worker> <file>",
	Short: "Set a worker's system prompt file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[1]); err != nil {
			return fmt.Errorf("prompt file: %w", err)
		}
		viper.Set(fmt.Sprintf("workers.%s.prompt", args[0]), args[1])
		return saveConfig()
	},
}

var configSetReviewCmd = &cobra.Command{
	Use:   "set-review <policy>",
	Short: "Set the review policy (auto or human)",
	Long: `Set the review policy. Without flags the default policy changes;
--task or --worker scopes the policy to one task id or worker id.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := args[0]
		if !config.IsValidReviewPolicy(policy) {
			return fmt.Errorf("invalid review policy %q, valid: %s",
				policy, strings.Join(config.ValidReviewPolicies(), ", "))
		}
		viper.Set(policyKey("review"), policy)
		return saveConfig()
	},
}

var configSetVerifyCmd = &cobra.Command{
	Use:   "set-verify <policy>",
	Short: "Set the verification policy (none or checked)",
	Long: `Set the verification policy. Without flags the default policy changes;
--task or --worker scopes the policy to one task id or worker id.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := args[0]
		if !config.IsValidVerifyPolicy(policy) {
			return fmt.Errorf("invalid verification policy %q, valid: %s",
				policy, strings.Join(config.ValidVerifyPolicies(), ", "))
		}
		viper.Set(policyKey("verification"), policy)
		return saveConfig()
	},
}

func init() {
	for _, c := range []*cobra.Command{configSetReviewCmd, configSetVerifyCmd} {
		c.Flags().StringVar(&policyTaskID, "task", "", "scope the policy to one task id")
		c.Flags().StringVar(&policyWorkerID, "worker", "", "scope the policy to one worker id")
	}

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetModelCmd)
	configCmd.AddCommand(configSetPromptCmd)
	configCmd.AddCommand(configSetReviewCmd)
	configCmd.AddCommand(configSetVerifyCmd)
	rootCmd.AddCommand(configCmd)
}

// policyKey resolves the viper key a policy write targets, honoring the
// --task and --worker scope flags.
func policyKey(section string) string {
	if policyTaskID != "" {
		return fmt.Sprintf("%s.per_task.%s", section, policyTaskID)
	}
	if policyWorkerID != "" {
		return fmt.Sprintf("%s.per_worker.%s", section, policyWorkerID)
	}
	return section + ".default"
}

// saveConfig validates the updated configuration and persists it to the
// user's config file.
func saveConfig() error {
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("refusing to save invalid configuration: %w", err)
	}

	path := viper.ConfigFileUsed()
	if path == "" {
		path = config.ConfigFile()
		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Updated %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("run:")
	fmt.Printf("  max_cycles: %d\n", cfg.Run.MaxCycles)

	fmt.Println("dispatch:")
	fmt.Printf("  max_parallel: %d\n", cfg.Dispatch.MaxParallel)

	fmt.Println("review:")
	fmt.Printf("  default: %s\n", cfg.Review.Default)
	printPolicyOverrides(cfg.Review)

	fmt.Println("verification:")
	fmt.Printf("  default: %s\n", cfg.Verification.Default)
	printPolicyOverrides(cfg.Verification)

	fmt.Println("workers:")
	ids := make([]string, 0, len(cfg.Workers))
	for id := range cfg.Workers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		wc := cfg.Workers[id]
		fmt.Printf("  %s: model=%s tools=%s\n", id, wc.Model, strings.Join(wc.Tools, ","))
	}

	fmt.Println("logging:")
	fmt.Printf("  level: %s\n", cfg.Logging.Level)

	fmt.Println("paths:")
	fmt.Printf("  data_dir: %s\n", cfg.Paths.ResolveDataDir())

	if cfg.VectorStoreID != "" {
		fmt.Printf("vector_store_id: %s\n", cfg.VectorStoreID)
	}
	return nil
}

func printPolicyOverrides(p config.PolicyConfig) {
	for _, worker := range sortedKeys(p.PerWorker) {
		fmt.Printf("  per_worker.%s: %s\n", worker, p.PerWorker[worker])
	}
	for _, task := range sortedKeys(p.PerTask) {
		fmt.Printf("  per_task.%s: %s\n", task, p.PerTask[task])
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
