// Package main implements selectorcachectl, the operator CLI for the
// selector cache: inspecting cache/scenario state, checking breaker and
// degradation status, and running a one-shot health check. Grounded on the
// teacher's cmd/nerd/main.go rootCmd wiring (persistent flags, zap logger
// built in PersistentPreRunE, internal file logging closed in
// PersistentPostRun).
package main

import (
	stdctx "context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/theRebelliousNerd/selectorcache/internal/config"
	selectorctx "github.com/theRebelliousNerd/selectorcache/internal/context"
)

var (
	verbose    bool
	configPath string
	workspace  string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "selectorcachectl",
	Short: "Operate the self-learning selector cache",
	Long: `selectorcachectl inspects and administers the selector cache: cached
selector mappings, learned test scenarios, circuit breaker state, and the
current degradation level.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to selectorcache.yaml (default: workspace root)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current)")

	cacheCmd.AddCommand(cacheInspectCmd, cacheClearCmd)
	scenarioCmd.AddCommand(scenarioListCmd, scenarioDeleteCmd, scenarioDecayCmd)
	breakerCmd.AddCommand(breakerStatusCmd, breakerResetCmd)

	rootCmd.AddCommand(cacheCmd, scenarioCmd, breakerCmd, doctorCmd)
}

// loadContext resolves config (respecting --config/--workspace) and builds
// a full selectorcache Context for a single CLI invocation. The caller is
// responsible for calling Shutdown on the returned Context.
func loadContext() (*selectorctx.Context, error) {
	root := workspace
	if root == "" {
		var err error
		root, err = config.FindWorkspaceRoot()
		if err != nil {
			return nil, err
		}
	}

	path := configPath
	if path == "" {
		path = filepath.Join(root, "selectorcache.yaml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return selectorctx.Build(stdctx.Background(), cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
