// Command tc is Terminal Coder's CLI: a thin dispatcher over the durable
// Store and the orchestration packages under internal/. Each subcommand
// opens its own Store handle and exits; the long-running Engine lives
// entirely inside `tc run`.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"terminal-coder/internal/config"
	"terminal-coder/internal/logging"
)

var (
	verbose    bool
	projectDir string

	logger *zap.Logger
	paths  config.ProjectPaths
)

var rootCmd = &cobra.Command{
	Use:   "tc",
	Short: "Terminal Coder - autonomous multi-agent coding orchestrator",
	Long: `Terminal Coder drives a plan of phases and tasks to completion by
spawning worker CLI sessions, reviewing their output, retrying failures,
and verifying deployments - without a human babysitting every step.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		dir := projectDir
		if dir == "" {
			dir, _ = os.Getwd()
		} else if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		projectDir = dir
		paths = config.NewProjectPaths(projectDir)

		if err := logging.Initialize(projectDir); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project-dir", "C", "", "Project directory (default: current directory)")

	rootCmd.AddCommand(
		initCmd,
		verifyCmd,
		planCmd,
		runCmd,
		pauseCmd,
		resumeCmd,
		killCmd,
		retryCmd,
		resetCmd,
		statusCmd,
		eventsCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
