package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitriz/mtbuild/cmd/cli"
	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/internal/utils/contextutil"
	"github.com/dmitriz/mtbuild/internal/watcher"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

var (
	logMode  string
	opts     cli.Options
	addr     string
	debounce time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "mtbuild [task]",
	Short: "Build, lint, test and document a JavaScript library",
	Long: `mtbuild runs named build tasks or aliases of tasks, strictly one after
another, stopping at the first failure. With no task it runs "default".`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch logMode {
		case "debug", "pretty", "info", "prod", "test":
			logger.InitWithMode(logger.LogMode(logMode))
		default:
			logger.InitWithMode(logger.LogModePretty)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := contextutil.WithSignals(cmd.Context())
		defer cancel()

		task := cli.DefaultTask
		if len(args) == 1 {
			task = args[0]
		}
		return cli.RunTask(ctx, opts, task)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rerun the watch tasks whenever a watched file changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := contextutil.WithSignals(cmd.Context())
		defer cancel()
		var wopts []watcher.Option
		if cmd.Flags().Changed("debounce") {
			wopts = append(wopts, watcher.WithDebounce(debounce))
		}
		return cli.RunWatch(ctx, opts, addr, wopts...)
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks and aliases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.ListTasks(cmd.Context(), cmd.OutOrStdout(), opts)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logMode, "log", "pretty", "Log mode: debug, pretty, info, prod, test")
	flags.StringVar(&opts.Dir, "dir", ".", "Project directory")
	flags.StringVar(&opts.ManifestPath, "manifest", config.DefaultManifestPath, "Project manifest, relative to the project directory")
	flags.StringVar(&opts.ConfigPath, "config", "", "Build file, relative to the project directory (default "+config.DefaultConfigPath+" if present)")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	watchCmd.Flags().StringVar(&addr, "addr", "", "Serve status, metrics and live reload on this address, e.g. localhost:35729")
	watchCmd.Flags().DurationVar(&debounce, "debounce", 0, "Wait this long for more changes before running (default from the build file)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tasksCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
