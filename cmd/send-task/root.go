package main

import (
	"fmt"
	"io"

	"github.com/pingcap/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hanfei1991/sendtask/client"
	"github.com/hanfei1991/sendtask/pkg/config"
	"github.com/hanfei1991/sendtask/pkg/logutil"
)

// run executes send-task with the full process argument list and returns
// the process exit code.
func run(processArgs []string, lookup config.LookupEnvFunc, stderr io.Writer) int {
	if len(processArgs) == 0 {
		processArgs = []string{"send-task"}
	}

	exitCode := 0
	cmd := newRootCmd(processArgs[0], lookup, stderr, &exitCode)
	cmd.SetArgs(processArgs[1:])
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return client.ExitTransportFailure
	}
	return exitCode
}

func newRootCmd(program string, lookup config.LookupEnvFunc, stderr io.Writer, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "send-task <shell-flag> [job-args...]",
		Short: "Run a recipe on the job scheduler and exit with the job's return code",
		Long: fmt.Sprintf(`Run a recipe on the job scheduler and exit with the job's return code.

Set it as the SHELL of a Makefile. The first argument (usually -c) is
ignored, the remaining ones are sent to http://%s:<port>/ as the job's argv.

Environment:
  %s    scheduler port (default %s)
  %s  optional TOML config file`,
			config.SchedulerHost,
			config.PortEnvKey, config.DefaultSchedulerPort,
			config.ConfigFileEnvKey),
		// Every argument belongs to the recipe.
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(lookup)
			if err != nil {
				*exitCode = client.ExitTransportFailure
				fmt.Fprintln(stderr, err)
				return nil
			}
			if err := logutil.InitLogger(cfg, stderr); err != nil {
				*exitCode = client.ExitTransportFailure
				fmt.Fprintln(stderr, err)
				return nil
			}
			defer func() {
				_ = log.Sync()
			}()
			log.L().Debug("send-task config", zap.Stringer("config", cfg))

			processArgs := append([]string{program}, args...)
			code, err := client.NewDispatcher(cfg).Dispatch(processArgs)
			if err != nil {
				fmt.Fprintln(stderr, err)
			}
			*exitCode = code
			return nil
		},
	}
}
