package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"vinflow/internal/daemonctl"
	"vinflow/internal/daemonrun"
	"vinflow/internal/stages"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Control the vinflow daemon",
	}

	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))

	return daemonCmd
}

// daemonExecutable locates the vinflowd binary next to the CLI first,
// then on PATH.
func daemonExecutable() (string, error) {
	self, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(self), "vinflowd")
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath("vinflowd")
	if err != nil {
		return "", fmt.Errorf("vinflowd binary not found next to vinflow or on PATH")
	}
	return path, nil
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the vinflow daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			opts := daemonctl.LaunchOptions{SocketPath: ctx.socketPath()}
			if ctx.configFlag != nil {
				opts.ConfigPath = *ctx.configFlag
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, opts, 10*time.Second)
			if err != nil {
				return err
			}
			if result.AlreadyRunning {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}
			if result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			} else {
				fmt.Fprintln(stdout, "Daemon started")
			}
			return nil
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the vinflow daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not stop gracefully; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.dialClient()
			if err != nil {
				fmt.Fprintln(stdout, "Daemon: not running")
				return nil
			}
			defer client.Close()

			status, err := client.Status()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			fmt.Fprintf(stdout, "Daemon:  running (pid %d)\n", status.PID)
			fmt.Fprintf(stdout, "Ledger:  %s\n", status.LedgerDBPath)
			fmt.Fprintf(stdout, "Lock:    %s\n", status.LockPath)
			if len(status.StageCounts) > 0 {
				rows := make([][]string, 0, len(status.StageCounts))
				for _, def := range stages.Ordered() {
					if n := status.StageCounts[string(def.ID)]; n > 0 {
						rows = append(rows, []string{def.Name, strconv.Itoa(n)})
					}
				}
				if len(rows) > 0 {
					fmt.Fprintln(stdout)
					fmt.Fprintln(stdout, renderTable(
						[]tableColumn{col("Stage"), numCol("Units")},
						rows,
					))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:   logLevel,
				SocketPath: ctx.socketPath(),
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override configured log level")
	return cmd
}
