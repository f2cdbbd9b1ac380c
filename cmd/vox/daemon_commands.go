package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the vox daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			client, err := ctx.dialClient()
			if err != nil {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
				if launchErr := launchDaemon(ctx); launchErr != nil {
					return launchErr
				}
				client, err = waitForSocket(ctx, 10*time.Second)
				if err != nil {
					return err
				}
			}
			defer client.Close()

			resp, err := client.Start()
			if err != nil {
				return err
			}
			if !resp.Started && !strings.Contains(resp.Message, "already running") {
				return fmt.Errorf("start daemon: %s", resp.Message)
			}
			if strings.Contains(resp.Message, "already running") {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the vox daemon's processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return err
				}
				fmt.Fprintln(stdout, "Daemon stopped")
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, pipeline, and scheduler status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				renderStatus(stdout, status)
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func renderStatus(stdout io.Writer, status *ipc.StatusResponse) {
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	runningKind := statusError
	runningMsg := "stopped"
	if status.Running {
		runningKind = statusOK
		runningMsg = fmt.Sprintf("running (pid %d)", status.PID)
	}
	fmt.Fprintln(stdout, renderStatusLine("Processing", runningKind, runningMsg, colorize))
	if len(status.PausedQueues) > 0 {
		fmt.Fprintln(stdout, renderStatusLine("Paused queues", statusWarn, strings.Join(status.PausedQueues, ", "), colorize))
	}
	if status.LastError != "" {
		fmt.Fprintln(stdout, renderStatusLine("Last error", statusWarn, status.LastError, colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, status.SocketPath, colorize))
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Stage Health", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, health := range status.StageHealth {
		kind := statusOK
		message := "Ready"
		if !health.Ready {
			kind = statusError
			message = health.Detail
		}
		fmt.Fprintln(stdout, renderStatusLine(health.Name, kind, message, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Queues", colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprint(stdout, renderQueueStatsTable(status.QueueStats))
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Scheduler", colorize) {
		fmt.Fprintln(stdout, line)
	}
	stats := status.SchedulerStats
	fmt.Fprintln(stdout, renderStatusLine("Pending", statusInfo, fmt.Sprintf("%d", stats.Pending), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Published", statusOK, fmt.Sprintf("%d", stats.Published), colorize))
	failedKind := statusInfo
	if stats.Failed > 0 {
		failedKind = statusWarn
	}
	fmt.Fprintln(stdout, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", stats.Failed), colorize))
}

func renderQueueStatsTable(stats map[string]ipc.QueueCounts) string {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		counts := stats[name]
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", counts.Waiting),
			fmt.Sprintf("%d", counts.Active),
			fmt.Sprintf("%d", counts.Delayed),
			fmt.Sprintf("%d", counts.Completed),
			fmt.Sprintf("%d", counts.Failed),
		})
	}
	if len(rows) == 0 {
		return "No queues reported\n"
	}
	return renderTable(
		[]string{"Queue", "Waiting", "Active", "Delayed", "Completed", "Failed"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	) + "\n"
}

func launchDaemon(ctx *commandContext) error {
	exe, err := daemonExecutable()
	if err != nil {
		return err
	}
	args := []string{}
	if ctx.configFlag != nil {
		if path := strings.TrimSpace(*ctx.configFlag); path != "" {
			args = append(args, "--config", path)
		}
	}
	cmd := exec.Command(exe, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch voxd: %w", err)
	}
	return cmd.Process.Release()
}

func daemonExecutable() (string, error) {
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), "voxd")
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath("voxd")
	if err != nil {
		return "", fmt.Errorf("locate voxd executable: %w", err)
	}
	return path, nil
}

func waitForSocket(ctx *commandContext, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	for {
		client, err := ctx.dialClient()
		if err == nil {
			return client, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("daemon did not come up within %s: %w", timeout, err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
