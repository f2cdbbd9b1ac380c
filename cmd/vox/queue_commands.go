package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ipc"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the job queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	return queueCmd
}

// openQueueAccess prefers the daemon's IPC surface and falls back to opening
// the job store directly when voxd is down.
func openQueueAccess(ctx *commandContext) (queueaccess.Session, error) {
	return queueaccess.OpenWithFallback(
		func() (*ipc.Client, error) { return ctx.dialClient() },
		func() (*queue.Store, error) {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return nil, err
			}
			return queue.Open(cfg)
		},
	)
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var queueName string
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openQueueAccess(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			items, err := session.Access.List(cmd.Context(), queueName, statuses)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, items)
			}
			stdout := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				detail := ""
				if item.ErrorMessage != "" {
					detail = truncate(item.ErrorMessage, 48)
				} else if item.ProgressMsg != "" {
					detail = truncate(item.ProgressMsg, 48)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", item.ID),
					item.Queue,
					formatStatusLabel(item.Status),
					fmt.Sprintf("%d/%d", item.AttemptsMade, item.MaxAttempts),
					item.AvailableAt.Local().Format("2006-01-02 15:04"),
					detail,
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"ID", "Queue", "Status", "Attempts", "Available", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&queueName, "queue", "", "Restrict to one queue (clean, insights, generate, publish)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by job status (waiting, delayed, active, completed, failed)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-queue job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openQueueAccess(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			stats, err := session.Access.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, stats)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderQueueStatsTable(stats))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id> [job-id...]",
		Short: "Revive failed jobs for another attempt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			session, err := openQueueAccess(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			updated, err := session.Access.Retry(cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revived %d job(s)\n", updated)
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !clearCompleted && !clearFailed {
				return fmt.Errorf("pass --completed, --failed, or both")
			}
			session, err := openQueueAccess(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			stdout := cmd.OutOrStdout()
			if clearCompleted {
				removed, err := session.Access.ClearCompleted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Removed %d completed job(s)\n", removed)
			}
			if clearFailed {
				removed, err := session.Access.ClearFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Removed %d failed job(s)\n", removed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove failed jobs")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id> [job-id...]",
		Short: "Delete specific jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			session, err := openQueueAccess(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			removed, err := session.Access.Remove(cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
			return nil
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue store and stage readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openQueueAccess(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			checks, err := session.Access.Health(cmd.Context())
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			unhealthy := 0
			for _, check := range checks {
				kind := statusOK
				message := "Ready"
				if !check.Ready {
					kind = statusError
					message = check.Detail
					unhealthy++
				}
				fmt.Fprintln(stdout, renderStatusLine(check.Name, kind, message, colorize))
			}
			if unhealthy > 0 {
				return fmt.Errorf("%d health check(s) failing", unhealthy)
			}
			return nil
		},
	}
}
