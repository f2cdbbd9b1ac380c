package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ipc"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage scheduled publishing",
	}
	scheduleCmd.AddCommand(newScheduleAddCommand(ctx))
	scheduleCmd.AddCommand(newScheduleListCommand(ctx))
	scheduleCmd.AddCommand(newScheduleCancelCommand(ctx))
	scheduleCmd.AddCommand(newScheduleRemoveCommand(ctx))
	scheduleCmd.AddCommand(newScheduleRunCommand(ctx))
	scheduleCmd.AddCommand(newScheduleStatsCommand(ctx))
	return scheduleCmd
}

func newScheduleAddCommand(ctx *commandContext) *cobra.Command {
	var postID int64
	var platform string
	var content string
	var at string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Schedule a post draft or ad-hoc content for delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseWhen(at)
			if err != nil {
				return err
			}
			if postID <= 0 && (strings.TrimSpace(platform) == "" || strings.TrimSpace(content) == "") {
				return fmt.Errorf("pass --post, or both --platform and --content")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScheduleAdd(ipc.ScheduleAddRequest{
					PostID:   postID,
					Platform: platform,
					Content:  content,
					At:       when,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %d for %s\n",
					resp.ScheduledID, when.Local().Format("2006-01-02 15:04"))
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&postID, "post", 0, "Schedule an existing post draft by id")
	cmd.Flags().StringVar(&platform, "platform", "", "Target platform for ad-hoc content")
	cmd.Flags().StringVar(&content, "content", "", "Ad-hoc content body")
	cmd.Flags().StringVar(&at, "at", "", "Delivery time (RFC 3339, \"2006-01-02 15:04\", or +duration)")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func newScheduleListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduled posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScheduleList(statuses)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Items)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(stdout, "Nothing scheduled")
					return nil
				}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					detail := formatStatusLabel(item.Status)
					if item.ErrorMessage != "" {
						detail = fmt.Sprintf("%s: %s", detail, truncate(item.ErrorMessage, 40))
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", item.ID),
						item.Platform,
						item.ScheduledTime.Local().Format("2006-01-02 15:04"),
						truncate(item.Content, 40),
						fmt.Sprintf("%d", item.RetryCount),
						detail,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Platform", "When", "Content", "Retries", "Status"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (pending, published, failed, cancelled)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newScheduleCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <scheduled-id>",
		Short: "Cancel a pending scheduled post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.ScheduleCancel(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schedule %d cancelled\n", id)
				return nil
			})
		},
	}
}

func newScheduleRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <scheduled-id>",
		Short: "Delete a scheduled post record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScheduleRemove(id)
				if err != nil {
					return err
				}
				if !resp.Removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Schedule %d not found\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schedule %d removed\n", id)
				return nil
			})
		},
	}
}

func newScheduleRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Deliver ready scheduled posts immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScheduleRun()
				if err != nil {
					return err
				}
				line := fmt.Sprintf("Processed %d: %d succeeded, %d failed",
					resp.Processed, resp.Succeeded, resp.Failed)
				if resp.Deferred > 0 {
					line += fmt.Sprintf(", %d deferred", resp.Deferred)
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
				return nil
			})
		},
	}
}

func newScheduleStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show scheduled-post counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScheduleStats()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				stats := resp.Stats
				fmt.Fprintln(stdout, renderStatusLine("Pending", statusInfo, fmt.Sprintf("%d", stats.Pending), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Published", statusOK, fmt.Sprintf("%d", stats.Published), colorize))
				failedKind := statusInfo
				if stats.Failed > 0 {
					failedKind = statusWarn
				}
				fmt.Fprintln(stdout, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", stats.Failed), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Cancelled", statusInfo, fmt.Sprintf("%d", stats.Cancelled), colorize))
				return nil
			})
		},
	}
}
