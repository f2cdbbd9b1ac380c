package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ipc"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Review extracted insights and generated posts",
	}
	reviewCmd.AddCommand(newInsightsCommand(ctx))
	reviewCmd.AddCommand(newPostsCommand(ctx))
	return reviewCmd
}

func newInsightsCommand(ctx *commandContext) *cobra.Command {
	insightsCmd := &cobra.Command{
		Use:   "insights",
		Short: "Review extracted insights",
	}
	insightsCmd.AddCommand(newInsightListCommand(ctx))
	insightsCmd.AddCommand(newInsightApproveCommand(ctx))
	insightsCmd.AddCommand(newInsightRejectCommand(ctx))
	return insightsCmd
}

func newInsightListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List insights awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.InsightList(status)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Items)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(stdout, "No insights")
					return nil
				}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					rows = append(rows, []string{
						fmt.Sprintf("%d", item.ID),
						fmt.Sprintf("%d", item.TranscriptID),
						truncate(item.Title, 36),
						item.Category,
						formatStatusLabel(item.Status),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Transcript", "Title", "Category", "Status"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by review status (defaults to pending_review)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newInsightApproveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <insight-id>",
		Short: "Approve an insight for post generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.InsightApprove(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Insight %d approved; generation job %d queued\n", id, resp.JobID)
				return nil
			})
		},
	}
}

func newInsightRejectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <insight-id>",
		Short: "Reject an insight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.InsightReject(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Insight %d rejected\n", id)
				return nil
			})
		},
	}
}

func newPostsCommand(ctx *commandContext) *cobra.Command {
	postsCmd := &cobra.Command{
		Use:   "posts",
		Short: "Review generated post drafts",
	}
	postsCmd.AddCommand(newPostListCommand(ctx))
	postsCmd.AddCommand(newPostApproveCommand(ctx))
	postsCmd.AddCommand(newPostRejectCommand(ctx))
	return postsCmd
}

func newPostListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List post drafts awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PostList(status)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Items)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(stdout, "No posts")
					return nil
				}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					rows = append(rows, []string{
						fmt.Sprintf("%d", item.ID),
						fmt.Sprintf("%d", item.InsightID),
						item.Platform,
						truncate(item.Body, 48),
						formatStatusLabel(item.Status),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Insight", "Platform", "Body", "Status"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by post status (defaults to pending_review)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newPostApproveCommand(ctx *commandContext) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "approve <post-id>",
		Short: "Approve a post for publishing, now or at a scheduled time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if at != "" {
				when, err := parseWhen(at)
				if err != nil {
					return err
				}
				return ctx.withClient(func(client *ipc.Client) error {
					resp, err := client.ScheduleAdd(ipc.ScheduleAddRequest{PostID: id, At: when})
					if err != nil {
						return err
					}
					fmt.Fprintf(stdout, "Post %d scheduled for %s (schedule %d)\n",
						id, when.Local().Format("2006-01-02 15:04"), resp.ScheduledID)
					return nil
				})
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PostApprove(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Post %d approved; publish job %d queued\n", id, resp.JobID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Schedule instead of publishing now (RFC 3339, \"2006-01-02 15:04\", or +duration)")
	return cmd
}

func newPostRejectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <post-id>",
		Short: "Reject a post draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.PostReject(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Post %d rejected\n", id)
				return nil
			})
		},
	}
}
