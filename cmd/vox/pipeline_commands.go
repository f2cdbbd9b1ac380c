package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ipc"
)

func newPipelineCommand(ctx *commandContext) *cobra.Command {
	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Control pipeline processing",
	}
	pipelineCmd.AddCommand(newPipelinePauseCommand(ctx))
	pipelineCmd.AddCommand(newPipelineResumeCommand(ctx))
	pipelineCmd.AddCommand(newPipelineRetryCommand(ctx))
	return pipelineCmd
}

func newPipelinePauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause [queue]",
		Short: "Pause claiming from one queue, or all queues",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queueName := ""
			if len(args) == 1 {
				queueName = args[0]
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Pause(queueName)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Paused: %s\n", strings.Join(resp.Paused, ", "))
				return nil
			})
		},
	}
}

func newPipelineResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume [queue]",
		Short: "Resume claiming from one queue, or all queues",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queueName := ""
			if len(args) == 1 {
				queueName = args[0]
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Resume(queueName)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Paused) == 0 {
					fmt.Fprintln(stdout, "All queues running")
					return nil
				}
				fmt.Fprintf(stdout, "Still paused: %s\n", strings.Join(resp.Paused, ", "))
				return nil
			})
		},
	}
}

func newPipelineRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <queue> <entity-id>",
		Short: "Re-run one transcript, insight, or post through a stage",
		Long: "Re-run processing from a stage. The entity id is a transcript id for the\n" +
			"clean and insights queues, an insight id for generate, and a post id for publish.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[1])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PipelineRetry(args[0], id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d is %s\n", resp.JobID, formatStatusLabel(resp.Status))
				return nil
			})
		},
	}
}
