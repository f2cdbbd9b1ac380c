package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ipc"
)

func newTranscriptCommand(ctx *commandContext) *cobra.Command {
	transcriptCmd := &cobra.Command{
		Use:   "transcript",
		Short: "Transcript intake and tracking",
	}
	transcriptCmd.AddCommand(newTranscriptAddCommand(ctx))
	transcriptCmd.AddCommand(newTranscriptListCommand(ctx))
	transcriptCmd.AddCommand(newTranscriptStatusCommand(ctx))
	transcriptCmd.AddCommand(newTranscriptCancelCommand(ctx))
	return transcriptCmd
}

func newTranscriptAddCommand(ctx *commandContext) *cobra.Command {
	var title string
	var filePath string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit a raw transcript for processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, sourceName, err := readTranscriptBody(cmd.InOrStdin(), filePath)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(title)
			if name == "" {
				name = sourceName
			}
			if name == "" {
				return fmt.Errorf("a title is required (use --title or --file)")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TranscriptAdd(name, body)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Transcript %d queued for cleaning (job %d)\n",
					resp.TranscriptID, resp.JobID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Transcript title")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read the transcript from a file instead of stdin")
	return cmd
}

func readTranscriptBody(stdin io.Reader, filePath string) (body, sourceName string, err error) {
	if strings.TrimSpace(filePath) != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", "", fmt.Errorf("read transcript file: %w", err)
		}
		name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
		return string(data), name, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", "", fmt.Errorf("read transcript from stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", "", fmt.Errorf("transcript content is empty (pipe text in or use --file)")
	}
	return string(data), "", nil
}

func newTranscriptListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TranscriptList(statuses)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Items)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(stdout, "No transcripts")
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
						truncate(item.Title, 40),
						fmt.Sprintf("%d", item.WordCount),
						detail,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Title", "Words", "Status"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (raw, cleaning, cleaned, extracting, extracted, failed, cancelled)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newTranscriptStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <transcript-id>",
		Short: "Show a transcript's pipeline progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Progress(id)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Detail != "" {
					fmt.Fprintf(stdout, "Transcript %d: %s (%s)\n", resp.TranscriptID, formatStatusLabel(resp.State), resp.Detail)
				} else {
					fmt.Fprintf(stdout, "Transcript %d: %s\n", resp.TranscriptID, formatStatusLabel(resp.State))
				}
				return nil
			})
		},
	}
}

func newTranscriptCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <transcript-id>",
		Short: "Withdraw a transcript from the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Cancel(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Transcript %d cancelled; in-flight work finishes but nothing advances\n", id)
				return nil
			})
		},
	}
}
