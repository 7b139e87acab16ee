package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bobbin/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show watch session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, status)
				}
				renderStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit status as JSON")
	return cmd
}

func renderStatus(out io.Writer, status *ipc.StatusResponse) {
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Watch Status", colorize) {
		fmt.Fprintln(out, line)
	}

	runningKind := statusError
	runningDetail := "not running"
	if status.Running {
		runningKind = statusOK
		runningDetail = status.Directory
	}
	fmt.Fprintln(out, renderStatusLine("Watching", runningKind, runningDetail, colorize))

	if status.Running {
		pausedKind := statusOK
		if status.Paused {
			pausedKind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine("Paused", pausedKind, yesNo(status.Paused), colorize))
		fmt.Fprintln(out, renderStatusLine("Session", statusInfo, status.SessionID, colorize))
		fmt.Fprintln(out, renderStatusLine("Started", statusInfo, status.StartedAt, colorize))
		fmt.Fprintln(out, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
		fmt.Fprintln(out, renderStatusLine("Events", statusInfo, fmt.Sprintf("%d ingested", status.EventCount), colorize))

		forwardKind := statusInfo
		forwardDetail := "disabled"
		if status.Forwarding {
			forwardKind = statusOK
			forwardDetail = "enabled"
		}
		fmt.Fprintln(out, renderStatusLine("Forwarding", forwardKind, forwardDetail, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Archive", statusInfo, status.ArchivePath, colorize))

	if len(status.Files) == 0 {
		return
	}
	fmt.Fprintln(out)
	rows := make([][]string, 0, len(status.Files))
	for _, file := range status.Files {
		rows = append(rows, []string{file.Name, fmt.Sprintf("%d", file.Offset)})
	}
	fmt.Fprintln(out, renderTable([]string{"File", "Offset"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Suspend parsing while read positions keep advancing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Pause(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Ingestion paused; growth while paused is skipped for good")
				return nil
			})
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume parsing from the current read positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Resume(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Ingestion resumed")
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the watch process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if !resp.Stopped {
					return fmt.Errorf("watch process did not acknowledge the stop request")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Stop requested; the watch process is shutting down")
				return nil
			})
		},
	}
}
