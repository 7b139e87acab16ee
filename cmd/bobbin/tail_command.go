package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bobbin/internal/ipc"
)

func newTailCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var limit int

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events from the live watch session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				return tailEvents(cmd, client, follow, limit)
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new events")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent events to show")
	return cmd
}

func tailEvents(cmd *cobra.Command, client *ipc.Client, follow bool, limit int) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	// Limit 0 drains the whole buffer; the last entries are the most recent.
	resp, err := client.Events(ipc.EventsRequest{Since: 0, Limit: 0})
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}
	entries := resp.Entries
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	for _, entry := range entries {
		fmt.Fprintln(out, renderEventLine(entry.Event, colorize))
	}

	if !follow {
		if len(entries) == 0 {
			fmt.Fprintln(out, "No events buffered")
		}
		return nil
	}

	cursor := resp.Next
	for {
		resp, err := client.Events(ipc.EventsRequest{Since: cursor, Limit: 100, WaitMillis: 1000})
		if err != nil {
			return fmt.Errorf("follow events: %w", err)
		}
		for _, entry := range resp.Entries {
			fmt.Fprintln(out, renderEventLine(entry.Event, colorize))
		}
		cursor = resp.Next
		select {
		case <-cmd.Context().Done():
			return nil
		default:
		}
	}
}
