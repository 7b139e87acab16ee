package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bobbin/internal/archive"
	"bobbin/internal/logevent"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var severity string
	var identifier string
	var session string
	var listSessions bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query the event archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := archive.Open(cfg)
			if err != nil {
				return fmt.Errorf("open archive: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if listSessions {
				sessions, err := store.Sessions(cmd.Context())
				if err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}
				if jsonOut {
					return writeJSON(cmd, sessions)
				}
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No recorded sessions")
					return nil
				}
				rows := make([][]string, 0, len(sessions))
				for _, s := range sessions {
					rows = append(rows, []string{
						s.ID,
						s.Directory,
						s.StartedAt.Format("2006-01-02 15:04:05"),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Session", "Directory", "Started"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft}))
				return nil
			}

			query := archive.Query{
				Limit:      limit,
				Identifier: strings.TrimSpace(identifier),
				Session:    strings.TrimSpace(session),
			}
			if trimmed := strings.TrimSpace(severity); trimmed != "" {
				parsed := logevent.ParseSeverity(trimmed)
				if parsed == logevent.SeverityOther && !strings.EqualFold(trimmed, string(logevent.SeverityOther)) {
					return fmt.Errorf("unknown severity %q (valid: %v)", severity, logevent.AllSeverities())
				}
				query.Severity = parsed
			}

			events, err := store.RecentEvents(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("query events: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd, events)
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No archived events match")
				return nil
			}

			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(events))
			for _, stored := range events {
				ev := stored.Event
				rows = append(rows, []string{
					fmt.Sprintf("%d", stored.ID),
					ev.Timestamp,
					colorizeSeverity(ev.Severity, colorize),
					ev.Identifier,
					ev.Scope,
					ev.Message,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Time", "Severity", "Manager", "Scope", "Message"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of events to return")
	cmd.Flags().StringVar(&severity, "severity", "", "Filter by severity (INFO, WARNING, SEVERE, ...)")
	cmd.Flags().StringVar(&identifier, "identifier", "", "Filter by manager identifier")
	cmd.Flags().StringVar(&session, "session", "", "Filter by session id")
	cmd.Flags().BoolVar(&listSessions, "sessions", false, "List recorded watch sessions instead of events")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit results as JSON")
	return cmd
}
