package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stage-tracker/internal/app"
	"stage-tracker/internal/edit"
)

func (c *cli) logsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Browse, edit or clear the session log",
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every logged session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listing, err := c.app.Logs(cmd.Context())
			if err != nil {
				return err
			}
			if listing.Recovered {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: the session log was unreadable and has been reset")
			}
			return writeOutput(cmd.OutOrStdout(), output, app.NewSessionViews(listing.Sessions), func() string {
				return app.RenderSessions(listing.Sessions)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search QUERY",
		Short: "Find sessions by finalization time, token or reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := c.app.SearchLogs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, app.NewSessionViews(found), func() string {
				return app.RenderSessions(found)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show TOKEN",
		Short: "Show the per-stage summary of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := c.app.LogDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, app.NewSummaryView(sum), func() string {
				return app.RenderSummary(sum) + "\n" + app.RenderIntervals(sum.Intervals)
			})
		},
	})

	var rowFlags []string
	editCmd := &cobra.Command{
		Use:   "edit TOKEN",
		Short: "Change start and end times of a session's intervals",
		Long: `Rows are numbered as "logs show" lists them, sorted by start time.
Each --row N=START,END replaces one row; rows not named are kept.
A row set to empty times (--row N=,) is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.app.BeginEdit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows, err := buildRows(s, rowFlags)
			if err != nil {
				return err
			}
			saved, err := c.app.SaveEdit(cmd.Context(), s, rows)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, app.NewIntervalViews(saved), func() string {
				return app.RenderIntervals(saved)
			})
		},
	}
	editCmd.Flags().StringArrayVar(&rowFlags, "row", nil, "row edit as N=START,END (repeatable)")
	cmd.AddCommand(editCmd)

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every logged session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the session log without --yes")
			}
			if err := c.app.ClearLogs(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session log cleared")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting every session")
	cmd.AddCommand(clearCmd)

	return cmd
}

// buildRows keeps every row of the session and replaces the ones named by an
// N=START,END flag, N being 1-based.
func buildRows(s *edit.Session, flags []string) ([]edit.Row, error) {
	rows := make([]edit.Row, len(s.Intervals))
	for i, iv := range s.Intervals {
		rows[i] = edit.Row{Start: iv.Start, End: iv.End, Keep: true}
	}
	for _, f := range flags {
		idx, times, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("--row %q: want N=START,END", f)
		}
		n, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil || n < 1 || n > len(rows) {
			return nil, fmt.Errorf("--row %q: row must be between 1 and %d", f, len(rows))
		}
		start, end, _ := strings.Cut(times, ",")
		rows[n-1] = edit.Row{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
	}
	return rows, nil
}
