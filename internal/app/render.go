package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stage-tracker/internal/aggregate"
	"stage-tracker/internal/domain"
	"stage-tracker/internal/tracker"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)
)

// RenderSummary draws the per-stage totals of a session.
func RenderSummary(s aggregate.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render("Session summary"))
	fmt.Fprintf(&b, "Token:     %s\n", s.Token)
	fmt.Fprintf(&b, "Reference: %s\n\n", s.Reference)
	if len(s.Groups) == 0 {
		b.WriteString(mutedStyle.Render("no stages were tracked"))
		b.WriteString("\n")
	}
	for _, g := range s.Groups {
		fmt.Fprintf(&b, "%s (%s): %s\n", g.Name, g.Code, aggregate.FormatDuration(g.Seconds))
	}
	fmt.Fprintf(&b, "\nTotal: %s", activeStyle.Render(aggregate.FormatDuration(s.Total)))
	return boxStyle.Render(b.String())
}

func RenderStages(stages []domain.Stage) string {
	var b strings.Builder
	for _, s := range stages {
		fmt.Fprintf(&b, "%2d. %-20s %s %s\n", s.Ordinal, s.Name, mutedStyle.Render(s.Code), mutedStyle.Render("["+s.Key+"]"))
	}
	return b.String()
}

func RenderStatus(st tracker.Status) string {
	total := "Total time: " + aggregate.FormatDuration(st.Elapsed)
	if st.Active == nil {
		return idleStyle.Render("idle") + "  " + total
	}
	return activeStyle.Render("● "+st.Active.Name) +
		fmt.Sprintf(" (%s) since %s  ", st.Active.Code, domain.FormatTimeOfDay(st.Since)) + total
}

// RenderSessions lists logged sessions one per line.
func RenderSessions(sessions []domain.LoggedSession) string {
	if len(sessions) == 0 {
		return mutedStyle.Render("no sessions") + "\n"
	}
	var b strings.Builder
	for _, s := range sessions {
		fmt.Fprintf(&b, "%s  %s  %-20s %s\n",
			s.FinalizedAt, s.Token, s.Reference,
			mutedStyle.Render(aggregate.FormatDuration(aggregate.TotalElapsed(s.Intervals))))
	}
	return b.String()
}

// RenderIntervals shows intervals numbered from 1, as edit rows are addressed.
func RenderIntervals(intervals []domain.Interval) string {
	var b strings.Builder
	for i, iv := range intervals {
		fmt.Fprintf(&b, "%2d. %-20s %s  %s - %s  %s\n",
			i+1, iv.StageName, iv.StageCode, iv.Start, iv.End, aggregate.FormatDuration(iv.ElapsedSec))
	}
	return b.String()
}
