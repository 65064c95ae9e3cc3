package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"strava-notion-sync/internal/store"
)

// Colors
var (
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(18)

	valueStyle = lipgloss.NewStyle().Bold(true)

	successStyle = lipgloss.NewStyle().Bold(true).Foreground(successColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
)

// maxListed caps how many warnings and errors a summary prints
const maxListed = 5

// RenderSummary renders the end-of-run summary box
func RenderSummary(rs *store.RunStats) string {
	var lines []string
	lines = append(lines, titleStyle.Render("Sync "+rs.Timestamp.Format("2006-01-02 15:04 MST")))

	lines = append(lines,
		row("Status", statusText(rs.Status)),
		row("Duration", rs.Duration().Round(time.Second).String()),
		"",
		row("Fetched", rs.Workouts.Fetched),
		row("Created", rs.Workouts.Created),
		row("Updated", rs.Workouts.Updated),
		row("Skipped", rs.Workouts.Skipped),
		row("Failed", rs.Workouts.Failed),
	)

	if rs.DailySummary.Enabled {
		lines = append(lines, row("Daily summaries", fmt.Sprintf("%d days (%d created, %d updated), %d failed",
			rs.DailySummary.DaysProcessed, rs.DailySummary.Created, rs.DailySummary.Updated, rs.DailySummary.Failed)))
	}
	if rs.AthleteMetrics.Enabled {
		lines = append(lines, row("Athlete metrics", fmt.Sprintf("%d upserted, %d failed", rs.AthleteMetrics.Upserted, rs.AthleteMetrics.Failed)))
	}

	lines = append(lines, listed("Warnings", rs.Warnings, warningStyle)...)
	lines = append(lines, listed("Errors", rs.Errors, errorStyle)...)

	return boxStyle.Render(strings.Join(lines, "\n"))
}

// RenderStatus renders recent runs, oldest first, with a chart of fetched
// and failed counts per run
func RenderStatus(runs []store.RunStats, lastSuccess string) string {
	if len(runs) == 0 {
		return boxStyle.Render("No sync runs recorded yet")
	}

	latest := runs[len(runs)-1]
	if lastSuccess == "" {
		lastSuccess = "never"
	}

	var lines []string
	lines = append(lines,
		titleStyle.Render("Sync status"),
		row("Runs recorded", len(runs)),
		row("Last run", latest.Timestamp.Format(time.RFC3339)),
		row("Last status", statusText(latest.Status)),
		row("Last success", lastSuccess),
	)

	if len(runs) > 1 {
		fetched := make([]float64, len(runs))
		failed := make([]float64, len(runs))
		for i, r := range runs {
			fetched[i] = float64(r.Workouts.Fetched)
			failed[i] = float64(r.Workouts.Failed)
		}
		chart := asciigraph.PlotMany([][]float64{fetched, failed},
			asciigraph.Height(8),
			asciigraph.Width(50),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
			asciigraph.Caption("activities fetched (green) / failed (red) per run"),
		)
		lines = append(lines, "", chart)
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}

func row(label string, value any) string {
	return labelStyle.Render(label) + valueStyle.Render(fmt.Sprint(value))
}

func statusText(s store.RunStatus) string {
	if s == store.StatusOK {
		return successStyle.Render(string(s))
	}
	return errorStyle.Render(string(s))
}

func listed(title string, items []string, style lipgloss.Style) []string {
	if len(items) == 0 {
		return nil
	}
	out := []string{"", style.Render(fmt.Sprintf("%s (%d)", title, len(items)))}
	for i, item := range items {
		if i == maxListed {
			out = append(out, style.Render(fmt.Sprintf("  … %d more", len(items)-maxListed)))
			break
		}
		out = append(out, style.Render("  "+item))
	}
	return out
}
