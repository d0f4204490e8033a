package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"leadscout/pkg/models"
	"leadscout/pkg/pipeline"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(magenta).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(magenta).
			Padding(0, 2)
)

// RenderUsers renders ranked users as a table
func RenderUsers(users []models.RankedUser) string {
	if len(users) == 0 {
		return dimStyle.Render("No active users found")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(dim)).
		Headers("#", "USER", "POSTS", "COMMENTS", "TOTAL", "KARMA", "SUBREDDITS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for i, u := range users {
		t.Row(
			strconv.Itoa(i+1),
			"u/"+u.Username,
			strconv.Itoa(u.Posts),
			strconv.Itoa(u.Comments),
			strconv.Itoa(u.TotalActivity),
			strconv.Itoa(u.Karma),
			strings.Join(u.Subreddits, ", "),
		)
	}
	return t.String()
}

// RenderReport renders a run summary panel
func RenderReport(r pipeline.RunReport) string {
	lines := []string{
		highlightStyle.Render(strings.ToUpper(r.Job) + " RUN"),
		reportLine("Subreddits", fmt.Sprintf("%d (%d failed)", r.Subreddits, r.Failed)),
		reportLine("Fetched", strconv.Itoa(r.Fetched)),
		reportLine("Qualified", strconv.Itoa(r.Qualified)),
		reportLine("Notified", strconv.Itoa(r.Notified)),
		reportLine("Skipped", strconv.Itoa(r.Skipped)),
		reportLine("Duration", r.Duration.Round(1e6).String()),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func reportLine(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-11s", label)) + valueStyle.Render(value)
}
