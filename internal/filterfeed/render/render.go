// Package render serializes refresh cycles: compact JSON for machine
// consumption and colored tables for terminals. Pure presentation over the
// engine's output records.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/reflow/truncate"

	"github.com/jirafeed/jirafeed/internal/filterfeed/feed"
)

// JSON writes the cycle as a compact JSON document: an array with one element
// when a single filter is configured, otherwise a mapping from filter id to
// result.
func JSON(w io.Writer, cycle *feed.Cycle) error {
	var payload any
	if len(cycle.Order) == 1 {
		payload = []feed.FilterResult{cycle.Results[cycle.Order[0]]}
	} else {
		payload = cycle.Results
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cannot marshal results: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// ErrorJSON writes a structured error object for unrecoverable runtime
// failures, so callers always receive JSON on stdout even when a run crashes.
func ErrorJSON(w io.Writer, runErr error, now time.Time) error {
	payload := map[string]string{
		"error":     runErr.Error(),
		"source":    "error",
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cannot marshal error payload: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

const summaryColumnWidth = 50

var (
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	keyStyle     = lipgloss.NewStyle().Bold(true)
)

// Table writes a human-readable rendering of the cycle: a summary block plus a
// compact issues table per filter.
func Table(w io.Writer, cycle *feed.Cycle) error {
	fmt.Fprintln(w, bannerStyle.Render("JIRA FILTER RESULTS"))

	for index, filterID := range cycle.Order {
		result := cycle.Results[filterID]

		fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("[%d] %s (ID: %s)", index+1, result.FilterName, result.FilterID)))
		if result.Error != "" {
			fmt.Fprintf(w, "%s %s\n\n", errStyle.Render("Error:"), result.Error)
			continue
		}

		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("JQL:"), result.JQL)
		fmt.Fprintf(w, "%s %d\n", labelStyle.Render("Total Returned:"), result.TotalCount)
		if result.MostRecent != nil {
			fmt.Fprintf(w, "%s %s - %s\n", labelStyle.Render("Most Recent:"), result.MostRecent.Key, result.MostRecent.Summary)
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Last Updated:"), result.MostRecent.UpdatedHuman)
		} else {
			fmt.Fprintf(w, "%s No tickets found\n", labelStyle.Render("Most Recent:"))
		}

		if len(result.Issues) == 0 {
			fmt.Fprintln(w, dimStyle.Render("(no issues)"))
			fmt.Fprintln(w)
			continue
		}

		issueTable := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(dimStyle).
			Headers("KEY", "SUMMARY", "STATUS", "ASSIGNEE", "PRIORITY", "UPDATED")

		for _, issue := range result.Issues {
			statusName := ""
			if issue.Status.Name != nil {
				statusName = *issue.Status.Name
			}
			assignee := ""
			if issue.Assignee != nil {
				if issue.Assignee.DisplayName != nil {
					assignee = *issue.Assignee.DisplayName
				} else if issue.Assignee.EmailAddress != nil {
					assignee = *issue.Assignee.EmailAddress
				}
			}
			priority := ""
			if issue.Priority != nil {
				priority = *issue.Priority
			}

			issueTable.Row(
				keyStyle.Render(issue.Key),
				cell(issue.Summary, summaryColumnWidth),
				statusStyle(statusName).Render(statusName),
				dimStyle.Render(assignee),
				priorityStyle(priority).Render(priority),
				dimStyle.Render(issue.Updated),
			)
		}

		fmt.Fprintln(w, issueTable.Render())
		fmt.Fprintln(w)
	}

	return nil
}

// cell flattens a value to a single line and truncates it to the column width.
func cell(value string, width int) string {
	flattened := strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
	return truncate.StringWithTail(flattened, uint(width), "…")
}

func statusStyle(status string) lipgloss.Style {
	lowered := strings.ToLower(status)
	switch {
	case containsAny(lowered, "done", "closed", "resolved"):
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	case containsAny(lowered, "in progress", "in review", "qa", "testing"):
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	case containsAny(lowered, "todo", "to do", "open", "backlog"):
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	case containsAny(lowered, "blocked", "failed", "error"):
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	}
	return lipgloss.NewStyle()
}

func priorityStyle(priority string) lipgloss.Style {
	lowered := strings.ToLower(priority)
	switch {
	case strings.Contains(lowered, "highest"):
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	case strings.Contains(lowered, "high"):
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	case strings.Contains(lowered, "medium"):
		return lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	case strings.Contains(lowered, "lowest"):
		return lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	case strings.Contains(lowered, "low"):
		return lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	}
	return lipgloss.NewStyle()
}

func containsAny(value string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(value, needle) {
			return true
		}
	}
	return false
}
