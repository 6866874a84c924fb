// Package ui implements the terminal dashboard for the long-lived watch mode.
package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/jirafeed/jirafeed/internal/filterfeed/feed"
)

// detailIssueLimit caps the number of issues shown in the detail pane for the
// selected filter.
const detailIssueLimit = 10

// Feed is the coordinator surface the dashboard consumes: the published
// snapshot, an update stream and a manual-refresh trigger.
type Feed interface {
	Snapshot() *feed.Cycle
	Updates() <-chan *feed.Cycle
	TriggerNow()
}

type cycleMsg *feed.Cycle

// Model renders the current refresh cycle: one row per filter plus a detail
// pane for the selected filter.
type Model struct {
	feed    Feed
	table   table.Model
	spinner spinner.Model
	cycle   *feed.Cycle
	width   int
	height  int
}

// NewModel creates the dashboard model over a running feed.
func NewModel(f Feed) Model {
	columns := []table.Column{
		{Title: "Filter", Width: 24},
		{Title: "Count", Width: 6},
		{Title: "Most Recent", Width: 14},
		{Title: "Updated", Width: 16},
		{Title: "Status", Width: 30},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(2),
	)

	s := table.DefaultStyles()
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("240")).
		Bold(true)
	t.SetStyles(s)

	m := Model{
		feed:    f,
		table:   t,
		spinner: spinner.New(spinner.WithSpinner(spinner.Points)),
		cycle:   f.Snapshot(),
	}
	m.updateTable()
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForCycle())
}

func (m Model) waitForCycle() tea.Cmd {
	return func() tea.Msg {
		return cycleMsg(<-m.feed.Updates())
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case cycleMsg:
		m.cycle = msg
		m.updateTable()
		return m, m.waitForCycle()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.feed.TriggerNow()
			return m, nil
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	cmds = append(cmds, cmd)
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View renders the model
func (m Model) View() string {
	var s strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	s.WriteString(headerStyle.Render("Jira Filters"))
	s.WriteString("\n")

	if m.cycle == nil {
		s.WriteString(m.spinner.View())
		s.WriteString(" fetching filters...\n")
		s.WriteString(helpView())
		return s.String()
	}

	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	s.WriteString(infoStyle.Render(fmt.Sprintf("Refreshed: %s (%s ago)",
		m.cycle.RefreshedAt.Local().Format("2006-01-02 15:04:05"),
		time.Since(m.cycle.RefreshedAt).Truncate(time.Second))))
	s.WriteString("\n\n")

	s.WriteString(m.table.View())
	s.WriteString("\n")

	s.WriteString(m.detailView())
	s.WriteString(helpView())
	return s.String()
}

func helpView() string {
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	return helpStyle.Render("Press 'r' to refresh now, 'q' to quit, arrow keys to navigate")
}

// detailView shows the first few issues of the selected filter.
func (m Model) detailView() string {
	if m.cycle == nil || len(m.cycle.Order) == 0 {
		return ""
	}

	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.cycle.Order) {
		return ""
	}
	result := m.cycle.Results[m.cycle.Order[cursor]]

	var s strings.Builder
	titleStyle := lipgloss.NewStyle().Bold(true).MarginTop(1)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	if result.Error != "" {
		errStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")).MarginTop(1)
		s.WriteString(errStyle.Render(fmt.Sprintf("Filter failed: %s", result.Error)))
		s.WriteString("\n")
		s.WriteString(dimStyle.Render("Showing data from the last successful refresh, if any"))
		s.WriteString("\n")
		return s.String()
	}

	s.WriteString(titleStyle.Render(fmt.Sprintf("JQL: %s", result.JQL)))
	s.WriteString("\n")

	limit := len(result.Issues)
	if limit > detailIssueLimit {
		limit = detailIssueLimit
	}
	for _, issue := range result.Issues[:limit] {
		status := ""
		if issue.Status.Name != nil {
			status = *issue.Status.Name
		}
		line := fmt.Sprintf("  %s  %s (%s)", issue.Key, issue.Summary, status)
		s.WriteString(truncate.StringWithTail(line, uint(max(m.width-2, 40)), "…"))
		s.WriteString("\n")
	}
	if len(result.Issues) > detailIssueLimit {
		s.WriteString(dimStyle.Render(fmt.Sprintf("  ... and %d more", len(result.Issues)-detailIssueLimit)))
		s.WriteString("\n")
	}
	return s.String()
}

// updateTable rebuilds the per-filter rows from the current cycle.
func (m *Model) updateTable() {
	if m.cycle == nil {
		return
	}

	var rows []table.Row
	for _, filterID := range m.cycle.Order {
		result := m.cycle.Results[filterID]

		mostRecent, updated := "", ""
		if result.MostRecent != nil {
			mostRecent = result.MostRecent.Key
			updated = result.MostRecent.UpdatedHuman
		}

		status := "ok"
		if result.Error != "" {
			status = truncate.StringWithTail("ERROR: "+result.Error, 30, "…")
		}

		rows = append(rows, table.Row{
			result.FilterName,
			strconv.Itoa(result.TotalCount),
			mostRecent,
			updated,
			status,
		})
	}

	m.table.SetRows(rows)
	m.table.SetHeight(min(len(rows), 15) + 1)
}
