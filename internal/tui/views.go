package tui

import (
	"fmt"
	"strings"

	"ccdash/config/models"
	"ccdash/internal/utils"

	"github.com/charmbracelet/lipgloss"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(true)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	activeSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Background(lipgloss.Color("57")).
				Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(1, 2)
)

// RenderMainView renders the configuration list
func (m Model) RenderMainView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Claude configurations"))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.getEffectiveWidth(40))))
	b.WriteString("\n\n")

	if len(m.summaries) == 0 {
		b.WriteString(dimStyle.Render("No configurations found, press 'a' to add one"))
		b.WriteString("\n")
	} else {
		visible := m.getVisibleListHeight()
		start := m.scrollOffset
		end := start + visible
		if end > len(m.summaries) {
			end = len(m.summaries)
		}

		if start > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ↑ %d more", start)))
			b.WriteString("\n")
		}
		for i := start; i < end; i++ {
			b.WriteString(m.renderConfigLine(i, m.summaries[i]))
			b.WriteString("\n")
		}
		if end < len(m.summaries) {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ↓ %d more", len(m.summaries)-end)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.getEffectiveWidth(40))))
	b.WriteString("\n")
	b.WriteString(m.RenderStatusBar())

	return b.String()
}

// getEffectiveWidth caps the window width for readability
func (m Model) getEffectiveWidth(defaultWidth int) int {
	if m.width <= 0 {
		return defaultWidth
	}
	maxWidth := 80
	if m.width < maxWidth {
		return m.width - 2
	}
	return maxWidth
}

// renderConfigLine renders one configuration and its preview
func (m Model) renderConfigLine(index int, s models.Summary) string {
	isSelected := index == m.cursor

	cursor := "  "
	if isSelected {
		cursor = "> "
	}
	marker := "  "
	if s.IsActive {
		marker = "* "
	}

	content := fmt.Sprintf("%s%s%s (%s)", cursor, marker, s.Name, s.ID)
	preview := dimStyle.Render(fmt.Sprintf("      %s  %s", s.Preview.Model, truncate(utils.ExtractHost(s.Preview.BaseURL), 40)))

	var line string
	switch {
	case isSelected && s.IsActive:
		line = activeSelectedStyle.Render(content)
	case isSelected:
		line = selectedStyle.Render(content)
	case s.IsActive:
		line = activeStyle.Render(content)
	default:
		line = normalStyle.Render(content)
	}
	return line + "\n" + preview
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

// RenderDeleteConfirm renders the delete confirmation dialog
func (m Model) RenderDeleteConfirm() string {
	sel := m.selected()
	if sel == nil {
		return m.RenderMainView()
	}

	var b strings.Builder
	b.WriteString(errorStyle.Render("Delete configuration?"))
	b.WriteString("\n\n")
	b.WriteString(normalStyle.Render(fmt.Sprintf("%s (%s)", sel.Name, sel.ID)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(sel.File))
	if sel.IsActive {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render("This configuration is active and cannot be deleted."))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("y confirm │ n/esc cancel"))

	return dialogStyle.Render(b.String())
}

// RenderHelpView renders the full key binding list
func (m Model) RenderHelpView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys"))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.getEffectiveWidth(40))))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("esc/? close"))
	return b.String()
}

// RenderStatusBar renders messages and the short key help
func (m Model) RenderStatusBar() string {
	var b strings.Builder
	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + " working...")
		b.WriteString("\n")
	case m.errorMsg != "":
		b.WriteString(errorStyle.Render("✗ " + m.errorMsg))
		b.WriteString("\n")
	case m.message != "":
		b.WriteString(messageStyle.Render("✓ " + m.message))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
