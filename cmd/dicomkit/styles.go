package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	treeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	folderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	inactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Strikethrough(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

// field renders a "label: value" line.
func field(label, value string) string {
	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}
