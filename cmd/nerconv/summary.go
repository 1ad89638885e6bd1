package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gomlx/go-nerconv/ner"
	"github.com/gomlx/go-nerconv/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	keyStyle   = lipgloss.NewStyle().Width(24).Foreground(lipgloss.Color("8"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// renderSummary returns the end of run report printed to the terminal.
func renderSummary(stats pipeline.Stats, result string) string {
	row := func(key string, value int) string {
		text := fmt.Sprintf("%d", value)
		if value > 0 && key != "records" && key != "written" {
			text = warnStyle.Render(text)
		}
		return keyStyle.Render(key) + text
	}

	lines := []string{
		titleStyle.Render("Saved " + result),
		row("records", stats.Records),
		row("written", stats.Written),
		row("failed", stats.Failed),
		row("offset fallbacks", stats.Fallbacks),
	}
	for reason := ner.SkipEmptySurface; reason <= ner.SkipDuplicate; reason++ {
		if n := stats.Skipped[reason]; n > 0 {
			lines = append(lines, row("skipped "+strings.ReplaceAll(reason.String(), "_", " "), n))
		}
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
