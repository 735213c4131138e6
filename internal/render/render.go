// Package render formats decisions and the association table for terminals.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
	"github.com/danielpatrickdp/feedback-layer/internal/selector"
)

// #region styles
var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	modeStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const cellWidth = 8

// #endregion styles

// #region decision
// Decision renders the selected mode and, when present, the ranking.
func Decision(id, mode string, ranking []selector.Ranked) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Selected mode: "))
	b.WriteString(modeStyle.Render(mode))
	if id != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("decision " + id))
	}
	for i, r := range ranking {
		b.WriteString("\n")
		marker := "  "
		if i == 0 {
			marker = "> "
		}
		b.WriteString(fmt.Sprintf("%s%-12s %s", marker, r.Mode, value(r.Score, "%.3f")))
	}
	return boxStyle.Render(b.String())
}

// #endregion decision

// #region matrix
// Matrix renders β as a modes × tokens grid. Columns are the configured
// tokens followed by any other token present in entries; unset cells show
// as a dot.
func Matrix(modes, tokens []string, entries []association.Entry) string {
	cols := columns(tokens, entries)
	cells := make(map[association.Key]float64, len(entries))
	for _, e := range entries {
		cells[e.Key] = e.Value
	}

	rowWidth := 4
	for _, m := range modes {
		if len(m) > rowWidth {
			rowWidth = len(m)
		}
	}
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = max(cellWidth, len(c)+1)
	}

	var lines []string
	header := []string{lipgloss.NewStyle().Width(rowWidth).Render("β")}
	for i, c := range cols {
		header = append(header, headerStyle.Width(widths[i]).Align(lipgloss.Right).Render(c))
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, header...))

	for _, m := range modes {
		row := []string{modeStyle.Width(rowWidth).Render(m)}
		for i, t := range cols {
			cell := mutedStyle.Render(".")
			if v, ok := cells[association.Key{Mode: m, Token: t}]; ok {
				cell = value(v, "%+.2f")
			}
			row = append(row, lipgloss.NewStyle().Width(widths[i]).Align(lipgloss.Right).Render(cell))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func columns(tokens []string, entries []association.Entry) []string {
	seen := make(map[string]struct{}, len(tokens))
	cols := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		cols = append(cols, t)
	}
	var extra []string
	for _, e := range entries {
		if _, ok := seen[e.Token]; ok {
			continue
		}
		seen[e.Token] = struct{}{}
		extra = append(extra, e.Token)
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// #endregion matrix

// #region flat
// Flat renders one "mode|token: value" line per entry, in entry order.
func Flat(entries []association.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s|%s: %.3f\n", e.Mode, e.Token, e.Value)
	}
	return b.String()
}

// #endregion flat

func value(v float64, format string) string {
	s := fmt.Sprintf(format, v)
	switch {
	case v > 0:
		return positiveStyle.Render(s)
	case v < 0:
		return negativeStyle.Render(s)
	default:
		return s
	}
}
