package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"leadgate/internal/models"
)

const rationaleWidth = 48

var candidateHeaders = []string{"#", "Score", "Name", "Role", "Company", "Why"}

// renderCandidates draws the visible rows. Rows keep the service's order.
func renderCandidates(rows []models.Candidate, styles Styles) string {
	if len(rows) == 0 {
		return styles.Muted.Render("No candidates matched.") + "\n"
	}

	cells := make([][]string, len(rows))
	for i, c := range rows {
		cells[i] = []string{
			strconv.Itoa(i + 1),
			c.DisplayScore(),
			c.DisplayName(),
			c.DisplayRole(),
			c.DisplayCompany(),
			truncate(c.Rationale, rationaleWidth),
		}
	}

	widths := make([]int, len(candidateHeaders))
	for i, h := range candidateHeaders {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range cells {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	for i := range widths {
		widths[i] += 2
	}

	headerStyle := styles.Bold.Padding(0, 1)
	rowStyle := styles.Body.Padding(0, 1)
	scoreStyle := styles.Score.Padding(0, 1)

	var sb strings.Builder
	for i, h := range candidateHeaders {
		sb.WriteString(headerStyle.Width(widths[i]).Render(h))
	}
	sb.WriteString("\n")

	total := 0
	for _, w := range widths {
		total += w
	}
	sb.WriteString(styles.Muted.Render(strings.Repeat("─", total)) + "\n")

	for _, row := range cells {
		for i, cell := range row {
			style := rowStyle
			if i == 1 {
				style = scoreStyle
			}
			sb.WriteString(style.Width(widths[i]).Render(cell))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func truncate(s string, limit int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= limit {
		return string(r)
	}
	return string(r[:limit-1]) + "…"
}
