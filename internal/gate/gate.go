// Package gate derives which ranked candidates may be shown for a session.
package gate

import (
	"strconv"

	"leadgate/internal/models"
)

// PreviewSize is how many candidates a locked session reveals.
const PreviewSize = 3

// Visible returns the candidates that may be rendered. A locked result set is
// truncated to its first PreviewSize rows. The returned slice is a copy in the
// original order.
func Visible(candidates []models.Candidate, unlocked bool) []models.Candidate {
	n := len(candidates)
	if !unlocked && n > PreviewSize {
		n = PreviewSize
	}
	out := make([]models.Candidate, n)
	copy(out, candidates[:n])
	return out
}

// Hidden returns how many candidates are withheld by the gate.
func Hidden(candidates []models.Candidate, unlocked bool) int {
	if unlocked || len(candidates) <= PreviewSize {
		return 0
	}
	return len(candidates) - PreviewSize
}

// Caption describes the visible subset the way the results header shows it.
func Caption(candidates []models.Candidate, unlocked bool) string {
	if unlocked {
		return "Showing all " + strconv.Itoa(len(candidates)) + " candidates."
	}
	return "Showing Top " + strconv.Itoa(PreviewSize) + " Preview."
}
