// internal/models/candidate.go
package models

import (
	"strconv"
	"strings"
)

// Placeholder is rendered in place of a missing display string.
const Placeholder = "—"

// Candidate is one scored contact, in the rank order returned by the service.
type Candidate struct {
	Score     float64 `json:"score"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	Company   string  `json:"company"`
	Rationale string  `json:"reasoning"`
}

func (c Candidate) DisplayName() string    { return orPlaceholder(c.Name) }
func (c Candidate) DisplayRole() string    { return orPlaceholder(c.Role) }
func (c Candidate) DisplayCompany() string { return orPlaceholder(c.Company) }

// DisplayScore formats the score without assuming any particular range.
func (c Candidate) DisplayScore() string {
	return strconv.FormatFloat(c.Score, 'g', -1, 64)
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}
