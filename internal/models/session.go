package models

import "strings"

// Status is the workflow state of a Session. The zero value is StatusIdle.
type Status int

const (
	StatusIdle Status = iota
	StatusAnalyzing
	StatusResultsReady
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAnalyzing:
		return "analyzing"
	case StatusResultsReady:
		return "resultsReady"
	default:
		return "unknown"
	}
}

// SourceFile is one uploaded contact-list file.
type SourceFile struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
}

// Strategy describes how the analysis service ranked the contacts.
type Strategy struct {
	Persona         string `json:"persona"`
	SummaryAnalysis string `json:"summary_analysis"`
}

// Session is the unit of work for one analysis cycle. Its zero value is the
// initial empty session.
type Session struct {
	Objective    string
	SourceFiles  []SourceFile
	Status       Status
	Strategy     *Strategy
	Candidates   []Candidate
	SessionID    string
	Unlocked     bool
	ContactEmail string
}

// CanSubmit reports whether the submit guard is satisfied.
func (s *Session) CanSubmit() bool {
	return s.Status == StatusIdle &&
		strings.TrimSpace(s.Objective) != "" &&
		len(s.SourceFiles) > 0
}

// Persona returns the strategy persona or an empty string when no strategy is set.
func (s *Session) Persona() string {
	if s.Strategy == nil {
		return ""
	}
	return s.Strategy.Persona
}

// SummaryAnalysis returns the strategy summary or an empty string.
func (s *Session) SummaryAnalysis() string {
	if s.Strategy == nil {
		return ""
	}
	return s.Strategy.SummaryAnalysis
}

// Clone returns a copy that shares no slices or pointers with s.
func (s Session) Clone() Session {
	out := s
	if s.SourceFiles != nil {
		out.SourceFiles = make([]SourceFile, len(s.SourceFiles))
		copy(out.SourceFiles, s.SourceFiles)
	}
	if s.Candidates != nil {
		out.Candidates = make([]Candidate, len(s.Candidates))
		copy(out.Candidates, s.Candidates)
	}
	if s.Strategy != nil {
		strategy := *s.Strategy
		out.Strategy = &strategy
	}
	return out
}
