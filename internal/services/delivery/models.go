// internal/services/delivery/models.go
package delivery

import "leadgate/internal/models"

// Placeholder stands in for any session value that is missing when the
// report is sent.
const Placeholder = "N/A"

// Request carries everything the report needs.
type Request struct {
	Email           string
	Candidates      []models.Candidate
	Objective       string
	Persona         string
	SummaryAnalysis string
	SessionID       string
}

// Payload is the body posted in ModeReport. Every field is always present.
type Payload struct {
	Email           string             `json:"email"`
	Candidates      []models.Candidate `json:"candidates"`
	Objective       string             `json:"objective"`
	Persona         string             `json:"persona"`
	SummaryAnalysis string             `json:"summary_analysis"`
	SessionID       string             `json:"session_id"`
}

// SubscribePayload is the body posted in ModeSubscribe.
type SubscribePayload struct {
	Email string `json:"email"`
}

// Receipt describes the delivery service's answer; it is only logged.
type Receipt struct {
	StatusCode int
	Body       string
}

// BuildPayload fills missing values with Placeholder and a nil candidate list
// with an empty one.
func BuildPayload(req *Request) Payload {
	candidates := req.Candidates
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	return Payload{
		Email:           orPlaceholder(req.Email),
		Candidates:      candidates,
		Objective:       orPlaceholder(req.Objective),
		Persona:         orPlaceholder(req.Persona),
		SummaryAnalysis: orPlaceholder(req.SummaryAnalysis),
		SessionID:       orPlaceholder(req.SessionID),
	}
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
