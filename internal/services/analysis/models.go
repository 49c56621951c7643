// internal/services/analysis/models.go
package analysis

import "leadgate/internal/models"

// Request is one analysis submission.
type Request struct {
	Objective string
	Files     []models.SourceFile
	// ScanID correlates the call in logs and traces; it is not sent as a
	// form field.
	ScanID string
}

// Result is the normalized analysis response.
type Result struct {
	Strategy   *models.Strategy
	Candidates []models.Candidate
	SessionID  string
}

// envelope is the raw response shape before normalization.
type envelope struct {
	Strategy     map[string]interface{}   `json:"strategy"`
	Data         []map[string]interface{} `json:"data"`
	SessionID    interface{}              `json:"session_id"`
	SessionIDAlt interface{}              `json:"sessionId"`
}
