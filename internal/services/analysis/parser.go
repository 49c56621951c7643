package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"leadgate/internal/models"
)

var (
	nameKeys      = []string{"name", "Name", "full_name", "fullName"}
	companyKeys   = []string{"company", "Company", "organization"}
	roleKeys      = []string{"role", "Role", "position", "Position", "title", "Title"}
	rationaleKeys = []string{"reasoning", "symmetric_value", "symmetricValue", "rationale"}
	personaKeys   = []string{"persona", "Persona"}
	summaryKeys   = []string{"summary_analysis", "summaryAnalysis"}
)

// parseResponse validates body against the envelope schema and normalizes it.
func parseResponse(body []byte) (*Result, error) {
	vr, err := envelopeSchema.ValidateBytes(body)
	if err != nil {
		return nil, err
	}
	if !vr.Valid {
		return nil, fmt.Errorf("response does not match contract: %s", vr.Error())
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := &Result{
		Candidates: make([]models.Candidate, 0, len(env.Data)),
		SessionID:  sessionID(env.SessionID, env.SessionIDAlt),
	}

	if env.Strategy != nil {
		result.Strategy = &models.Strategy{
			Persona:         firstString(env.Strategy, personaKeys),
			SummaryAnalysis: firstString(env.Strategy, summaryKeys),
		}
	}

	for i, raw := range env.Data {
		score, err := parseScore(raw["score"])
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		result.Candidates = append(result.Candidates, models.Candidate{
			Score:     score,
			Name:      firstString(raw, nameKeys),
			Role:      firstString(raw, roleKeys),
			Company:   firstString(raw, companyKeys),
			Rationale: firstString(raw, rationaleKeys),
		})
	}

	return result, nil
}

func firstString(m map[string]interface{}, keys []string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(t)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// parseScore accepts numbers and numeric strings. A missing score is zero.
func parseScore(v interface{}) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil || math.IsNaN(f) {
			return 0, fmt.Errorf("score %q is not numeric", t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("score has unexpected type %T", v)
}

func sessionID(values ...interface{}) string {
	for _, v := range values {
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}
