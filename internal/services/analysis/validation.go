package analysis

import "leadgate/internal/common/validation"

// responseSchema is the minimum contract a response must meet before it is
// normalized. Field-name variants inside candidates are tolerated.
const responseSchema = `{
  "type": "object",
  "required": ["data"],
  "properties": {
    "strategy": {
      "type": ["object", "null"],
      "properties": {
        "persona":          {"type": ["string", "null"]},
        "summary_analysis": {"type": ["string", "null"]},
        "summaryAnalysis":  {"type": ["string", "null"]}
      }
    },
    "data": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "score": {"type": ["number", "string", "null"]}
        }
      }
    },
    "session_id": {"type": ["string", "number", "null"]},
    "sessionId":  {"type": ["string", "number", "null"]}
  }
}`

var envelopeSchema = validation.MustCompile(responseSchema)
