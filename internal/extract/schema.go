package extract

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema validates the model's JSON output before any field is
// trusted. Model output is adversarial input: a malformed item must never
// reach the consolidator.
const responseSchema = `{
	"type": "object",
	"required": ["facts"],
	"properties": {
		"facts": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "type", "value"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"type": {"enum": ["quantity", "categorical"]},
					"value": {"type": "string"},
					"unit": {"type": "string"},
					"evidence": {"type": "string"},
					"confidence": {"type": "number", "minimum": 0, "maximum": 1}
				}
			}
		}
	}
}`

var compiledSchema = jsonschema.MustCompileString("response.json", responseSchema)

// extractionResponse is the expected shape of a model reply.
type extractionResponse struct {
	Facts []extractedFact `json:"facts"`
}

type extractedFact struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Unit       string  `json:"unit,omitempty"`
	Evidence   string  `json:"evidence,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// parseResponse strips optional code fences, validates against the response
// schema and decodes. Returns an error for anything that does not conform.
func parseResponse(text string) (*extractionResponse, error) {
	raw := stripFences(text)
	if raw == "" {
		return nil, eris.New("extract: empty model response")
	}

	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, eris.Wrap(err, "extract: response is not valid JSON")
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, eris.Wrap(err, "extract: response does not match schema")
	}

	var resp extractionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, eris.Wrap(err, "extract: decode response")
	}
	return &resp, nil
}

// stripFences removes a markdown code fence wrapper if present.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
