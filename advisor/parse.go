package advisor

import (
	"encoding/json"
	"strings"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

type rawAdvisory struct {
	Score           int                       `json:"score"`
	Summary         string                    `json:"summary"`
	Risks           []interfaces.AdvisoryRisk `json:"risks"`
	Recommendations []string                  `json:"recommendations"`
}

// parseAdvisory converts raw model output into a well-typed advisory.
// It never fails: a strict parse wins, an embedded JSON object extracted
// from prose is tagged as lower confidence, and anything else produces a
// neutral placeholder.
func parseAdvisory(raw string) *interfaces.Advisory {
	var parsed rawAdvisory
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err == nil && parsed.Summary != "" {
		return buildAdvisory(parsed, interfaces.ConfidenceStrict)
	}

	if extracted, ok := extractJSONObject(raw); ok {
		if err := json.Unmarshal([]byte(extracted), &parsed); err == nil && parsed.Summary != "" {
			return buildAdvisory(parsed, interfaces.ConfidenceExtracted)
		}
	}

	return &interfaces.Advisory{
		Score:      placeholderScore,
		Summary:    "Automated analysis completed but the model response could not be parsed. Manual review recommended.",
		Confidence: interfaces.ConfidencePlaceholder,
	}
}

func buildAdvisory(parsed rawAdvisory, confidence interfaces.AdvisoryConfidence) *interfaces.Advisory {
	return &interfaces.Advisory{
		Score:           clampScore(parsed.Score),
		Summary:         parsed.Summary,
		Risks:           parsed.Risks,
		Recommendations: parsed.Recommendations,
		Confidence:      confidence,
	}
}

func clampScore(score int) int {
	if score < interfaces.MinScore {
		return interfaces.MinScore
	}
	if score > interfaces.MaxScore {
		return interfaces.MaxScore
	}
	return score
}

// extractJSONObject finds the outermost {...} span in text. Models often
// wrap the requested JSON in markdown fences or prose.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
