package triage

import "strings"

// containsAny reports whether any keyword appears as a substring of text.
// Callers are expected to pass text already lowercased.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// OrganSystem is the body system a case is locked to.
type OrganSystem string

const (
	OrganNeurological     OrganSystem = "neurological"
	OrganCardiovascular   OrganSystem = "cardiovascular"
	OrganRespiratory      OrganSystem = "respiratory"
	OrganGastrointestinal OrganSystem = "gastrointestinal"
	OrganUnspecified      OrganSystem = "unspecified"
)

var organKeywords = []struct {
	system   OrganSystem
	keywords []string
}{
	{OrganNeurological, []string{"headache", "confusion", "weakness", "numbness", "seizure", "stroke", "brain", "neck stiffness"}},
	{OrganCardiovascular, []string{"chest pain", "heart", "palpitation", "cardiac"}},
	{OrganRespiratory, []string{"breathing", "cough", "lung", "respiratory", "short of breath"}},
	{OrganGastrointestinal, []string{"stomach", "abdomen", "belly", "nausea", "vomit", "diarrhea"}},
}

// DetectOrganSystem picks the primary organ system mentioned in text.
// Neurological cues take precedence, matching the order above.
func DetectOrganSystem(text string) OrganSystem {
	lower := strings.ToLower(text)
	for _, entry := range organKeywords {
		if containsAny(lower, entry.keywords) {
			return entry.system
		}
	}
	return OrganUnspecified
}
