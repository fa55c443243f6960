package triage

import "strings"

// Intent is the gate that decides whether a message opens (or continues
// feeding) a case.
type Intent string

const (
	// IntentOrientation is a bare greeting with no symptom cues.
	IntentOrientation Intent = "orientation"
	// IntentClarification is vague distress ("not feeling well") with no
	// concrete symptom cues.
	IntentClarification Intent = "clarification"
	// IntentAwaitingSymptoms is any other message that still carries no
	// symptom cues.
	IntentAwaitingSymptoms Intent = "awaiting_symptoms"
	// IntentSymptomIntake means the message carries enough symptom cues to
	// open or extend a case.
	IntentSymptomIntake Intent = "symptom_intake"
)

const greetingMaxLen = 20

// IntentClassifier labels inbound messages with keyword-set membership tests.
// A message is symptom-bearing when at least two of the four cue tests match,
// or when it contains a direct symptom word on its own.
type IntentClassifier struct {
	bodyParts      []string
	symptomWords   []string
	onsetWords     []string
	intensityWords []string
	greetings      []string
	vaguePhrases   []string
}

func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{
		bodyParts: []string{
			"head", "chest", "stomach", "abdomen", "belly", "arm", "leg",
			"back", "throat", "neck", "eye", "ear", "skin", "shoulder", "knee",
		},
		symptomWords: []string{
			"pain", "ache", "hurts", "hurting", "fever", "cough", "vomit",
			"nausea", "nauseous", "dizzy", "bleeding", "rash", "swelling",
			"headache", "sore", "numb", "weakness", "diarrhea", "breath",
			"seizure", "chills", "cramp",
		},
		onsetWords: []string{
			"since", "yesterday", "today", "this morning", "last night",
			"hours", "days", "weeks", "started", "began", "ago", "sudden",
		},
		intensityWords: []string{
			"severe", "mild", "sharp", "dull", "unbearable", "worst",
			"intense", "crushing", "burning", "throbbing", "constant",
		},
		greetings: []string{
			"hi", "hello", "hey", "good morning", "good afternoon",
			"good evening", "greetings", "yo",
		},
		vaguePhrases: []string{
			"not feeling well", "don't feel well", "dont feel well",
			"feel sick", "feeling sick", "feel bad", "feeling off",
			"under the weather", "feel awful", "feel terrible", "unwell",
		},
	}
}

// Classify labels message. With no symptom cues and no greeting/vague match,
// the session is (still) waiting for symptoms.
func (c *IntentClassifier) Classify(message string) Intent {
	lower := strings.ToLower(strings.TrimSpace(message))
	hasSymptoms := c.HasSymptomCues(lower)

	switch {
	case c.isGreeting(lower) && !hasSymptoms:
		return IntentOrientation
	case containsAny(lower, c.vaguePhrases) && !hasSymptoms:
		return IntentClarification
	case hasSymptoms:
		return IntentSymptomIntake
	default:
		return IntentAwaitingSymptoms
	}
}

// HasSymptomCues runs the four cue tests over lowercased text. Any direct
// symptom word is sufficient on its own; otherwise two of the four sets must
// match.
func (c *IntentClassifier) HasSymptomCues(lower string) bool {
	if containsAny(lower, c.symptomWords) {
		return true
	}
	score := 0
	for _, set := range [][]string{c.bodyParts, c.onsetWords, c.intensityWords} {
		if containsAny(lower, set) {
			score++
		}
	}
	return score >= 2
}

func (c *IntentClassifier) isGreeting(lower string) bool {
	trimmed := strings.Trim(lower, "!. ")
	for _, g := range c.greetings {
		if trimmed == g {
			return true
		}
	}
	return len(trimmed) < greetingMaxLen && containsAny(trimmed, c.greetings)
}
