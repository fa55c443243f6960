package agent

// prompt.go builds the instruction block sent to the text generator. The
// clinical frame is computed upstream and locked; the prompt only restates it
// and fences the generator in.

import (
	"fmt"
	"sort"
	"strings"

	"triage-intake-agent/internal/chat"
)

// BuildSystemPrompt renders the locked clinical context as the system
// instruction block.
func BuildSystemPrompt(cc chat.ClinicalContext) string {
	var b strings.Builder

	b.WriteString("You are a medical information assistant (NOT a doctor).\n\n")
	b.WriteString("CLINICAL CONTEXT (LOCKED):\n")
	fmt.Fprintf(&b, "Original symptoms: %s\n", cc.InitialSymptoms)
	fmt.Fprintf(&b, "Organ system: %s\n", cc.OrganSystem)
	fmt.Fprintf(&b, "Urgency tier: %s\n", cc.Tier)
	fmt.Fprintf(&b, "Severity score: %d (%s)\n", cc.SeverityScore, formatFactors(cc.SeverityFactors))
	if len(cc.FollowUps) > 0 {
		fmt.Fprintf(&b, "Follow-up responses: %s\n", strings.Join(cc.FollowUps, " | "))
	} else {
		b.WriteString("This is the initial consultation.\n")
	}
	if p := cc.Profile; p != nil {
		b.WriteString(formatProfile(p))
	}

	b.WriteString("\nSAFETY RULES:\n")
	b.WriteString("1. Base ALL assessment on the original symptoms above - no reinterpretation.\n")
	b.WriteString("2. Follow-ups can only confirm, deny or clarify the original symptoms.\n")
	b.WriteString("3. Never introduce symptoms the user did not state.\n")
	fmt.Fprintf(&b, "4. Never switch organ systems (locked to %s).\n", cc.OrganSystem)
	b.WriteString("5. Always reference the computed severity score, never narrative severity.\n")

	if len(cc.RiskWeights) > 0 {
		b.WriteString("\nDIFFERENTIAL EMPHASIS (relative weights, not probabilities):\n")
		b.WriteString(formatWeights(cc.RiskWeights))
	}
	if cc.RiskRationale != "" {
		fmt.Fprintf(&b, "\nRANKING RATIONALE: %s\n", cc.RiskRationale)
	}

	if cc.SuppressQuestions {
		b.WriteString("\nDo NOT ask any further clarifying questions. Direct the user to professional evaluation.\n")
	} else {
		b.WriteString("\nYou may ask up to 3 decisive follow-up questions.\n")
		if len(cc.AskedQuestions) > 0 {
			fmt.Fprintf(&b, "Never repeat these already-asked questions: %s\n", strings.Join(cc.AskedQuestions, "; "))
		}
	}

	b.WriteString("\nEnd with: \"I am a medical information assistant. This information does not replace professional medical evaluation.\"")
	return b.String()
}

func buildUserTurn(cc chat.ClinicalContext, message string) string {
	if len(cc.FollowUps) == 0 {
		return message
	}
	return fmt.Sprintf("Original symptoms: %s\n\nFollow-up response: %s\n\nProvide an assessment consistent with the original symptoms only.",
		cc.InitialSymptoms, message)
}

func formatFactors(factors map[string]int) string {
	if len(factors) == 0 {
		return "no factors"
	}
	names := make([]string, 0, len(factors))
	for name := range factors {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=+%d", name, factors[name]))
	}
	return strings.Join(parts, ", ")
}

func formatWeights(weights map[string]float64) string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	// Highest weight first, name as tiebreak so output is stable.
	sort.Slice(names, func(i, j int) bool {
		if weights[names[i]] != weights[names[j]] {
			return weights[names[i]] > weights[names[j]]
		}
		return names[i] < names[j]
	})
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %.2f\n", name, weights[name])
	}
	return b.String()
}

func formatProfile(p *chat.Profile) string {
	var parts []string
	if p.Age > 0 {
		parts = append(parts, fmt.Sprintf("age %d", p.Age))
	}
	if p.Gender != "" {
		parts = append(parts, "gender "+p.Gender)
	}
	if p.Height != "" {
		parts = append(parts, "height "+p.Height)
	}
	if p.Weight != "" {
		parts = append(parts, "weight "+p.Weight)
	}
	if p.Conditions != "" {
		parts = append(parts, "conditions: "+p.Conditions)
	}
	if p.Medications != "" {
		parts = append(parts, "medications: "+p.Medications)
	}
	if p.Allergies != "" {
		parts = append(parts, "allergies: "+p.Allergies)
	}
	if len(parts) == 0 {
		return ""
	}
	return "Patient profile: " + strings.Join(parts, ", ") + "\n"
}
