package triage

import "strings"

// Severity factor names. Each names one rule in the scoring table and shows
// up as a key in the factor breakdown returned to the frontend.
const (
	FactorCardiacEmergency     = "cardiac_emergency"
	FactorRespiratoryEmergency = "respiratory_emergency"
	FactorSevereTrauma         = "severe_trauma"
	FactorStrokeSymptoms       = "stroke_symptoms"
	FactorAppendicitisPattern  = "appendicitis_pattern"
	FactorPeritonitisSigns     = "peritonitis_signs"
	FactorAcuteLocalizedPain   = "acute_localized_pain"
	FactorNeurological         = "neurological_symptoms"
	FactorPersistentVomiting   = "persistent_vomiting"
	FactorHighFever            = "high_fever"
	FactorFever                = "fever"
	FactorVomiting             = "vomiting"
)

// severityRule is one data-described scoring rule: a named predicate over the
// lowercased symptom history, the score it contributes, and the urgency tier
// it demands as a floor when it fires.
type severityRule struct {
	name  string
	delta int
	floor Tier
	// match sees the text and the factors matched so far, so the last
	// catch-all rule can yield to more specific ones.
	match func(text string, factors map[string]int) bool
}

// SeverityResult is a full recomputation of the severity signal. Factors are
// rebuilt from scratch on every call; nothing is carried over.
type SeverityResult struct {
	Score   int
	Factors map[string]int
	// Floor is the highest tier demanded by any matched rule.
	Floor Tier
}

// Scorer maps accumulated conversation text to a severity score. It is a pure
// function of its input; because it always sees the full concatenated history
// and keyword presence never goes away, the score is non-decreasing over a
// session.
type Scorer struct {
	rules []severityRule
}

func NewScorer() *Scorer {
	chestPain := []string{"chest pain", "chest pressure", "chest tightness", "crushing chest"}
	cardiacCompanions := []string{"radiating", "radiates", "left arm", "jaw", "sweating", "diaphoresis", "dizzy", "dizziness", "lightheaded"}
	severeBreathing := []string{"can't breathe", "cannot breathe", "cant breathe", "gasping", "struggling to breathe", "turning blue", "choking", "severe shortness of breath"}
	trauma := []string{"car accident", "car crash", "vehicle collision", "hit by a car", "motorcycle accident", "fell from", "fall from height", "stabbed", "gunshot", "penetrating", "uncontrolled bleeding", "bleeding won't stop", "bleeding wont stop", "heavy bleeding"}
	stroke := []string{"face drooping", "facial droop", "face is drooping", "droopy face", "slurred speech", "slurring", "can't move my arm", "cant move my arm", "weak on one side", "one side of my body", "sudden confusion", "suddenly confused"}
	rlq := []string{"right lower quadrant", "right lower", "lower right", "right side of my stomach", "right side of my belly"}
	nausea := []string{"nausea", "nauseous", "queasy", "sick to my stomach"}
	anorexia := []string{"no appetite", "not hungry", "can't eat", "cant eat", "loss of appetite", "lost my appetite"}
	abdomen := []string{"abdomen", "abdominal", "stomach", "belly"}
	rigidity := []string{"rigid", "board-like", "boardlike", "guarding", "hard to the touch", "stiff belly"}
	sudden := []string{"sudden", "suddenly", "abrupt", "out of nowhere", "all at once"}
	severe := []string{"severe", "worst", "unbearable", "excruciating", "10/10"}
	location := []string{"head", "chest", "abdomen", "stomach", "belly", "back", "arm", "leg", "eye", "neck", "pelvis", "flank"}
	neuro := []string{"weakness", "numbness", "tingling", "vision", "blurry", "double vision", "seizure", "neck stiffness", "stiff neck"}
	vomit := []string{"vomit", "vomiting", "throwing up", "threw up", "thrown up"}
	duration := []string{"hours", "all day", "all night", "constant", "constantly", "won't stop", "wont stop", "nonstop", "keeps coming"}
	fever := []string{"fever", "temperature", "febrile", "chills"}
	highReading := []string{"103", "104", "105", "39.5", "40 degrees", "40.0", "high fever", "burning up", "very high"}

	all := func(sets ...[]string) func(string, map[string]int) bool {
		return func(text string, _ map[string]int) bool {
			for _, set := range sets {
				if !containsAny(text, set) {
					return false
				}
			}
			return true
		}
	}

	return &Scorer{rules: []severityRule{
		{FactorCardiacEmergency, 7, TierEmergency, all(chestPain, cardiacCompanions)},
		{FactorRespiratoryEmergency, 7, TierEmergency, all(severeBreathing)},
		{FactorSevereTrauma, 7, TierEmergency, all(trauma)},
		{FactorStrokeSymptoms, 7, TierEmergency, all(stroke)},
		{FactorAppendicitisPattern, 5, TierUrgent, all(rlq, nausea, anorexia)},
		{FactorPeritonitisSigns, 6, TierUrgent, all(abdomen, rigidity)},
		{FactorAcuteLocalizedPain, 4, TierUrgent, all(sudden, severe, location)},
		{FactorNeurological, 4, TierUrgent, all(neuro)},
		{FactorPersistentVomiting, 3, TierUrgent, all(vomit, duration)},
		{FactorHighFever, 2, TierUrgent, all(fever, highReading)},
		{FactorFever, 1, TierRoutine, all(fever)},
		// Isolated vomiting only counts when nothing else has fired.
		{FactorVomiting, 1, TierRoutine, func(text string, factors map[string]int) bool {
			return len(factors) == 0 && containsAny(text, vomit)
		}},
	}}
}

// Score evaluates every rule, in table order, against the lowercased
// concatenation of the full symptom history. The score always starts from
// zero and factors are rebuilt in full.
func (s *Scorer) Score(historyText string) SeverityResult {
	lower := strings.ToLower(historyText)
	res := SeverityResult{Factors: make(map[string]int), Floor: TierRoutine}
	for _, r := range s.rules {
		if !r.match(lower, res.Factors) {
			continue
		}
		res.Score += r.delta
		res.Factors[r.name] = r.delta
		if r.floor.AtLeast(res.Floor) {
			res.Floor = r.floor
		}
	}
	return res
}
