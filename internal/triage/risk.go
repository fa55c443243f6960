package triage

// Condition names tracked by the reweighter.
const (
	ConditionIntracranialHemorrhage  = "intracranial_hemorrhage"
	ConditionSubduralHematoma        = "subdural_hematoma"
	ConditionEpiduralHematoma        = "epidural_hematoma"
	ConditionMeningitis              = "meningitis"
	ConditionViralInfection          = "viral_infection"
	ConditionEncephalitis            = "encephalitis"
	ConditionSubarachnoidHemorrhage  = "subarachnoid_hemorrhage"
	ConditionStroke                  = "stroke"
)

// riskRule pairs a trigger over the active severity factors with the weight
// deltas it applies and the human-readable rationale handed to the text
// generator.
type riskRule struct {
	trigger   func(factors map[string]int) bool
	deltas    map[string]float64
	rationale string
}

func hasFactor(factors map[string]int, names ...string) bool {
	for _, n := range names {
		if _, ok := factors[n]; ok {
			return true
		}
	}
	return false
}

var riskRules = []riskRule{
	{
		trigger: func(f map[string]int) bool { return hasFactor(f, FactorSevereTrauma) },
		deltas: map[string]float64{
			ConditionIntracranialHemorrhage: 0.3,
			ConditionSubduralHematoma:       0.3,
			ConditionEpiduralHematoma:       0.2,
			ConditionMeningitis:             -0.2,
			ConditionViralInfection:         -0.2,
		},
		rationale: "With the addition of recent trauma, conditions involving bleeding (intracranial hemorrhage, subdural hematoma) rise in priority, while infection-only causes become less likely.",
	},
	{
		trigger: func(f map[string]int) bool {
			return hasFactor(f, FactorFever, FactorHighFever) && hasFactor(f, FactorNeurological, FactorStrokeSymptoms)
		},
		deltas: map[string]float64{
			ConditionMeningitis:   0.4,
			ConditionEncephalitis: 0.3,
		},
		rationale: "The combination of fever and neurological symptoms significantly increases the probability of infectious causes such as meningitis or encephalitis.",
	},
	{
		trigger: func(f map[string]int) bool {
			return hasFactor(f, FactorAcuteLocalizedPain) && hasFactor(f, FactorNeurological, FactorStrokeSymptoms)
		},
		deltas: map[string]float64{
			ConditionSubarachnoidHemorrhage: 0.3,
			ConditionStroke:                 0.2,
		},
		rationale: "Sudden onset neurological symptoms shift priority toward acute vascular events (subarachnoid hemorrhage, stroke).",
	},
}

// Reweighter adjusts per-condition risk weights as new severity factors become
// active. Weights start at 0.5 the first time a condition is touched and are
// clamped to [0,1] after every delta.
type Reweighter struct{}

func NewReweighter() *Reweighter {
	return &Reweighter{}
}

// Apply mutates weights for every rule whose trigger holds on the current
// factor set but did not hold on the previous one, i.e. rules react only to
// newly active factors. It returns one rationale line per fired rule.
func (r *Reweighter) Apply(weights map[string]float64, prev, curr map[string]int) []string {
	var rationale []string
	for _, rule := range riskRules {
		if !rule.trigger(curr) || rule.trigger(prev) {
			continue
		}
		for condition, delta := range rule.deltas {
			w, ok := weights[condition]
			if !ok {
				w = 0.5
			}
			weights[condition] = clamp01(w + delta)
		}
		rationale = append(rationale, rule.rationale)
	}
	return rationale
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
