package triage

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaVersion identifies the CaseContext snapshot layout written to the
// mirror store.
const SchemaVersion = 2

// certaintyThreshold is the diagnostic certainty above which follow-up
// questions are suppressed.
const certaintyThreshold = 0.7

// ErrOrganSystemLocked is returned when a follow-up tries to move a case to a
// different organ system than the one locked at intake.
var ErrOrganSystemLocked = errors.New("organ system is locked for this case")

// CaseContext locks the clinical frame of one conversation. The initial
// symptoms and organ system are immutable once set, the urgency tier only
// escalates, and the severity score is recomputed from the full history so it
// never decreases.
type CaseContext struct {
	sessionID       string
	initialSymptoms string
	symptomHistory  []string
	organ           OrganSystem

	severityScore   int
	severityFactors map[string]int
	riskWeights     map[string]float64
	riskRationale   []string

	scorer     *Scorer
	escalator  *Escalator
	reweighter *Reweighter
	questions  *QuestionLog
	sequencer  *Sequencer
}

// NewCaseContext opens a case from its first symptom-bearing message. Organ
// detection runs once here; the first non-unspecified result wins and is
// locked permanently. Severity is computed and the tier floor applied before
// the constructor returns.
func NewCaseContext(sessionID, initialSymptoms string, onEscalate func(from, to Tier)) *CaseContext {
	c := &CaseContext{
		sessionID:       sessionID,
		initialSymptoms: initialSymptoms,
		symptomHistory:  []string{initialSymptoms},
		organ:           DetectOrganSystem(initialSymptoms),
		severityFactors: make(map[string]int),
		riskWeights:     make(map[string]float64),
		scorer:          NewScorer(),
		escalator:       NewEscalator(onEscalate),
		reweighter:      NewReweighter(),
		questions:       NewQuestionLog(),
		sequencer:       NewSequencer(),
	}
	c.recompute(nil)
	return c
}

// AddFollowUp appends a message to the history and replays the whole
// pipeline: organ consistency, severity recomputation, tier escalation and
// risk reweighting. A conflicting organ system returns ErrOrganSystemLocked;
// the rest of the update is applied regardless, since a cross-system mention
// does not close the case.
func (c *CaseContext) AddFollowUp(message string) error {
	c.symptomHistory = append(c.symptomHistory, message)

	organErr := c.recordOrganSystem(DetectOrganSystem(message))

	prev := c.severityFactors
	c.recompute(prev)

	return organErr
}

// recompute rebuilds score and factors from the concatenated history, applies
// the tier floor and reweights risks against the previous factor set.
func (c *CaseContext) recompute(prev map[string]int) {
	res := c.scorer.Score(strings.Join(c.symptomHistory, " "))
	c.severityScore = res.Score
	c.severityFactors = res.Factors
	c.escalator.Request(res.Floor)

	if prev == nil {
		prev = map[string]int{}
	}
	lines := c.reweighter.Apply(c.riskWeights, prev, c.severityFactors)
	c.riskRationale = append(c.riskRationale, lines...)
}

// recordOrganSystem enforces the organ lock. An unspecified detection is
// always fine; the first non-unspecified detection locks the case; anything
// else must match the lock.
func (c *CaseContext) recordOrganSystem(detected OrganSystem) error {
	switch {
	case detected == OrganUnspecified:
		return nil
	case c.organ == OrganUnspecified:
		c.organ = detected
		return nil
	case detected == c.organ:
		return nil
	default:
		return fmt.Errorf("case %s locked to %s, follow-up suggests %s: %w",
			c.sessionID, c.organ, detected, ErrOrganSystemLocked)
	}
}

// EmergencyReply hands response generation to the sequencer. Callers must
// only invoke it while Tier() == TierEmergency.
func (c *CaseContext) EmergencyReply(message string) (string, ReplyKind) {
	return c.sequencer.Respond(c.initialSymptoms, message)
}

// DiagnosticCertainty is the strongest current risk weight.
func (c *CaseContext) DiagnosticCertainty() float64 {
	var max float64
	for _, w := range c.riskWeights {
		if w > max {
			max = w
		}
	}
	return max
}

// SuppressQuestions tells the text generator to stop asking clarifying
// questions: always during an emergency, and otherwise once diagnostic
// certainty clears the threshold.
func (c *CaseContext) SuppressQuestions() bool {
	if c.Tier() == TierEmergency {
		return true
	}
	return c.DiagnosticCertainty() > certaintyThreshold
}

func (c *CaseContext) SessionID() string       { return c.sessionID }
func (c *CaseContext) InitialSymptoms() string { return c.initialSymptoms }
func (c *CaseContext) OrganSystem() OrganSystem {
	return c.organ
}
func (c *CaseContext) Tier() Tier         { return c.escalator.Current() }
func (c *CaseContext) SeverityScore() int { return c.severityScore }

// SeverityFactors returns a copy of the current factor breakdown.
func (c *CaseContext) SeverityFactors() map[string]int {
	out := make(map[string]int, len(c.severityFactors))
	for k, v := range c.severityFactors {
		out[k] = v
	}
	return out
}

// RiskWeights returns a copy of the current per-condition weights.
func (c *CaseContext) RiskWeights() map[string]float64 {
	out := make(map[string]float64, len(c.riskWeights))
	for k, v := range c.riskWeights {
		out[k] = v
	}
	return out
}

// RiskRationale is the accumulated explanation of ranking changes, one line
// per fired reweighting rule.
func (c *CaseContext) RiskRationale() string {
	return strings.Join(c.riskRationale, " ")
}

// SymptomHistory returns a copy of the raw messages feeding severity, oldest
// first. Index 0 is always the initial symptoms.
func (c *CaseContext) SymptomHistory() []string {
	out := make([]string, len(c.symptomHistory))
	copy(out, c.symptomHistory)
	return out
}

func (c *CaseContext) Questions() *QuestionLog { return c.questions }

func (c *CaseContext) EmergencyShown() bool      { return c.sequencer.AlertShown() }
func (c *CaseContext) EmergencyRepeatCount() int { return c.sequencer.RepeatCount() }

// Snapshot is the serializable mirror of a CaseContext written to the
// document store. It is never read back for decision-making.
type Snapshot struct {
	SchemaVersion   int                `json:"schema_version"`
	SessionID       string             `json:"session_id"`
	InitialSymptoms string             `json:"initial_symptoms"`
	SymptomHistory  []string           `json:"symptom_history"`
	OrganSystem     OrganSystem        `json:"organ_system"`
	UrgencyTier     Tier               `json:"urgency_tier"`
	SeverityScore   int                `json:"severity_score"`
	SeverityFactors map[string]int     `json:"severity_factors"`
	RiskWeights     map[string]float64 `json:"risk_weights"`
	AskedQuestions  []string           `json:"asked_questions"`
	EmergencyShown  bool               `json:"emergency_shown"`
	EmergencyRepeat int                `json:"emergency_repeat_count"`
}

func (c *CaseContext) Snapshot() Snapshot {
	return Snapshot{
		SchemaVersion:   SchemaVersion,
		SessionID:       c.sessionID,
		InitialSymptoms: c.initialSymptoms,
		SymptomHistory:  c.SymptomHistory(),
		OrganSystem:     c.organ,
		UrgencyTier:     c.Tier(),
		SeverityScore:   c.severityScore,
		SeverityFactors: c.SeverityFactors(),
		RiskWeights:     c.RiskWeights(),
		AskedQuestions:  c.questions.Asked(),
		EmergencyShown:  c.EmergencyShown(),
		EmergencyRepeat: c.EmergencyRepeatCount(),
	}
}
