package chat

import (
	"fmt"
	"time"

	"triage-intake-agent/internal/triage"
)

// Profile carries the optional patient details supplied by the frontend.
// It is passed through to the text generator verbatim and never drives triage.
type Profile struct {
	Age         int    `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Height      string `json:"height,omitempty"`
	Weight      string `json:"weight,omitempty"`
	Conditions  string `json:"conditions,omitempty"`
	Medications string `json:"medications,omitempty"`
	Allergies   string `json:"allergies,omitempty"`
}

// ChatRequest is the payload of POST /api/chat.
type ChatRequest struct {
	Message      string   `json:"message"`
	SessionID    string   `json:"session_id"`
	UserID       string   `json:"user_id"`
	IncludeVoice bool     `json:"include_voice"`
	Profile      *Profile `json:"profile,omitempty"`
}

// ChatResponse is the reply for one chat turn.
type ChatResponse struct {
	Success         bool           `json:"success"`
	Response        string         `json:"response"`
	Emergency       bool           `json:"emergency"`
	UrgencyTier     triage.Tier    `json:"urgency_tier"`
	SessionID       string         `json:"session_id"`
	SeverityScore   int            `json:"severity_score"`
	SeverityFactors map[string]int `json:"severity_factors"`
	AudioBase64     string         `json:"audio_base64,omitempty"`
}

// MessageLog is one append-only entry in the mirrored conversation log.
type MessageLog struct {
	Role          string      `json:"role"` // "user" or "assistant"
	Content       string      `json:"content"`
	Tier          triage.Tier `json:"tier"`
	SeverityScore int         `json:"severity_score"`
	Timestamp     time.Time   `json:"timestamp"`
}

// ClinicalContext is the locked frame handed to the text generator. The
// generator may phrase it however it likes but must not contradict it.
type ClinicalContext struct {
	InitialSymptoms   string
	FollowUps         []string
	OrganSystem       triage.OrganSystem
	Tier              triage.Tier
	SeverityScore     int
	SeverityFactors   map[string]int
	RiskWeights       map[string]float64
	RiskRationale     string
	AskedQuestions    []string
	SuppressQuestions bool
	Profile           *Profile
}

// ValidationError marks malformed client input. Handlers translate it to a
// 400; no state is mutated before validation passes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
