package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"triage-intake-agent/internal/session"
	"triage-intake-agent/internal/triage"
)

// Generator produces the prose assessment from the locked clinical context.
// We define the interface here to decouple from the concrete LLM client.
type Generator interface {
	Generate(ctx context.Context, cc ClinicalContext, userMessage string) (string, error)
}

// TTSClient defines the interface for text-to-speech.
type TTSClient interface {
	Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error)
}

// Reporter pushes an emergency case summary to the on-call clinician.
type Reporter interface {
	SendEmergencyReport(ctx context.Context, userID string, snap triage.Snapshot) error
}

// Repository mirrors session state and the message log into the document
// store. Writes are best-effort; the in-memory store stays authoritative.
type Repository interface {
	SaveSnapshot(ctx context.Context, userID string, snap triage.Snapshot) error
	AppendMessage(ctx context.Context, userID, sessionID string, m MessageLog) error
	History(ctx context.Context, userID, sessionID string) ([]MessageLog, error)
}

const (
	defaultUserID   = "anonymous"
	generateTimeout = 30 * time.Second
	mirrorTimeout   = 10 * time.Second
)

// Degraded reply used when the text generator fails or times out. The triage
// state is already finalized by then, so the turn still returns tier and
// score.
const degradedReply = "I'm unable to generate a detailed assessment right now. " +
	"Your case information has been recorded. Please keep monitoring your symptoms " +
	"and seek medical attention if they worsen."

// Canned replies for turns that do not open a case.
const (
	orientationReply = "Hello, I'm a symptom intake assistant. Please describe the " +
		"symptoms that brought you here today — what you feel, where, and when it started."
	clarificationReply = "I'm sorry you're not feeling well. Could you tell me more " +
		"about your symptoms? What do you feel, where is it, and when did it begin?"
	awaitingReply = "I couldn't pick out specific symptoms from that message. Please " +
		"describe what you're feeling, where it hurts, and when it began."
)

type Service struct {
	sessions   *session.Store
	repo       Repository
	generator  Generator
	tts        TTSClient
	reporter   Reporter
	classifier *triage.IntentClassifier
}

func NewService(sessions *session.Store, repo Repository, gen Generator, tts TTSClient, reporter Reporter) *Service {
	return &Service{
		sessions:   sessions,
		repo:       repo,
		generator:  gen,
		tts:        tts,
		reporter:   reporter,
		classifier: triage.NewIntentClassifier(),
	}
}

// HandleMessage runs one chat turn. Validation failures return a
// *ValidationError before any state is touched; external collaborator
// failures are masked behind a degraded reply and never fail the turn.
func (s *Service) HandleMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Message == "" {
		return nil, &ValidationError{Field: "message", Reason: "must not be empty"}
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	userID := req.UserID
	if userID == "" {
		userID = defaultUserID
	}

	resp := &ChatResponse{
		Success:         true,
		SessionID:       sessionID,
		UrgencyTier:     triage.TierRoutine,
		SeverityFactors: map[string]int{},
	}

	var (
		snap       *triage.Snapshot
		needReport bool
	)

	s.sessions.With(sessionID, func(sess *session.Session) {
		if sess.Case == nil {
			intent := s.classifier.Classify(req.Message)
			if intent != triage.IntentSymptomIntake {
				resp.Response = cannedReply(intent)
				return
			}
			sess.Case = triage.NewCaseContext(sessionID, req.Message, func(from, to triage.Tier) {
				log.Printf("Session %s escalated: %s -> %s", sessionID, from, to)
			})
		} else if err := sess.Case.AddFollowUp(req.Message); err != nil {
			// Every continuing message feeds the case, emergency included; the
			// tier is terminal so recomputation cannot unlock the sequencer.
			if errors.Is(err, triage.ErrOrganSystemLocked) {
				log.Printf("Session %s organ conflict ignored: %v", sessionID, err)
			} else {
				log.Printf("Session %s follow-up error: %v", sessionID, err)
			}
		}

		c := sess.Case
		resp.UrgencyTier = c.Tier()
		resp.SeverityScore = c.SeverityScore()
		resp.SeverityFactors = c.SeverityFactors()

		// Triage state is final from here on; nothing below may change it.
		if c.Tier() == triage.TierEmergency {
			reply, kind := c.EmergencyReply(req.Message)
			resp.Response = reply
			resp.Emergency = true
			needReport = kind == triage.ReplyFirstAlert
			log.Printf("Session %s emergency reply kind=%d repeats=%d", sessionID, kind, c.EmergencyRepeatCount())
		} else {
			resp.Response = s.generateReply(ctx, c, req)
		}

		sn := c.Snapshot()
		snap = &sn
	})

	if req.IncludeVoice && !resp.Emergency && s.tts != nil {
		if audio, err := s.tts.Synthesize(ctx, resp.Response, ""); err != nil {
			log.Printf("Session %s voice synthesis failed: %v", sessionID, err)
		} else {
			resp.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
		}
	}

	s.mirror(userID, sessionID, req.Message, resp, snap)

	if needReport && s.reporter != nil && snap != nil {
		go func(sn triage.Snapshot) {
			bgCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := s.reporter.SendEmergencyReport(bgCtx, userID, sn); err != nil {
				log.Printf("Session %s emergency report failed: %v", sessionID, err)
			}
		}(*snap)
	}

	return resp, nil
}

// generateReply calls the text generator with the locked context and masks
// any failure behind the degraded reply. Output is stripped of pictographs
// either way.
func (s *Service) generateReply(ctx context.Context, c *triage.CaseContext, req ChatRequest) string {
	history := c.SymptomHistory()
	cc := ClinicalContext{
		InitialSymptoms:   c.InitialSymptoms(),
		FollowUps:         history[1:],
		OrganSystem:       c.OrganSystem(),
		Tier:              c.Tier(),
		SeverityScore:     c.SeverityScore(),
		SeverityFactors:   c.SeverityFactors(),
		RiskWeights:       c.RiskWeights(),
		RiskRationale:     c.RiskRationale(),
		AskedQuestions:    c.Questions().Asked(),
		SuppressQuestions: c.SuppressQuestions(),
		Profile:           req.Profile,
	}

	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()
	text, err := s.generator.Generate(genCtx, cc, req.Message)
	if err != nil {
		log.Printf("Session %s text generation failed: %v", c.SessionID(), err)
		return degradedReply
	}

	// Remember what the generator asked so later prompts can forbid repeats.
	for _, q := range extractQuestions(text) {
		if !c.Questions().IsDuplicate(q) {
			c.Questions().Track(q)
		}
	}
	return StripEmoji(text)
}

// extractQuestions pulls the interrogative sentences out of a generated reply.
func extractQuestions(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		switch r {
		case '?':
			if q := strings.TrimSpace(text[start : i+1]); len(q) > 1 {
				out = append(out, q)
			}
			start = i + 1
		case '.', '!', ':', '\n':
			start = i + 1
		}
	}
	return out
}

// mirror writes the turn into the document store in the background. Failures
// are logged and never surface to the caller.
func (s *Service) mirror(userID, sessionID, userMessage string, resp *ChatResponse, snap *triage.Snapshot) {
	if s.repo == nil {
		return
	}
	now := time.Now()
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()

		userEntry := MessageLog{Role: "user", Content: userMessage, Tier: resp.UrgencyTier, SeverityScore: resp.SeverityScore, Timestamp: now}
		if err := s.repo.AppendMessage(bgCtx, userID, sessionID, userEntry); err != nil {
			log.Printf("Session %s mirror user message failed: %v", sessionID, err)
		}
		botEntry := MessageLog{Role: "assistant", Content: resp.Response, Tier: resp.UrgencyTier, SeverityScore: resp.SeverityScore, Timestamp: now}
		if err := s.repo.AppendMessage(bgCtx, userID, sessionID, botEntry); err != nil {
			log.Printf("Session %s mirror assistant message failed: %v", sessionID, err)
		}
		if snap != nil {
			if err := s.repo.SaveSnapshot(bgCtx, userID, *snap); err != nil {
				log.Printf("Session %s mirror snapshot failed: %v", sessionID, err)
			}
		}
	}()
}

// History reads the mirrored conversation log. It is a convenience for the
// frontend only and never feeds back into triage decisions.
func (s *Service) History(ctx context.Context, userID, sessionID string) ([]MessageLog, error) {
	if sessionID == "" {
		return nil, &ValidationError{Field: "session_id", Reason: "must not be empty"}
	}
	if s.repo == nil {
		return nil, errors.New("message log is unavailable")
	}
	if userID == "" {
		userID = defaultUserID
	}
	return s.repo.History(ctx, userID, sessionID)
}

// CloseSession tears down the in-memory session. The mirror keeps its rows.
func (s *Service) CloseSession(sessionID string) bool {
	return s.sessions.Close(sessionID)
}

func cannedReply(intent triage.Intent) string {
	switch intent {
	case triage.IntentOrientation:
		return orientationReply
	case triage.IntentClarification:
		return clarificationReply
	default:
		return awaitingReply
	}
}
