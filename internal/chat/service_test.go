package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage-intake-agent/internal/session"
	"triage-intake-agent/internal/triage"
)

type fakeGenerator struct {
	mu     sync.Mutex
	reply  string
	err    error
	calls  int
	lastCC ClinicalContext
}

func (g *fakeGenerator) Generate(_ context.Context, cc ClinicalContext, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastCC = cc
	return g.reply, g.err
}

func (g *fakeGenerator) setReply(reply string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reply = reply
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeRepo struct {
	mu        sync.Mutex
	snapshots []triage.Snapshot
	messages  []MessageLog
	failAll   bool
}

func (r *fakeRepo) SaveSnapshot(_ context.Context, _ string, snap triage.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errors.New("store down")
	}
	r.snapshots = append(r.snapshots, snap)
	return nil
}

func (r *fakeRepo) AppendMessage(_ context.Context, _, _ string, m MessageLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errors.New("store down")
	}
	r.messages = append(r.messages, m)
	return nil
}

func (r *fakeRepo) History(_ context.Context, _, _ string) ([]MessageLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MessageLog, len(r.messages))
	copy(out, r.messages)
	return out, nil
}

func (r *fakeRepo) snapshotCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

type fakeReporter struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeReporter) SendEmergencyReport(_ context.Context, _ string, _ triage.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func (f *fakeReporter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTTS struct{}

func (fakeTTS) Synthesize(_ context.Context, _ string, _ string) ([]byte, error) {
	return []byte("audio"), nil
}

func newTestService(t *testing.T, gen Generator, repo Repository, reporter Reporter, tts TTSClient) *Service {
	t.Helper()
	store := session.NewStore(time.Minute)
	t.Cleanup(store.Stop)
	return NewService(store, repo, gen, tts, reporter)
}

func TestHandleMessageValidation(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{reply: "x"}, &fakeRepo{}, nil, nil)

	_, err := svc.HandleMessage(context.Background(), ChatRequest{Message: ""})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "message", verr.Field)
}

func TestHandleMessageGreetingDoesNotOpenCase(t *testing.T) {
	gen := &fakeGenerator{reply: "x"}
	svc := newTestService(t, gen, &fakeRepo{}, nil, nil)

	resp, err := svc.HandleMessage(context.Background(), ChatRequest{Message: "hello", SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, orientationReply, resp.Response)
	assert.Equal(t, triage.TierRoutine, resp.UrgencyTier)
	assert.Zero(t, resp.SeverityScore)
	assert.False(t, resp.Emergency)
	assert.Zero(t, gen.callCount(), "no generator call before a case opens")

	// A symptom message afterwards still opens the case normally.
	resp, err = svc.HandleMessage(context.Background(), ChatRequest{Message: "I have a headache", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, "x", resp.Response)
}

func TestHandleMessageVagueDistress(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{reply: "x"}, &fakeRepo{}, nil, nil)

	resp, err := svc.HandleMessage(context.Background(), ChatRequest{Message: "I'm not feeling well", SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, clarificationReply, resp.Response)
}

func TestHandleMessageIssuesSessionID(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{reply: "x"}, &fakeRepo{}, nil, nil)

	resp, err := svc.HandleMessage(context.Background(), ChatRequest{Message: "I have a headache"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
}

func TestHandleMessageStripsEmoji(t *testing.T) {
	gen := &fakeGenerator{reply: "Rest and fluids \U0001F600 should help \U0001F691"}
	svc := newTestService(t, gen, &fakeRepo{}, nil, nil)

	resp, err := svc.HandleMessage(context.Background(), ChatRequest{Message: "I have a mild fever", SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, "Rest and fluids  should help ", resp.Response)
}

func TestHandleMessageDegradedOnGeneratorFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("llm timeout")}
	svc := newTestService(t, gen, &fakeRepo{}, nil, nil)

	resp, err := svc.HandleMessage(context.Background(), ChatRequest{Message: "I have a fever and numbness in my arm", SessionID: "s1"})
	require.NoError(t, err, "generator failure must not fail the turn")

	assert.True(t, resp.Success)
	assert.Equal(t, degradedReply, resp.Response)
	// Triage state was finalized before the failed call.
	assert.Equal(t, triage.TierUrgent, resp.UrgencyTier)
	assert.Equal(t, 5, resp.SeverityScore)
}

func TestHandleMessageMirrorsTurn(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, &fakeGenerator{reply: "x"}, repo, nil, nil)

	_, err := svc.HandleMessage(context.Background(), ChatRequest{Message: "I have a headache", SessionID: "s1", UserID: "u1"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return repo.snapshotCount() == 1
	}, time.Second, 10*time.Millisecond)

	history, err := svc.History(context.Background(), "u1", "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestHandleMessageMirrorFailureIsMasked(t *testing.T) {
	repo := &fakeRepo{failAll: true}
	svc := newTestService(t, &fakeGenerator{reply: "x"}, repo, nil, nil)

	resp, err := svc.HandleMessage(context.Background(), ChatRequest{Message: "I have a headache", SessionID: "s1"})

	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestHandleMessageEmergencyFlow(t *testing.T) {
	gen := &fakeGenerator{reply: "x"}
	reporter := &fakeReporter{}
	svc := newTestService(t, gen, &fakeRepo{}, reporter, nil)

	// Turn 1: emergency-grade symptoms. The sequencer owns the reply.
	resp, err := svc.HandleMessage(context.Background(), ChatRequest{
		Message: "crushing chest pain radiating to my left arm", SessionID: "s1",
	})
	require.NoError(t, err)
	assert.True(t, resp.Emergency)
	assert.Equal(t, triage.TierEmergency, resp.UrgencyTier)
	assert.Contains(t, resp.Response, "MEDICAL EMERGENCY")
	assert.Contains(t, resp.Response, "crushing chest pain")
	assert.Zero(t, gen.callCount(), "generator is bypassed during an emergency")

	assert.Eventually(t, func() bool { return reporter.callCount() == 1 },
		time.Second, 10*time.Millisecond)

	// Turn 2: unrelated chatter. Tier locked, terse reminder, no new report.
	resp, err = svc.HandleMessage(context.Background(), ChatRequest{Message: "lol", SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, resp.Emergency)
	assert.Equal(t, triage.TierEmergency, resp.UrgencyTier)
	assert.Contains(t, resp.Response, "remains a medical emergency")

	// Turn 3: acknowledgement.
	resp, err = svc.HandleMessage(context.Background(), ChatRequest{Message: "ok, on my way", SessionID: "s1"})
	require.NoError(t, err)
	assert.Contains(t, resp.Response, "Understood")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, reporter.callCount(), "the full alert and report happen exactly once")
	assert.Zero(t, gen.callCount())
}

func TestHandleMessageScoringContinuesDuringEmergency(t *testing.T) {
	gen := &fakeGenerator{reply: "x"}
	svc := newTestService(t, gen, &fakeRepo{}, nil, nil)

	resp, err := svc.HandleMessage(context.Background(), ChatRequest{
		Message: "crushing chest pain radiating to my left arm", SessionID: "s1",
	})
	require.NoError(t, err)
	require.True(t, resp.Emergency)
	require.Equal(t, 7, resp.SeverityScore)

	// New findings reported after the alert still feed the scorer even though
	// the sequencer owns the reply.
	resp, err = svc.HandleMessage(context.Background(), ChatRequest{
		Message: "also my abdomen is rigid and I have been vomiting for hours", SessionID: "s1",
	})
	require.NoError(t, err)

	assert.True(t, resp.Emergency)
	assert.Equal(t, 16, resp.SeverityScore)
	assert.Contains(t, resp.SeverityFactors, triage.FactorPeritonitisSigns)
	assert.Contains(t, resp.SeverityFactors, triage.FactorPersistentVomiting)
	assert.Contains(t, resp.Response, "remains a medical emergency")
	assert.Zero(t, gen.callCount())
}

func TestHandleMessageTracksGeneratorQuestions(t *testing.T) {
	gen := &fakeGenerator{reply: "When did the pain start? Rest for now."}
	svc := newTestService(t, gen, &fakeRepo{}, nil, nil)

	_, err := svc.HandleMessage(context.Background(), ChatRequest{Message: "I have a headache", SessionID: "s1"})
	require.NoError(t, err)

	// Near-duplicate of the first question plus a genuinely new one.
	gen.setReply("When did the pain start exactly? Does anything make it worse?")
	_, err = svc.HandleMessage(context.Background(), ChatRequest{Message: "it is mild", SessionID: "s1"})
	require.NoError(t, err)

	gen.mu.Lock()
	asked := gen.lastCC.AskedQuestions
	gen.mu.Unlock()
	assert.Equal(t, []string{"when did the pain start"}, asked)

	_, err = svc.HandleMessage(context.Background(), ChatRequest{Message: "nothing else", SessionID: "s1"})
	require.NoError(t, err)

	gen.mu.Lock()
	asked = gen.lastCC.AskedQuestions
	gen.mu.Unlock()
	assert.Equal(t, []string{
		"when did the pain start",
		"does anything make it worse",
	}, asked)
}

func TestHandleMessageIncludeVoice(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{reply: "x"}, &fakeRepo{}, nil, fakeTTS{})

	resp, err := svc.HandleMessage(context.Background(), ChatRequest{
		Message: "I have a headache", SessionID: "s1", IncludeVoice: true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AudioBase64)
}

func TestHandleMessagePassesLockedContext(t *testing.T) {
	gen := &fakeGenerator{reply: "x"}
	svc := newTestService(t, gen, &fakeRepo{}, nil, nil)

	_, err := svc.HandleMessage(context.Background(), ChatRequest{Message: "I have a headache and weakness", SessionID: "s1"})
	require.NoError(t, err)
	_, err = svc.HandleMessage(context.Background(), ChatRequest{Message: "it started suddenly", SessionID: "s1"})
	require.NoError(t, err)

	gen.mu.Lock()
	cc := gen.lastCC
	gen.mu.Unlock()

	assert.Equal(t, "I have a headache and weakness", cc.InitialSymptoms)
	assert.Equal(t, []string{"it started suddenly"}, cc.FollowUps)
	assert.Equal(t, triage.OrganNeurological, cc.OrganSystem)
	assert.Contains(t, cc.SeverityFactors, triage.FactorNeurological)
}

func TestHistoryValidation(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{reply: "x"}, &fakeRepo{}, nil, nil)

	_, err := svc.History(context.Background(), "u1", "")

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCloseSession(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{reply: "x"}, &fakeRepo{}, nil, nil)

	_, err := svc.HandleMessage(context.Background(), ChatRequest{Message: "I have a headache", SessionID: "s1"})
	require.NoError(t, err)

	assert.True(t, svc.CloseSession("s1"))
	assert.False(t, svc.CloseSession("s1"))
}
