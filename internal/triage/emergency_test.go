package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSymptoms = "crushing chest pain radiating to my left arm"

func TestSequencerFirstAlert(t *testing.T) {
	s := NewSequencer()

	reply, kind := s.Respond(testSymptoms, testSymptoms)

	assert.Equal(t, ReplyFirstAlert, kind)
	assert.True(t, s.AlertShown())
	assert.Zero(t, s.RepeatCount())
	// The full alert restates the original symptoms, demands action and
	// carries the boundary statement.
	assert.Contains(t, reply, testSymptoms)
	assert.Contains(t, reply, "emergency department")
	assert.Contains(t, reply, "does not replace emergency medical services")
}

func TestSequencerAcknowledgement(t *testing.T) {
	s := NewSequencer()
	s.Respond(testSymptoms, testSymptoms)

	reply, kind := s.Respond(testSymptoms, "ok, I'm going now")

	assert.Equal(t, ReplyAcknowledged, kind)
	assert.Zero(t, s.RepeatCount(), "acknowledgements leave the counter alone")
	assert.Contains(t, reply, "Understood")
}

func TestSequencerUnrelatedChat(t *testing.T) {
	s := NewSequencer()
	s.Respond(testSymptoms, testSymptoms)

	reply, kind := s.Respond(testSymptoms, "lol just kidding, how are you")

	assert.Equal(t, ReplyUnrelatedReminder, kind)
	assert.Equal(t, 1, s.RepeatCount())
	assert.Contains(t, reply, "remains a medical emergency")
	assert.Contains(t, reply, "cannot assist further")
}

func TestSequencerJokeIsNotAcknowledgement(t *testing.T) {
	s := NewSequencer()
	s.Respond(testSymptoms, testSymptoms)

	// "joke" must not register as the acknowledgement word "ok".
	reply, kind := s.Respond(testSymptoms, "that was a joke")

	assert.Equal(t, ReplyUnrelatedReminder, kind)
	assert.Equal(t, 1, s.RepeatCount())
	assert.NotContains(t, reply, "Understood")
}

func TestSequencerMinimalFormAfterRepeatedContact(t *testing.T) {
	s := NewSequencer()
	s.Respond(testSymptoms, testSymptoms)

	var replies []string
	for _, msg := range []string{"anyway", "so what else", "tell me a story"} {
		reply, _ := s.Respond(testSymptoms, msg)
		replies = append(replies, reply)
	}

	assert.Equal(t, 3, s.RepeatCount())
	// First two reminders are the longer terse form.
	assert.Contains(t, replies[0], "cannot assist further")
	assert.Contains(t, replies[1], "cannot assist further")
	// The third collapses to the one-line form.
	assert.Equal(t, "This remains a medical emergency. Seek immediate in-person medical care now.", replies[2])
	assert.Equal(t, 1, strings.Count(replies[2], "\n")+1, "minimal reminder is a single line")
}
