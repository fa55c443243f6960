package triage

import (
	"fmt"
	"strings"
	"unicode"
)

// ReplyKind classifies what the emergency sequencer decided for a turn.
type ReplyKind int

const (
	// ReplyFirstAlert is the one full alert emitted on entering emergency.
	ReplyFirstAlert ReplyKind = iota
	// ReplyAcknowledged confirms the user said they are seeking help.
	ReplyAcknowledged
	// ReplyUnrelatedReminder answers casual chatter sent during an emergency.
	ReplyUnrelatedReminder
	// ReplyReminder answers any other post-alert message.
	ReplyReminder
	// ReplyMinimalReminder is the one-liner used after repeated contact.
	ReplyMinimalReminder
)

// minimalReminderAfter is how many ignored reminders it takes before replies
// collapse to the one-line form.
const minimalReminderAfter = 3

// Sequencer takes over response generation entirely while a case sits at the
// emergency tier. It never re-derives urgency from new messages; only the
// wording changes with acknowledgement detection and the repeat count.
type Sequencer struct {
	shown   bool
	repeats int
}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// AlertShown reports whether the full first alert has already been emitted.
func (s *Sequencer) AlertShown() bool {
	return s.shown
}

// RepeatCount is the number of post-alert messages that were neither the
// alert itself nor an acknowledgement.
func (s *Sequencer) RepeatCount() int {
	return s.repeats
}

// Respond produces the reply for a message while the case is in emergency.
// The first call always emits the full alert; after that acknowledgements get
// a short confirmation and everything else gets an increasingly terse
// reminder.
func (s *Sequencer) Respond(initialSymptoms, message string) (string, ReplyKind) {
	if !s.shown {
		s.shown = true
		return firstAlert(initialSymptoms), ReplyFirstAlert
	}

	if isAcknowledgement(message) {
		return "Understood. Please go to the nearest emergency department immediately.\n\n" +
			"This situation should not be delayed.", ReplyAcknowledged
	}

	s.repeats++
	if s.repeats >= minimalReminderAfter {
		return "This remains a medical emergency. Seek immediate in-person medical care now.", ReplyMinimalReminder
	}

	reply := "This remains a medical emergency.\n\n" +
		"Please seek immediate in-person medical care now.\n\n" +
		"I cannot assist further until you are evaluated by a healthcare professional."
	if isUnrelatedChat(message) {
		return reply, ReplyUnrelatedReminder
	}
	return reply, ReplyReminder
}

func firstAlert(initialSymptoms string) string {
	return fmt.Sprintf(`MEDICAL EMERGENCY

Original symptoms: %s

This case has been flagged as an emergency and remains in emergency status. Call your local emergency number or go to the nearest emergency department immediately.

Follow-up questions or additional information do not change the emergency status. Only a healthcare professional can clear this status after in-person evaluation.

This is a medical information assistant. This assessment does not replace emergency medical services.`, initialSymptoms)
}

var acknowledgements = []string{
	"ok", "okay", "yes", "going", "i'm going", "im going", "will go",
	"on my way", "heading there", "understood", "got it", "thank you", "thanks",
}

var casualGreetings = []string{
	"hello", "hi", "hey", "how are you", "what's up",
}

var jokeMarkers = []string{
	"lol", "haha", "joke", "kidding",
}

// isAcknowledgement matches single-word acknowledgements on word boundaries
// so that e.g. "joke" does not register as "ok"; multi-word phrases keep plain
// substring matching.
func isAcknowledgement(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return r != '\'' && !unicode.IsLetter(r)
	}) {
		words[w] = true
	}
	for _, ack := range acknowledgements {
		if strings.Contains(ack, " ") {
			if strings.Contains(lower, ack) {
				return true
			}
		} else if words[ack] {
			return true
		}
	}
	return false
}

// isUnrelatedChat flags casual chatter sent while an emergency is active:
// joke-like text at any length, greetings only when the message is short.
// Only used to label the reply for telemetry; the wording matches the plain
// reminder.
func isUnrelatedChat(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if containsAny(lower, jokeMarkers) {
		return true
	}
	return len(lower) < 10 && containsAny(lower, casualGreetings)
}
