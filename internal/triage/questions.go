package triage

import "strings"

// similarityThreshold is the word-overlap ratio above which a new question
// counts as a repeat of an earlier one.
const similarityThreshold = 0.7

// QuestionLog tracks the normalized questions already asked in a session so
// the text generator never repeats itself.
type QuestionLog struct {
	asked map[string]struct{}
	order []string
}

func NewQuestionLog() *QuestionLog {
	return &QuestionLog{asked: make(map[string]struct{})}
}

func normalizeQuestion(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.Trim(q, "? ")
	q = strings.ReplaceAll(q, ".", "")
	q = strings.ReplaceAll(q, ",", "")
	return q
}

// Track records a question as asked. Tracking the same question twice is a
// no-op.
func (l *QuestionLog) Track(question string) {
	n := normalizeQuestion(question)
	if _, ok := l.asked[n]; ok {
		return
	}
	l.asked[n] = struct{}{}
	l.order = append(l.order, n)
}

// IsDuplicate reports whether question was already asked, either verbatim
// (after normalization) or by word overlap. The overlap ratio divides by the
// NEW question's word count, so a short question sharing most of its words
// with a longer old one registers as a duplicate even though the old question
// had extra words. The asymmetry is deliberate and pinned by tests.
func (l *QuestionLog) IsDuplicate(question string) bool {
	n := normalizeQuestion(question)
	if _, ok := l.asked[n]; ok {
		return true
	}

	newWords := wordSet(n)
	if len(newWords) == 0 {
		return false
	}
	for asked := range l.asked {
		askedWords := wordSet(asked)
		shared := 0
		for w := range newWords {
			if _, ok := askedWords[w]; ok {
				shared++
			}
		}
		if float64(shared)/float64(len(newWords)) > similarityThreshold {
			return true
		}
	}
	return false
}

// Asked returns the normalized questions in the order they were tracked.
func (l *QuestionLog) Asked() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}
