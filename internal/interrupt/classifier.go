package interrupt

import "strings"

// DefaultIgnoreWords are acknowledgements that signal passive listening, not
// a request to interrupt.
var DefaultIgnoreWords = []string{
	"yeah", "ok", "okay", "hmm", "uh-huh", "mhm",
	"right", "aha", "yep", "sure", "gotcha",
}

// commandWords always interrupt, regardless of surrounding filler. Matched as
// substrings of the whole normalized utterance so multi-word commands like
// "hold on" and punctuation-attached tokens like "stop." still hit.
var commandWords = []string{"wait", "stop", "no", "hold", "pause", "hold on"}

// Classifier decides whether an utterance should act on the agent. Immutable
// after construction, safe for concurrent use.
type Classifier struct {
	ignore map[string]struct{}
}

// NewClassifier builds a classifier with the given ignore words. A nil or
// empty list means DefaultIgnoreWords.
func NewClassifier(ignoreWords []string) *Classifier {
	if len(ignoreWords) == 0 {
		ignoreWords = DefaultIgnoreWords
	}
	ignore := make(map[string]struct{}, len(ignoreWords))
	for _, w := range ignoreWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			ignore[w] = struct{}{}
		}
	}
	return &Classifier{ignore: ignore}
}

// Decide reports whether the utterance is actionable: interrupt playback when
// the agent is speaking, respond when it is silent.
//
//   - empty or whitespace-only input is never actionable
//   - while silent, any non-empty input is actionable
//   - while speaking, command words win, then pure filler is suppressed,
//     and anything with substantive tokens interrupts
func (c *Classifier) Decide(mode Mode, utterance string) bool {
	normalized := strings.ToLower(strings.TrimSpace(utterance))
	if normalized == "" {
		return false
	}

	if mode != ModeSpeaking {
		return true
	}

	for _, cmd := range commandWords {
		if strings.Contains(normalized, cmd) {
			metricDecisions.WithLabelValues("interrupt_command").Inc()
			return true
		}
	}

	for _, tok := range strings.Fields(normalized) {
		if _, ok := c.ignore[tok]; !ok {
			metricDecisions.WithLabelValues("interrupt_content").Inc()
			return true
		}
	}

	// Every token was a recognized filler word.
	metricDecisions.WithLabelValues("ignored_filler").Inc()
	return false
}
