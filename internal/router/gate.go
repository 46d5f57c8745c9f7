package router

import "strings"

// SuppressedResponse is the reply when an addressed utterance asks to be ignored.
const SuppressedResponse = "Command ignored as requested."

// Gate decides whether an utterance is addressed to the assistant at all.
type Gate struct {
	wakeWord string
	suppress []string
}

// NewGate builds a gate for wakeWord. Matching is case-insensitive for both
// the wake word and the suppression terms.
func NewGate(wakeWord string, suppressTerms []string) *Gate {
	g := &Gate{wakeWord: strings.ToLower(strings.TrimSpace(wakeWord))}
	for _, t := range suppressTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			g.suppress = append(g.suppress, t)
		}
	}
	return g
}

// WakeWord returns the normalized wake word.
func (g *Gate) WakeWord() string { return g.wakeWord }

// Apply gates s and reports whether it is active. A state that has already
// been gated is left untouched.
func (g *Gate) Apply(s *CommandState) bool {
	if s.phase != PhaseReceived {
		return s.Active
	}
	text := strings.ToLower(s.input)
	switch {
	case !strings.Contains(text, g.wakeWord):
		s.Active = false
		s.phase = PhaseGatedInactive
	case g.suppressed(text):
		s.Active = false
		s.Response = SuppressedResponse
		s.phase = PhaseGatedInactive
	default:
		s.Active = true
		s.phase = PhaseGatedActive
	}
	return s.Active
}

func (g *Gate) suppressed(text string) bool {
	for _, t := range g.suppress {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// Strip removes the gate's wake word from text; see Normalize.
func (g *Gate) Strip(text string) string { return Normalize(g.wakeWord, text) }

// Normalize lower-cases text, removes wakeWord and trims the whitespace and
// separators left behind ("Teammate, take notes" -> "take notes").
func Normalize(wakeWord, text string) string {
	text = strings.ToLower(text)
	if w := strings.ToLower(strings.TrimSpace(wakeWord)); w != "" {
		text = strings.ReplaceAll(text, w, "")
	}
	return strings.TrimLeft(strings.TrimSpace(text), ",:; ")
}
