package llm

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
)

const answerSystemPrompt = "You answer questions about a document. Use only the document content. " +
	"Return ONLY valid JSON with key: answer (string). If the document does not contain the answer, say so briefly."

const suggestSystemPrompt = "You are a meeting assistant. Given the recent discussion, propose one concrete next step. " +
	"Return ONLY valid JSON with key: suggestion (string, one or two sentences)."

// answerContentLimit caps how much of a document is sent with a question.
const answerContentLimit = 12000

func classifySystemPrompt() string {
	return "You are an intent classifier for a meeting assistant. Score the utterance against each of these labels: " +
		strings.Join(LabelVocabulary, ", ") +
		". Return ONLY valid JSON with key: labels (array of objects with label (string) and score (number 0-1))."
}

func answerUserPrompt(question, content string) string {
	if len(content) > answerContentLimit {
		content = content[:answerContentLimit]
	}
	return "Question:\n" + question + "\n\nDocument:\n" + content
}

// decodeJSON unmarshals a model reply, tolerating markdown code fences and
// leading chatter before the first brace.
func decodeJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return errors.New("no JSON object in reply")
	}
	return json.Unmarshal([]byte(text[start:end+1]), out)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func normalizeLabels(in []Label) []Label {
	out := make([]Label, 0, len(in))
	for _, l := range in {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			continue
		}
		out = append(out, Label{Name: name, Score: clamp01(l.Score)})
	}
	return out
}
