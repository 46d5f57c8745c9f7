package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// LocalProvider is an offline heuristic implementation. It needs no key and
// never fails, which makes it the default when no hosted provider is set up.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider { return &LocalProvider{} }

// ClassifyText scores text against LabelVocabulary by token overlap.
func (LocalProvider) ClassifyText(ctx context.Context, text string) ([]Label, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	text = strings.ToLower(text)
	out := make([]Label, 0, len(LabelVocabulary))
	for _, name := range LabelVocabulary {
		out = append(out, Label{Name: name, Score: textSimilarity(text, name)})
	}
	return out, nil
}

// Answer returns the content line sharing the most tokens with question.
func (LocalProvider) Answer(ctx context.Context, question, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	q := tokens(strings.ToLower(question))
	best, bestHits := "", 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		hits := 0
		for t := range tokens(strings.ToLower(line)) {
			if _, ok := q[t]; ok {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = line, hits
		}
	}
	if best == "" {
		return "The document does not mention that.", nil
	}
	return best, nil
}

// Suggest proposes following up on the most recent discussion point.
func (LocalProvider) Suggest(ctx context.Context, meetingContext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	lines := strings.Split(strings.TrimSpace(meetingContext), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[i]), "- ")); l != "" {
			return "Assign an owner and a due date for: " + l, nil
		}
	}
	return "", nil
}

// textSimilarity is a simple token overlap ratio in [0,1].
func textSimilarity(a, b string) float64 {
	aTokens := tokens(a)
	bTokens := tokens(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}
	intersect := 0
	for t := range aTokens {
		if _, ok := bTokens[t]; ok {
			intersect++
		}
	}
	union := len(aTokens) + len(bTokens) - intersect
	return float64(intersect) / float64(union)
}

func tokens(s string) map[string]struct{} {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "'")
		if p == "" {
			continue
		}
		out[p] = struct{}{}
	}
	return out
}
