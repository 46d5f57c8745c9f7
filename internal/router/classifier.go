package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/jask/teammate/internal/llm"
)

// TextClassifier is the generic multi-label model the classifier consults.
type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) ([]llm.Label, error)
}

// Scores holds the accumulated score per category.
type Scores map[Intent]float64

// Classifier scores an utterance against the fixed categories by combining
// model label scores with a flat bonus for verbatim trigger matches.
type Classifier struct {
	model        TextClassifier
	wakeWord     string
	threshold    float64
	keywordBonus float64
}

// NewClassifier returns a classifier. threshold is the minimum winning score
// below which the result is Unknown; keywordBonus is added once per category
// whose trigger appears in the text.
func NewClassifier(model TextClassifier, wakeWord string, threshold, keywordBonus float64) *Classifier {
	return &Classifier{
		model:        model,
		wakeWord:     wakeWord,
		threshold:    threshold,
		keywordBonus: keywordBonus,
	}
}

// Classify normalizes text and returns the winning intent with the scores
// that produced it. Model failures are reported as ErrClassifierUnavailable.
func (c *Classifier) Classify(ctx context.Context, text string) (Intent, Scores, error) {
	text = Normalize(c.wakeWord, text)
	if text == "" {
		return Unknown, Scores{}, nil
	}

	labels, err := c.model.ClassifyText(ctx, text)
	if err != nil {
		return Unknown, nil, fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}

	scores := c.score(text, labels)
	return c.resolve(scores), scores, nil
}

func (c *Classifier) score(text string, labels []llm.Label) Scores {
	scores := make(Scores, len(categories))
	for _, cat := range categories {
		scores[cat] = 0
	}
	for _, l := range labels {
		name := strings.ToLower(l.Name)
		for _, cat := range categories {
			if containsAny(name, triggers[cat]) {
				scores[cat] += l.Score
			}
		}
	}
	for _, cat := range categories {
		if containsAny(text, triggers[cat]) {
			scores[cat] += c.keywordBonus
		}
	}
	return scores
}

// resolve picks the strictly highest score, scanning in declaration order so
// the earlier category keeps a tie.
func (c *Classifier) resolve(scores Scores) Intent {
	best, bestScore := Unknown, 0.0
	for _, cat := range categories {
		if s := scores[cat]; best == Unknown || s > bestScore {
			best, bestScore = cat, s
		}
	}
	if bestScore < c.threshold {
		return Unknown
	}
	return best
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
