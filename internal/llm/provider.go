package llm

import (
	"context"
	"errors"
)

// ErrModelUnavailable wraps every failure to reach or decode a model call.
var ErrModelUnavailable = errors.New("llm: model unavailable")

// ErrNoAPIKey is returned by hosted providers that were built without a key.
var ErrNoAPIKey = errors.New("llm: api key not configured")

// Label is one classifier-native label with its score in [0,1].
type Label struct {
	Name  string  `json:"label"`
	Score float64 `json:"score"`
}

// Provider defines the model calls used by the router and the handlers.
type Provider interface {
	// ClassifyText scores text against the provider's label vocabulary.
	ClassifyText(ctx context.Context, text string) ([]Label, error)
	// Answer extracts an answer to question from content.
	Answer(ctx context.Context, question, content string) (string, error)
	// Suggest proposes a next step given recent meeting discussion.
	Suggest(ctx context.Context, meetingContext string) (string, error)
}

// LabelVocabulary is the label set hosted providers are asked to score
// against. Names are phrased so the router's trigger substrings can find them.
var LabelVocabulary = []string{
	"schedule meeting",
	"take notes",
	"present slides",
	"send message",
	"read document",
	"suggest idea",
	"other",
}

type classifyResponse struct {
	Labels []Label `json:"labels"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

type suggestResponse struct {
	Suggestion string `json:"suggestion"`
}
