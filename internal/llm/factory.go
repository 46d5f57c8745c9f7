package llm

import (
	"fmt"
	"strings"
	"time"
)

// New builds the provider named by name ("openai", "gemini" or "local").
// Hosted providers without a key fall back to the local heuristics.
func New(name, apiKey, model string, timeout time.Duration) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "local":
		return NewLocalProvider(), nil
	case "openai":
		if strings.TrimSpace(apiKey) == "" {
			return NewLocalProvider(), nil
		}
		p := NewOpenAIProvider(apiKey, model)
		p.SetTimeout(timeout)
		return p, nil
	case "gemini":
		if strings.TrimSpace(apiKey) == "" {
			return NewLocalProvider(), nil
		}
		p := NewGeminiProvider(apiKey, model)
		p.SetTimeout(timeout)
		return p, nil
	}
	return nil, fmt.Errorf("llm: unknown provider %q", name)
}
