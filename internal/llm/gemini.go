package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider calls the Gemini API through the genai SDK. It is safe for
// concurrent use.
type GeminiProvider struct {
	mu      sync.Mutex
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *genai.Client
}

func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		timeout: 8 * time.Second,
	}
}

// SetBaseURL overrides the API endpoint.
func (g *GeminiProvider) SetBaseURL(u string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.baseURL = strings.TrimSpace(u)
	g.client = nil
}

// SetTimeout bounds each call. Zero keeps the current value.
func (g *GeminiProvider) SetTimeout(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d > 0 {
		g.timeout = d
	}
}

type geminiCall struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// prepare builds the client once and returns what a single request needs.
func (g *GeminiProvider) prepare(ctx context.Context) (geminiCall, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.apiKey == "" {
		return geminiCall{}, fmt.Errorf("%w: gemini: %w", ErrModelUnavailable, ErrNoAPIKey)
	}
	if g.client == nil {
		cfg := &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		}
		if g.baseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
		}
		client, err := genai.NewClient(ctx, cfg)
		if err != nil {
			return geminiCall{}, fmt.Errorf("%w: gemini: create client: %w", ErrModelUnavailable, err)
		}
		g.client = client
	}
	model := g.model
	if model == "" {
		model = defaultGeminiModel
	}
	return geminiCall{client: g.client, model: model, timeout: g.timeout}, nil
}

func (g *GeminiProvider) ClassifyText(ctx context.Context, text string) ([]Label, error) {
	respText, err := g.generate(ctx, classifySystemPrompt(), "Utterance:\n"+text)
	if err != nil {
		return nil, err
	}
	var out classifyResponse
	if err := decodeJSON(respText, &out); err != nil {
		return nil, fmt.Errorf("%w: gemini: parse labels: %w", ErrModelUnavailable, err)
	}
	return normalizeLabels(out.Labels), nil
}

func (g *GeminiProvider) Answer(ctx context.Context, question, content string) (string, error) {
	respText, err := g.generate(ctx, answerSystemPrompt, answerUserPrompt(question, content))
	if err != nil {
		return "", err
	}
	var out answerResponse
	if err := decodeJSON(respText, &out); err != nil {
		return "", fmt.Errorf("%w: gemini: parse answer: %w", ErrModelUnavailable, err)
	}
	return strings.TrimSpace(out.Answer), nil
}

func (g *GeminiProvider) Suggest(ctx context.Context, meetingContext string) (string, error) {
	respText, err := g.generate(ctx, suggestSystemPrompt, "Recent meeting discussion:\n"+meetingContext)
	if err != nil {
		return "", err
	}
	var out suggestResponse
	if err := decodeJSON(respText, &out); err != nil {
		return "", fmt.Errorf("%w: gemini: parse suggestion: %w", ErrModelUnavailable, err)
	}
	return strings.TrimSpace(out.Suggestion), nil
}

func (g *GeminiProvider) generate(ctx context.Context, system, user string) (string, error) {
	call, err := g.prepare(ctx)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, call.timeout)
	defer cancel()

	resp, err := call.client.Models.GenerateContent(ctx, call.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", ErrModelUnavailable, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: gemini: empty response", ErrModelUnavailable)
	}
	return text, nil
}
