package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider calls the chat completions API and asks for JSON replies.
// It is safe for concurrent use.
type OpenAIProvider struct {
	mu      sync.Mutex
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *openai.Client
}

// NewOpenAIProvider returns a provider; the client is built on first use.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		timeout: 8 * time.Second,
	}
}

// SetBaseURL points the provider at a compatible endpoint.
func (p *OpenAIProvider) SetBaseURL(u string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseURL = strings.TrimSpace(u)
	p.client = nil
}

func (p *OpenAIProvider) SetAPIKey(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apiKey = strings.TrimSpace(key)
	p.client = nil
}

func (p *OpenAIProvider) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = strings.TrimSpace(model)
}

// SetTimeout bounds each call. Zero keeps the current value.
func (p *OpenAIProvider) SetTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d > 0 {
		p.timeout = d
	}
}

// openAICall is one request's view of the provider, taken under the lock.
type openAICall struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func (p *OpenAIProvider) prepare() (openAICall, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.apiKey == "" {
		return openAICall{}, fmt.Errorf("%w: openai: %w", ErrModelUnavailable, ErrNoAPIKey)
	}
	if p.client == nil {
		opts := []option.RequestOption{option.WithAPIKey(p.apiKey), option.WithMaxRetries(0)}
		if p.baseURL != "" {
			opts = append(opts, option.WithBaseURL(p.baseURL))
		}
		c := openai.NewClient(opts...)
		p.client = &c
	}
	model := p.model
	if model == "" {
		model = defaultOpenAIModel
	}
	return openAICall{client: p.client, model: model, timeout: p.timeout}, nil
}

func (p *OpenAIProvider) ClassifyText(ctx context.Context, text string) ([]Label, error) {
	respText, err := p.complete(ctx, classifySystemPrompt(), "Utterance:\n"+text)
	if err != nil {
		return nil, err
	}
	var out classifyResponse
	if err := decodeJSON(respText, &out); err != nil {
		return nil, fmt.Errorf("%w: openai: parse labels: %w", ErrModelUnavailable, err)
	}
	return normalizeLabels(out.Labels), nil
}

func (p *OpenAIProvider) Answer(ctx context.Context, question, content string) (string, error) {
	respText, err := p.complete(ctx, answerSystemPrompt, answerUserPrompt(question, content))
	if err != nil {
		return "", err
	}
	var out answerResponse
	if err := decodeJSON(respText, &out); err != nil {
		return "", fmt.Errorf("%w: openai: parse answer: %w", ErrModelUnavailable, err)
	}
	return strings.TrimSpace(out.Answer), nil
}

func (p *OpenAIProvider) Suggest(ctx context.Context, meetingContext string) (string, error) {
	respText, err := p.complete(ctx, suggestSystemPrompt, "Recent meeting discussion:\n"+meetingContext)
	if err != nil {
		return "", err
	}
	var out suggestResponse
	if err := decodeJSON(respText, &out); err != nil {
		return "", fmt.Errorf("%w: openai: parse suggestion: %w", ErrModelUnavailable, err)
	}
	return strings.TrimSpace(out.Suggestion), nil
}

func (p *OpenAIProvider) complete(ctx context.Context, system, user string) (string, error) {
	call, err := p.prepare()
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, call.timeout)
	defer cancel()

	resp, err := call.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(call.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens: openai.Int(400),
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %w", ErrModelUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: empty response", ErrModelUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
