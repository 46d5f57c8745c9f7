// Package speech wraps text-to-speech and speech-to-text.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/jask/teammate/internal/config"
)

// ErrNotConfigured is returned by speech calls made without an API key.
var ErrNotConfigured = errors.New("speech: not configured")

// Speaker voices text into the meeting.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Synthesizer renders speech with the OpenAI audio API and drops each
// utterance as an mp3 into the output directory, which the meeting audio
// bridge plays back.
type Synthesizer struct {
	client    *openai.Client
	model     string
	voice     string
	outputDir string
	logger    *zap.Logger
}

// Whisper transcribes audio with the OpenAI transcription API.
type Whisper struct {
	client *openai.Client
	model  string
}

func newClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// NewSynthesizer returns a Synthesizer, or a NopSynthesizer when no key is set.
func NewSynthesizer(cfg config.SpeechConfig, logger *zap.Logger) Speaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return NopSynthesizer{logger: logger.Named("speech")}
	}
	return &Synthesizer{
		client:    newClient(cfg.APIKey, cfg.BaseURL),
		model:     cfg.TTSModel,
		voice:     cfg.Voice,
		outputDir: cfg.OutputDir,
		logger:    logger.Named("speech"),
	}
}

func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return fmt.Errorf("speech: synthesize: %w", err)
	}
	defer resp.Close()

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("speech: output dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.mp3", time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
	path := filepath.Join(s.outputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("speech: create %s: %w", name, err)
	}
	if _, err := io.Copy(f, resp); err != nil {
		_ = f.Close()
		return fmt.Errorf("speech: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.logger.Info("spoke", zap.String("text", text), zap.String("file", path))
	return nil
}

// NopSynthesizer logs what would have been spoken.
type NopSynthesizer struct {
	logger *zap.Logger
}

func (n NopSynthesizer) Speak(_ context.Context, text string) error {
	if n.logger != nil {
		n.logger.Info("speech disabled, would say", zap.String("text", text))
	}
	return nil
}

// NewWhisper returns a transcriber, or nil when no key is set.
func NewWhisper(cfg config.SpeechConfig) Transcriber {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	return &Whisper{client: newClient(cfg.APIKey, cfg.BaseURL), model: cfg.STTModel}
}

func (w *Whisper) Transcribe(ctx context.Context, path string) (string, error) {
	if w == nil || w.client == nil {
		return "", ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	model := w.model
	if model == "" {
		model = openai.Whisper1
	}
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("speech: transcribe %s: %w", filepath.Base(path), err)
	}
	return strings.TrimSpace(resp.Text), nil
}
