package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jask/teammate/internal/database/repository"
	"github.com/jask/teammate/internal/documents"
	"github.com/jask/teammate/internal/router"
	"github.com/jask/teammate/internal/speech"
)

const visibilityPrompt = "Can you see the slides?"

// deckStopwords are dropped from the words naming a deck.
var deckStopwords = map[string]bool{
	"present": true, "the": true, "a": true, "an": true, "my": true, "our": true,
	"please": true, "now": true, "deck": true, "of": true,
}

// PresenterService walks a slide deck in a meeting chat, sharing each slide
// and speaking its text.
type PresenterService struct {
	WakeWord        string
	DataDir         string
	Meetings        *repository.MeetingRepo
	Messenger       Messenger
	Speaker         speech.Speaker
	DefaultAttendee string
	SlidePause      time.Duration
	Logger          *zap.Logger
}

func (s *PresenterService) Handle(ctx context.Context, st *router.CommandState) {
	log := named(s.Logger, "presenter")
	cmd := strings.ToLower(command(s.WakeWord, st.Input()))
	log.Info("processing presentation command", zap.String("command", cmd))

	if !strings.Contains(cmd, "present") || !strings.Contains(cmd, "slides") {
		st.Response = "Please specify slides to present (e.g., 'present the Q1 slides')."
		return
	}

	hint := deckHint(cmd)
	path, ok := documents.Resolve(s.DataDir, hint+"_slides", documents.TypePPTX)
	if !ok {
		st.Response = fmt.Sprintf("Slide file not recognized. Add '%s_slides.pptx' to the data directory.", hint)
		return
	}
	slides, err := documents.Slides(path)
	if err != nil {
		st.Response = fmt.Sprintf("Failed to load slides: %v", err)
		return
	}

	m, err := currentMeeting(ctx, s.Meetings, st)
	if err != nil {
		log.Error("find meeting", zap.Error(err))
		st.Response = fmt.Sprintf("Failed to find meeting: %v", err)
		return
	}
	if m == nil {
		st.Response = "No recent meeting found to present in."
		return
	}

	chatID := st.ContextString(router.KeyChatID)
	if chatID == "" {
		chatID, err = s.Messenger.CreateOneOnOneChat(ctx, s.DefaultAttendee)
		if err != nil {
			st.Response = fmt.Sprintf("Failed to open meeting chat: %v", err)
			return
		}
		st.SetContext(router.KeyChatID, chatID)
	}

	for i, text := range slides {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if err := s.Messenger.PostChatMessage(ctx, chatID, "Sharing slide: "+text); err != nil {
			st.Response = fmt.Sprintf("Failed to share slide %d: %v", i+1, err)
			return
		}
		s.speak(ctx, log, visibilityPrompt)
		if err := pause(ctx, slidePause(ctx, s.SlidePause, len(slides)-i)); err != nil {
			st.Response = fmt.Sprintf("Presentation interrupted at slide %d: %v", i+1, err)
			return
		}
		s.speak(ctx, log, text)
		log.Info("presented slide", zap.Int("slide", i+1), zap.String("text", text))
	}
	st.Response = fmt.Sprintf("Presented slides from %s in meeting ID %s.", path, m.ID)
}

func (s *PresenterService) speak(ctx context.Context, log *zap.Logger, text string) {
	if s.Speaker == nil {
		return
	}
	if err := s.Speaker.Speak(ctx, text); err != nil {
		log.Warn("speech synthesis failed", zap.Error(err))
	}
}

// deckHint is the words before "slides" without filler words, joined with
// underscores: "present the Q1 slides" names the "q1" deck.
func deckHint(cmd string) string {
	before, _, _ := strings.Cut(cmd, "slides")
	var words []string
	for _, w := range strings.Fields(before) {
		w = strings.Trim(w, ".,!?'\"")
		if w != "" && !deckStopwords[w] {
			words = append(words, w)
		}
	}
	return strings.Join(words, "_")
}

// slidePause shortens d so the slides still to show, this one included,
// finish before the deadline with a share left over for the reply.
func slidePause(ctx context.Context, d time.Duration, remaining int) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok || d <= 0 || remaining < 1 {
		return d
	}
	budget := time.Until(deadline) / time.Duration(remaining+1)
	if budget < d {
		return max(budget, 0)
	}
	return d
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
