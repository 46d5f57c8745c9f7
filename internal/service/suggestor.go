package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jask/teammate/internal/database/repository"
	"github.com/jask/teammate/internal/router"
)

const contextRows = 5

// SuggestorService proposes a next step from the latest meeting minutes.
type SuggestorService struct {
	WakeWord  string
	Meetings  *repository.MeetingRepo
	Suggester Suggester
	Logger    *zap.Logger
}

func (s *SuggestorService) Handle(ctx context.Context, st *router.CommandState) {
	log := named(s.Logger, "suggestor")
	cmd := strings.ToLower(command(s.WakeWord, st.Input()))
	log.Info("processing suggestion command", zap.String("command", cmd))

	if !strings.Contains(cmd, "suggest") && !strings.Contains(cmd, "what do you think") {
		st.Response = "Please ask for a suggestion (e.g., 'what do you suggest?')."
		return
	}

	rows, err := s.Meetings.RecentContext(ctx, contextRows)
	if err != nil {
		log.Error("load meeting context", zap.Error(err))
		st.Response = fmt.Sprintf("Suggestion: Error generating suggestion: %v", err)
		return
	}
	if len(rows) == 0 {
		st.Response = "No recent meeting context available."
		return
	}
	meetingContext := MeetingContext(rows)
	log.Debug("meeting context", zap.String("context", meetingContext))

	suggestion, err := s.Suggester.Suggest(ctx, meetingContext)
	switch {
	case err != nil:
		suggestion = fmt.Sprintf("Error generating suggestion: %v", err)
	case strings.TrimSpace(suggestion) == "":
		suggestion = "No specific suggestion generated."
	default:
		suggestion = strings.TrimSpace(suggestion)
	}
	log.Info("generated suggestion", zap.String("suggestion", suggestion))
	st.Response = "Suggestion: " + suggestion
}

// MeetingContext renders minutes, given newest first, as the prompt context
// in the order they were spoken:
//
//	Recent meeting discussion:
//	- Q1 Review: Revenue is up.
func MeetingContext(rows []repository.MeetingContext) string {
	var b strings.Builder
	b.WriteString("Recent meeting discussion:\n")
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		if r.Text == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Text)
	}
	return b.String()
}
