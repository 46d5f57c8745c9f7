package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jask/teammate/internal/database/dbtest"
	"github.com/jask/teammate/internal/database/repository"
	"github.com/jask/teammate/internal/llm"
)

type fakeSuggester struct {
	reply   string
	err     error
	context string
}

func (f *fakeSuggester) Suggest(_ context.Context, meetingContext string) (string, error) {
	f.context = meetingContext
	return f.reply, f.err
}

func TestSuggest(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	sug := &fakeSuggester{reply: "  Pick a beta date on Monday. "}
	svc := &SuggestorService{WakeWord: wake, Meetings: repository.NewMeetingRepo(db), Suggester: sug, Logger: zap.NewNop()}

	st := run(ctx, svc, "Teammate, what do you suggest?", nil)
	require.Equal(t, "No recent meeting context available.", st.Response)

	seedMeeting(t, db)
	st = run(ctx, svc, "Teammate, what do you suggest?", nil)
	require.Equal(t, "Suggestion: Pick a beta date on Monday.", st.Response)
	require.Equal(t, "Recent meeting discussion:\n"+
		"- Q1 Review: Revenue is up twelve percent this quarter.\n"+
		"- Q1 Review: We still need an owner for the launch checklist.\n"+
		"- Q1 Review: Let's decide on the beta date next week.\n", sug.context)

	sug.reply = " "
	st = run(ctx, svc, "Teammate, what do you think?", nil)
	require.Equal(t, "Suggestion: No specific suggestion generated.", st.Response)

	sug.err = errors.New("quota exceeded")
	st = run(ctx, svc, "Teammate, suggest something", nil)
	require.Equal(t, "Suggestion: Error generating suggestion: quota exceeded", st.Response)

	st = run(ctx, svc, "Teammate, any ideas?", nil)
	require.Equal(t, "Please ask for a suggestion (e.g., 'what do you suggest?').", st.Response)
}

func TestSuggestWithLocalProvider(t *testing.T) {
	db := dbtest.New(t)
	seedMeeting(t, db)
	svc := &SuggestorService{WakeWord: wake, Meetings: repository.NewMeetingRepo(db), Suggester: llm.NewLocalProvider()}

	st := run(context.Background(), svc, "Teammate, what do you suggest?", nil)
	require.Equal(t, "Suggestion: Assign an owner and a due date for: Q1 Review: Let's decide on the beta date next week.", st.Response)
}
