package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/teammate/internal/router"
)

type scriptedRouter struct {
	err  error
	seen []map[string]any
}

func (r *scriptedRouter) Run(_ context.Context, s *router.CommandState) (router.Result, error) {
	if r.err != nil {
		return router.Result{Outcome: router.OutcomeUnrecognized}, r.err
	}
	seen := map[string]any{}
	for k, v := range s.Context {
		seen[k] = v
	}
	r.seen = append(r.seen, seen)
	s.SetContext(router.KeyMeetingID, "m1")
	s.Response = "echo: " + s.Input()
	return router.Result{Outcome: router.OutcomeHandled, Intent: router.Schedule}, nil
}

func typeLine(t *testing.T, a *App, line string) {
	t.Helper()
	for _, r := range line {
		a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	require.Equal(t, line, a.input.Value())
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	a.Update(cmd())
}

func TestConsoleCarriesContextAcrossCommands(t *testing.T) {
	rt := &scriptedRouter{}
	a := New(context.Background(), rt, "teammate")

	typeLine(t, a, "Teammate, schedule a meeting at 3 PM")
	typeLine(t, a, "Teammate, take notes")

	hist := a.History()
	require.Len(t, hist, 2)
	require.Equal(t, "echo: Teammate, schedule a meeting at 3 PM", hist[0].Response)
	require.Equal(t, router.OutcomeHandled, hist[1].Outcome)
	require.Empty(t, rt.seen[0])
	require.Equal(t, "m1", rt.seen[1][router.KeyMeetingID])
	require.Equal(t, "m1", a.Context()[router.KeyMeetingID])

	view := a.View()
	require.Contains(t, view, "echo: Teammate, take notes")
	require.Contains(t, view, "meeting_id=m1")
}

func TestConsoleEditingKeys(t *testing.T) {
	a := New(context.Background(), &scriptedRouter{}, "teammate")
	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hiy")})
	a.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	require.Equal(t, "hi", a.input.Value())

	a.input.SetValue("   ")
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd, "blank input is not sent")

	a.context["chat_id"] = "c1"
	a.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.Empty(t, a.Context())

	_, cmd = a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestConsoleShowsRouterError(t *testing.T) {
	a := New(context.Background(), &scriptedRouter{err: errors.New("classifier unavailable")}, "teammate")
	typeLine(t, a, "Teammate, read it")
	require.Equal(t, "Error: classifier unavailable", a.status)
	require.Contains(t, a.View(), "classifier unavailable")
}
