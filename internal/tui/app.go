// Package tui is the interactive console: type a command, see where it was
// routed and what came back.
package tui

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/teammate/internal/router"
)

// Router runs one routing pass.
type Router interface {
	Run(ctx context.Context, s *router.CommandState) (router.Result, error)
}

// Exchange is one command and its outcome.
type Exchange struct {
	Input    string
	Outcome  router.Outcome
	Intent   router.Intent
	Response string
	Err      error
}

// historyLimit bounds how many exchanges stay on screen.
const historyLimit = 50

// App is the bubbletea model. Context entries written by handlers carry over
// to the next command, the way a meeting conversation accumulates state.
type App struct {
	ctx     context.Context
	router  Router
	context map[string]any
	input   textinput.Model
	history []Exchange
	busy    bool
	status  string
}

type keyMap struct {
	Send         key.Binding
	ClearContext key.Binding
	Quit         key.Binding
}

var keys = keyMap{
	Send:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	ClearContext: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "clear context")),
	Quit:         key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

func helpLine() string {
	parts := make([]string, 0, 3)
	for _, b := range []key.Binding{keys.Send, keys.ClearContext, keys.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, ", ")
}

func New(ctx context.Context, rt Router, wakeWord string) *App {
	input := textinput.New()
	input.Prompt = "> "
	input.PromptStyle = promptStyle
	input.CharLimit = 500
	input.Placeholder = wakeTitle(wakeWord) + ", schedule a meeting at 3 PM"
	input.Focus()
	return &App{
		ctx:     ctx,
		router:  rt,
		context: map[string]any{},
		input:   input,
		status:  fmt.Sprintf("Address me as %q. %s", wakeWord, helpLine()),
	}
}

func wakeTitle(w string) string {
	if w == "" {
		return w
	}
	r := []rune(w)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// History returns a copy of the exchanges so far.
func (a *App) History() []Exchange {
	return append([]Exchange(nil), a.history...)
}

// Context returns a copy of the carried context.
func (a *App) Context() map[string]any {
	return maps.Clone(a.context)
}

func (a *App) Init() tea.Cmd { return textinput.Blink }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(m)
	case routedMsg:
		a.busy = false
		a.context = m.context
		a.history = append(a.history, m.exchange)
		if len(a.history) > historyLimit {
			a.history = a.history[len(a.history)-historyLimit:]
		}
		a.status = ""
		if m.exchange.Err != nil {
			a.status = "Error: " + m.exchange.Err.Error()
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, keys.Quit):
		return a, tea.Quit
	case key.Matches(m, keys.ClearContext):
		a.context = map[string]any{}
		a.status = "Context cleared."
		return a, nil
	case key.Matches(m, keys.Send):
		cmd := strings.TrimSpace(a.input.Value())
		if cmd == "" || a.busy {
			return a, nil
		}
		a.input.Reset()
		a.busy = true
		a.status = "Routing..."
		return a, a.route(cmd)
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(m)
	return a, cmd
}

// route runs the command off the UI goroutine on a copy of the context, so
// the model only changes when the result message arrives.
func (a *App) route(input string) tea.Cmd {
	carried := maps.Clone(a.context)
	return func() tea.Msg {
		st := router.NewState(input, carried)
		res, err := a.router.Run(a.ctx, st)
		return routedMsg{
			exchange: Exchange{
				Input:    input,
				Outcome:  res.Outcome,
				Intent:   res.Intent,
				Response: st.Response,
				Err:      err,
			},
			context: st.Context,
		}
	}
}

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Teammate console"))
	b.WriteString("\n\n")
	for _, ex := range a.history {
		b.WriteString(promptStyle.Render("> "))
		b.WriteString(ex.Input)
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  [%s %s]", ex.Outcome, ex.Intent)))
		if ex.Response != "" {
			b.WriteString(" ")
			b.WriteString(responseStyle.Render(ex.Response))
		}
		b.WriteString("\n")
	}
	if len(a.context) > 0 {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("context: " + formatContext(a.context)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(a.input.View())
	b.WriteString("\n")
	if a.status != "" {
		style := mutedStyle
		if strings.HasPrefix(a.status, "Error") {
			style = errorStyle
		}
		b.WriteString(style.Render(a.status))
		b.WriteString("\n")
	}
	return b.String()
}

func formatContext(ctx map[string]any) string {
	names := make([]string, 0, len(ctx))
	for k := range ctx {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, fmt.Sprintf("%s=%v", k, ctx[k]))
	}
	return strings.Join(parts, " ")
}

type routedMsg struct {
	exchange Exchange
	context  map[string]any
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	responseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
