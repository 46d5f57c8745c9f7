package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/jask/teammate/internal/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubModel struct {
	labels []llm.Label
	err    error
	calls  int
}

func (s *stubModel) ClassifyText(_ context.Context, _ string) ([]llm.Label, error) {
	s.calls++
	return s.labels, s.err
}

type recorder struct {
	calls map[Intent]int
}

func (r *recorder) handler(intent Intent) Handler {
	return HandlerFunc(func(_ context.Context, s *CommandState) {
		r.calls[intent]++
		s.Response = "handled by " + intent.String()
	})
}

func (r *recorder) total() int {
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func newRecorder() (*recorder, Handlers) {
	r := &recorder{calls: map[Intent]int{}}
	return r, Handlers{
		Scheduler:    r.handler(Schedule),
		NoteTaker:    r.handler(Notes),
		Presenter:    r.handler(Present),
		Communicator: r.handler(Message),
		Reader:       r.handler(Read),
		Suggestor:    r.handler(Suggest),
	}
}

func defaultOptions() Options {
	return Options{
		WakeWord:      "teammate",
		SuppressTerms: []string{"ignore", "don’t", "don't"},
		Threshold:     0.5,
		KeywordBonus:  1.0,
		Timeout:       time.Second,
	}
}

func newTestRouter(t *testing.T, model TextClassifier, h Handlers) *Router {
	t.Helper()
	r, err := New(defaultOptions(), model, h, zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestRunWithoutWakeWordIsSilent(t *testing.T) {
	t.Parallel()

	model := &stubModel{}
	rec, h := newRecorder()
	r := newTestRouter(t, model, h)

	s := NewState("Random text", nil)
	res, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, res.Outcome)
	require.False(t, s.Active)
	require.Empty(t, s.Response)
	require.Equal(t, PhaseTerminated, s.Phase())
	require.Zero(t, rec.total())
	require.Zero(t, model.calls)
}

func TestRunSuppressed(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"Teammate, ignore this",
		"TEAMMATE don't schedule anything",
		"teammate, don’t take notes",
	} {
		model := &stubModel{}
		rec, h := newRecorder()
		r := newTestRouter(t, model, h)

		s := NewState(input, nil)
		res, err := r.Run(context.Background(), s)
		require.NoError(t, err, input)
		require.Equal(t, OutcomeSuppressed, res.Outcome, input)
		require.False(t, s.Active, input)
		require.Equal(t, SuppressedResponse, s.Response, input)
		require.Zero(t, rec.total(), input)
		require.Zero(t, model.calls, "no classification for %q", input)
	}
}

func TestRunCanonicalCommands(t *testing.T) {
	t.Parallel()

	cases := map[string]Intent{
		"Teammate, schedule a meeting at 3 PM":         Schedule,
		"Teammate, take notes":                         Notes,
		"Teammate, present the Q1 slides":              Present,
		"Teammate, tell the team hello":                Message,
		"Teammate, what’s in row 5 of the Excel file?": Read,
		"Teammate, what's in the Excel file":           Read,
		"Teammate, what do you suggest?":               Suggest,
	}
	for input, want := range cases {
		model := &stubModel{}
		rec, h := newRecorder()
		r := newTestRouter(t, model, h)

		s := NewState(input, nil)
		res, err := r.Run(context.Background(), s)
		require.NoError(t, err, input)
		require.Equal(t, OutcomeHandled, res.Outcome, input)
		require.Equal(t, want, res.Intent, input)
		require.Equal(t, 1, rec.calls[want], input)
		require.Equal(t, 1, rec.total(), input)
		require.Equal(t, "handled by "+want.String(), s.Response, input)
	}
}

func TestRunScheduleScenario(t *testing.T) {
	t.Parallel()

	model := &stubModel{labels: []llm.Label{{Name: "LABEL_0", Score: 0.51}, {Name: "LABEL_1", Score: 0.49}}}
	rec, h := newRecorder()
	r := newTestRouter(t, model, h)

	s := NewState("Teammate, schedule a meeting at 3 PM", nil)
	res, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, Schedule, res.Intent)
	require.InDelta(t, 1.0, res.Scores[Schedule], 1e-9)
	for _, c := range Categories() {
		if c != Schedule {
			require.Zero(t, res.Scores[c], c.String())
		}
	}
	require.Equal(t, 1, rec.calls[Schedule])
}

func TestRunUsesModelLabels(t *testing.T) {
	t.Parallel()

	model := &stubModel{labels: []llm.Label{{Name: "send message", Score: 0.9}, {Name: "other", Score: 0.1}}}
	rec, h := newRecorder()
	r := newTestRouter(t, model, h)

	s := NewState("Teammate, ping bob about lunch", nil)
	res, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, Message, res.Intent)
	require.Equal(t, 1, rec.calls[Message])
}

func TestRunLowConfidenceIsUnrecognized(t *testing.T) {
	t.Parallel()

	model := &stubModel{labels: []llm.Label{{Name: "send message", Score: 0.3}}}
	rec, h := newRecorder()
	r := newTestRouter(t, model, h)

	s := NewState("Teammate, ping bob", nil)
	res, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, OutcomeUnrecognized, res.Outcome)
	require.Equal(t, Unknown, res.Intent)
	require.Equal(t, UnrecognizedResponse, s.Response)
	require.True(t, s.Active)
	require.Zero(t, rec.total())
}

func TestTieBreakPrefersEarlierCategory(t *testing.T) {
	t.Parallel()

	orders := [][]llm.Label{
		{{Name: "present slides", Score: 0.7}, {Name: "send message", Score: 0.7}},
		{{Name: "send message", Score: 0.7}, {Name: "present slides", Score: 0.7}},
	}
	for _, labels := range orders {
		c := NewClassifier(&stubModel{labels: labels}, "teammate", 0.5, 1.0)
		intent, scores, err := c.Classify(context.Background(), "teammate, do the thing")
		require.NoError(t, err)
		require.InDelta(t, scores[Present], scores[Message], 1e-9)
		require.Equal(t, Present, intent)
	}

	// keyword-only tie: "meeting" and "tell" both score the bonus
	c := NewClassifier(&stubModel{}, "teammate", 0.5, 1.0)
	intent, _, err := c.Classify(context.Background(), "Teammate, tell the team Meeting scheduled for 3 PM")
	require.NoError(t, err)
	require.Equal(t, Schedule, intent)
}

func TestClassifyEmptyTextSkipsModel(t *testing.T) {
	t.Parallel()

	model := &stubModel{}
	c := NewClassifier(model, "teammate", 0.5, 1.0)
	intent, _, err := c.Classify(context.Background(), "  Teammate,  ")
	require.NoError(t, err)
	require.Equal(t, Unknown, intent)
	require.Zero(t, model.calls)
}

func TestClassifyHonorsConfiguredWeights(t *testing.T) {
	t.Parallel()

	// a bonus below the threshold cannot carry a keyword match on its own
	c := NewClassifier(&stubModel{}, "teammate", 0.5, 0.25)
	intent, scores, err := c.Classify(context.Background(), "teammate take notes")
	require.NoError(t, err)
	require.Equal(t, Unknown, intent)
	require.InDelta(t, 0.25, scores[Notes], 1e-9)
}

func TestRunClassifierUnavailable(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	model := &stubModel{err: cause}
	rec, h := newRecorder()
	r := newTestRouter(t, model, h)

	s := NewState("Teammate, take notes", nil)
	_, err := r.Run(context.Background(), s)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrClassifierUnavailable)
	require.ErrorIs(t, err, cause)
	require.Zero(t, rec.total())
	require.Equal(t, PhaseTerminated, s.Phase())
}

func TestGateIsIdempotent(t *testing.T) {
	t.Parallel()

	g := NewGate("teammate", []string{"ignore"})
	s := NewState("Teammate, take notes", nil)
	require.True(t, g.Apply(s))
	before := *s
	require.True(t, g.Apply(s))
	require.Equal(t, before.Active, s.Active)
	require.Equal(t, before.Response, s.Response)
	require.Equal(t, PhaseGatedActive, s.Phase())

	ignored := NewState("Teammate, ignore this", nil)
	require.False(t, g.Apply(ignored))
	require.False(t, g.Apply(ignored))
	require.Equal(t, SuppressedResponse, ignored.Response)
}

func TestRunPassesContextThrough(t *testing.T) {
	t.Parallel()

	_, h := newRecorder()
	h.Scheduler = HandlerFunc(func(_ context.Context, s *CommandState) {
		s.SetContext(KeyMeetingID, "m-1")
		s.Response = "ok"
	})
	r := newTestRouter(t, &stubModel{}, h)

	ctx := map[string]any{KeyChatID: "chat-9", "custom": 42}
	s := NewState("Teammate, schedule a meeting at 4 PM", ctx)
	_, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, map[string]any{KeyChatID: "chat-9", "custom": 42, KeyMeetingID: "m-1"}, s.Context)
	require.Equal(t, "42", s.ContextString("custom"))
}

func TestRunEmptyHandlerResponse(t *testing.T) {
	t.Parallel()

	_, h := newRecorder()
	h.NoteTaker = HandlerFunc(func(context.Context, *CommandState) {})
	r := newTestRouter(t, &stubModel{}, h)

	s := NewState("Teammate, take notes", nil)
	_, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, DefaultResponse, s.Response)
}

func TestRunRecoversHandlerPanic(t *testing.T) {
	t.Parallel()

	_, h := newRecorder()
	h.Presenter = HandlerFunc(func(context.Context, *CommandState) { panic("projector on fire") })
	r := newTestRouter(t, &stubModel{}, h)

	s := NewState("Teammate, present the Q1 slides", nil)
	res, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, OutcomeHandled, res.Outcome)
	require.Contains(t, s.Response, "present handler failed")
	require.Equal(t, PhaseTerminated, s.Phase())
}

func TestRunTimesOutSlowHandler(t *testing.T) {
	t.Parallel()

	_, h := newRecorder()
	h.Reader = HandlerFunc(func(ctx context.Context, s *CommandState) {
		<-ctx.Done()
		s.Response = "Error reading file: " + ctx.Err().Error()
	})
	opts := defaultOptions()
	opts.Timeout = 20 * time.Millisecond
	r, err := New(opts, &stubModel{}, h, zap.NewNop())
	require.NoError(t, err)

	s := NewState("Teammate, read the PDF file", nil)
	_, err = r.Run(context.Background(), s)
	require.NoError(t, err)
	require.Contains(t, s.Response, "timed out")
}

func TestNewRequiresAllHandlers(t *testing.T) {
	t.Parallel()

	_, h := newRecorder()
	h.Suggestor = nil
	_, err := New(defaultOptions(), &stubModel{}, h, nil)
	require.ErrorIs(t, err, ErrMissingHandler)

	_, h = newRecorder()
	_, err = New(defaultOptions(), nil, h, nil)
	require.Error(t, err)
}

func TestDispatchIsTotal(t *testing.T) {
	t.Parallel()

	_, h := newRecorder()
	for _, c := range Categories() {
		handler, ok := h.Dispatch(c)
		require.True(t, ok, c.String())
		require.NotNil(t, handler, c.String())
		require.Equal(t, c, ParseIntent(c.String()))
	}
	_, ok := h.Dispatch(Unknown)
	require.False(t, ok)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	require.Equal(t, "take notes", Normalize("teammate", "Teammate, take notes"))
	require.Equal(t, "what do you suggest?", Normalize("Teammate", "  TEAMMATE: what do you suggest?  "))
	require.Equal(t, "", Normalize("teammate", "teammate"))
}
