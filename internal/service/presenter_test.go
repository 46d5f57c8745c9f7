package service

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jask/teammate/internal/database/dbtest"
	"github.com/jask/teammate/internal/database/repository"
	"github.com/jask/teammate/internal/graph"
	"github.com/jask/teammate/internal/router"
	"github.com/jask/teammate/internal/testdata"
)

type presenterFixture struct {
	svc     *PresenterService
	db      *sql.DB
	graph   *graph.Offline
	speaker *fakeSpeaker
	dir     string
}

func newPresenter(t *testing.T) presenterFixture {
	t.Helper()
	dir := t.TempDir()
	_, err := testdata.WriteSamples(dir)
	require.NoError(t, err)
	db := dbtest.New(t)
	g := graph.NewOffline(zap.NewNop())
	sp := &fakeSpeaker{}
	svc := &PresenterService{
		WakeWord:        wake,
		DataDir:         dir,
		Meetings:        repository.NewMeetingRepo(db),
		Messenger:       g,
		Speaker:         sp,
		DefaultAttendee: "user@example.com",
		Logger:          zap.NewNop(),
	}
	return presenterFixture{svc: svc, db: db, graph: g, speaker: sp, dir: dir}
}

func TestPresentSlides(t *testing.T) {
	ctx := context.Background()
	f := newPresenter(t)
	m := seedMeeting(t, f.db)
	shared := map[string]any{}

	st := run(ctx, f.svc, "Teammate, present the Q1 slides", shared)
	deck := filepath.Join(f.dir, "q1_slides.pptx")
	require.Equal(t, fmt.Sprintf("Presented slides from %s in meeting ID %s.", deck, m.ID), st.Response)

	chatID, _ := shared[router.KeyChatID].(string)
	require.NotEmpty(t, chatID)

	var want []graph.Posted
	var spoken []string
	for _, s := range testdata.SampleSlides {
		if s == "" {
			continue
		}
		want = append(want, graph.Posted{Target: "chat:" + chatID, Content: "Sharing slide: " + s})
		spoken = append(spoken, visibilityPrompt, s)
	}
	require.Equal(t, want, f.graph.Posted())
	require.Equal(t, spoken, f.speaker.said)

	// the chat is reused on the next pass
	run(ctx, f.svc, "Teammate, present the Q1 slides", shared)
	require.Equal(t, chatID, shared[router.KeyChatID])
}

func TestPresentRejects(t *testing.T) {
	ctx := context.Background()

	f := newPresenter(t)
	st := run(ctx, f.svc, "Teammate, present the Q1 slides", nil)
	require.Equal(t, "No recent meeting found to present in.", st.Response)

	seedMeeting(t, f.db)
	st = run(ctx, f.svc, "Teammate, show the slides", nil)
	require.Equal(t, "Please specify slides to present (e.g., 'present the Q1 slides').", st.Response)

	st = run(ctx, f.svc, "Teammate, present the marketing roadmap slides", nil)
	require.Equal(t, "Slide file not recognized. Add 'marketing_roadmap_slides.pptx' to the data directory.", st.Response)
	require.Empty(t, f.graph.Posted())
}

func TestPresentChatFailure(t *testing.T) {
	f := newPresenter(t)
	seedMeeting(t, f.db)
	f.svc.Messenger = failingGraph{err: errGraphDown}

	st := run(context.Background(), f.svc, "Teammate, present the Q1 slides", nil)
	require.Equal(t, "Failed to open meeting chat: graph: status 503: unavailable", st.Response)
	require.Empty(t, f.speaker.said)
}

func TestPresentInterrupted(t *testing.T) {
	f := newPresenter(t)
	seedMeeting(t, f.db)
	f.svc.SlidePause = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(50*time.Millisecond, cancel)

	st := run(ctx, f.svc, "Teammate, present the Q1 slides", map[string]any{router.KeyChatID: "c1"})
	require.Equal(t, "Presentation interrupted at slide 1: context canceled", st.Response)
	require.Equal(t, []string{visibilityPrompt}, f.speaker.said)
}

func TestPresentFitsDeadline(t *testing.T) {
	f := newPresenter(t)
	m := seedMeeting(t, f.db)
	f.svc.SlidePause = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	st := run(ctx, f.svc, "Teammate, present the Q1 slides", map[string]any{router.KeyChatID: "c1"})
	deck := filepath.Join(f.dir, "q1_slides.pptx")
	require.Equal(t, fmt.Sprintf("Presented slides from %s in meeting ID %s.", deck, m.ID), st.Response)
	require.NoError(t, ctx.Err())
}

func TestSlidePause(t *testing.T) {
	require.Equal(t, 2*time.Second, slidePause(context.Background(), 2*time.Second, 20))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.Equal(t, 2*time.Second, slidePause(ctx, 2*time.Second, 3))
	d := slidePause(ctx, 2*time.Second, 15)
	require.Greater(t, d, time.Duration(0))
	require.LessOrEqual(t, d, 10*time.Second/16)

	require.Equal(t, time.Duration(0), slidePause(ctx, 0, 15))
}

func TestDeckHint(t *testing.T) {
	require.Equal(t, "q1", deckHint("present the q1 slides"))
	require.Equal(t, "board_update", deckHint("please present our board update slides now"))
	require.Equal(t, "", deckHint("present the slides"))
}
