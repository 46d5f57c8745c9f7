package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jask/teammate/internal/database/dbtest"
	"github.com/jask/teammate/internal/database/repository"
	"github.com/jask/teammate/internal/graph"
	"github.com/jask/teammate/internal/prefs"
	"github.com/jask/teammate/internal/router"
	"github.com/jask/teammate/internal/testdata"
)

const wake = "teammate"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSpeaker struct {
	mu   sync.Mutex
	said []string
	err  error
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.said = append(f.said, text)
	return f.err
}

// failingGraph fails every call with err.
type failingGraph struct{ err error }

func (f failingGraph) CreateEvent(context.Context, string, graph.Event) (string, error) {
	return "", f.err
}
func (f failingGraph) PostChannelMessage(context.Context, string, string, string) error { return f.err }
func (f failingGraph) CreateOneOnOneChat(context.Context, string) (string, error)     { return "", f.err }
func (f failingGraph) PostChatMessage(context.Context, string, string) error          { return f.err }

var errGraphDown = errors.New("graph: status 503: unavailable")

func run(ctx context.Context, h router.Handler, input string, c map[string]any) *router.CommandState {
	st := router.NewState(input, c)
	h.Handle(ctx, st)
	return st
}

func contacts(t *testing.T, entries map[string]string) *prefs.Contacts {
	t.Helper()
	c, err := prefs.LoadContacts(filepath.Join(t.TempDir(), "contacts.json"))
	require.NoError(t, err)
	for name, addr := range entries {
		require.NoError(t, c.Set(name, addr))
	}
	return c
}

func seedMeeting(t *testing.T, db *sql.DB) repository.Meeting {
	t.Helper()
	m, err := testdata.SeedMeeting(context.Background(), repository.NewMeetingRepo(db), time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return m
}

func TestCommandStripsWakeWordKeepingCase(t *testing.T) {
	require.Equal(t, "tell the team Meeting at 3 PM", command(wake, "Teammate, tell the team Meeting at 3 PM"))
	require.Equal(t, "schedule a meeting", command(wake, "  TEAMMATE: schedule   a meeting "))
	require.Equal(t, "what do you suggest?", command(wake, "what do you suggest? teammate"))
}

func TestFoldHelpers(t *testing.T) {
	rest, ok := cutPrefixFold("The Team we are live", "the team")
	require.True(t, ok)
	require.Equal(t, "we are live", rest)

	_, ok = cutPrefixFold("teamwork matters", "team")
	require.False(t, ok)

	require.Equal(t, 6, lastIndexFold("a AT b at c", " at "))
	require.Equal(t, 1, indexFold("a AT b at c", " at "))
	require.Equal(t, -1, lastIndexFold("nothing", " at "))
	require.Equal(t, "Teammate", wakeTitle("teammate"))
	require.Equal(t, "héll", truncateRunes("héllo", 4))
}

func TestMaintenanceReset(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	seedMeeting(t, db)
	require.NoError(t, repository.NewCommunicationRepo(db).Insert(ctx, repository.Communication{ID: "c1", Type: repository.CommText, Recipient: "team", Content: "hi"}))

	svc := &MaintenanceService{DB: db}
	require.NoError(t, svc.Reset(ctx))

	for _, table := range []string{"meetings", "minutes", "communications", "documents", "reminders"} {
		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n))
		require.Zero(t, n, table)
	}

	require.Error(t, (&MaintenanceService{}).Reset(ctx))
}
