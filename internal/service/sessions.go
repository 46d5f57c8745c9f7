package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/teammate/internal/database/repository"
	"github.com/jask/teammate/internal/speech"
)

// Listener produces recognised speech segments until ctx is done.
type Listener interface {
	Run(ctx context.Context, onSegment func(context.Context, speech.Segment)) error
}

// ListenerFactory builds the listener for one meeting.
type ListenerFactory func(meetingID string) Listener

type session struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// SessionManager runs at most one note-taking capture per meeting. Each
// recognised segment is stored as a minute of that meeting.
type SessionManager struct {
	newListener ListenerFactory
	meetings    *repository.MeetingRepo
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

func NewSessionManager(newListener ListenerFactory, meetings *repository.MeetingRepo, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		newListener: newListener,
		meetings:    meetings,
		logger:      named(logger, "notes"),
		sessions:    map[string]*session{},
	}
}

// Start begins capture for meetingID. It reports false, and does nothing,
// when a capture for that meeting is already running.
func (m *SessionManager) Start(meetingID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[meetingID]; ok {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{cancel: cancel, done: make(chan struct{})}
	m.sessions[meetingID] = sess
	listener := m.newListener(meetingID)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(sess.done)
		err := listener.Run(ctx, func(ctx context.Context, seg speech.Segment) {
			m.record(ctx, meetingID, seg)
		})
		if err != nil {
			m.logger.Error("capture stopped", zap.String("meeting_id", meetingID), zap.Error(err))
		}
		m.mu.Lock()
		if m.sessions[meetingID] == sess {
			delete(m.sessions, meetingID)
		}
		m.mu.Unlock()
		cancel()
	}()
	m.logger.Info("started taking notes", zap.String("meeting_id", meetingID))
	return true
}

// Stop ends the capture for meetingID and waits for it to finish. It reports
// false when none was running.
func (m *SessionManager) Stop(meetingID string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[meetingID]
	delete(m.sessions, meetingID)
	m.mu.Unlock()
	if !ok {
		return false
	}
	sess.cancel()
	<-sess.done
	m.logger.Info("stopped taking notes", zap.String("meeting_id", meetingID))
	return true
}

// StopAll ends every running capture and returns how many there were.
func (m *SessionManager) StopAll() int {
	n := 0
	for _, id := range m.Active() {
		if m.Stop(id) {
			n++
		}
	}
	return n
}

// Active returns the meetings currently being captured.
func (m *SessionManager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	return out
}

// Running reports whether meetingID is being captured.
func (m *SessionManager) Running(meetingID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[meetingID]
	return ok
}

// Close stops every capture and waits for all of them.
func (m *SessionManager) Close() {
	m.StopAll()
	m.wg.Wait()
}

func (m *SessionManager) record(ctx context.Context, meetingID string, seg speech.Segment) {
	err := m.meetings.AddMinute(ctx, repository.Minute{
		ID:        uuid.NewString(),
		MeetingID: meetingID,
		Speaker:   seg.Speaker,
		Text:      seg.Text,
	})
	if err != nil {
		m.logger.Error("store minute", zap.String("meeting_id", meetingID), zap.Error(err))
		return
	}
	m.logger.Info("minute", zap.String("meeting_id", meetingID), zap.String("speaker", seg.Speaker), zap.String("text", seg.Text))
}
