package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jask/teammate/internal/database/repository"
	"github.com/jask/teammate/internal/router"
)

// NoteTakerService starts and stops minute capture for a meeting.
type NoteTakerService struct {
	WakeWord string
	Meetings *repository.MeetingRepo
	Sessions *SessionManager
	Logger   *zap.Logger
}

func (s *NoteTakerService) Handle(ctx context.Context, st *router.CommandState) {
	log := named(s.Logger, "notetaker")
	cmd := strings.ToLower(command(s.WakeWord, st.Input()))
	log.Info("processing note-taking command", zap.String("command", cmd))

	switch {
	case strings.Contains(cmd, "stop taking notes"):
		if s.stop(st) {
			st.Response = "Stopped taking notes."
		} else {
			st.Response = "Not currently taking notes."
		}
	case strings.Contains(cmd, "take notes"), strings.Contains(cmd, "start taking notes"):
		m, err := currentMeeting(ctx, s.Meetings, st)
		if err != nil {
			log.Error("find meeting", zap.Error(err))
			st.Response = fmt.Sprintf("Failed to find meeting: %v", err)
			return
		}
		if m == nil {
			st.Response = "No recent meeting found to take notes for."
			return
		}
		st.SetContext(router.KeyMeetingID, m.ID)
		if !s.Sessions.Start(m.ID) {
			st.Response = "Already taking notes."
			return
		}
		st.Response = fmt.Sprintf("Started taking notes for meeting ID %s.", m.ID)
	default:
		st.Response = "Unrecognized note-taking command."
	}
}

// stop ends the capture for the meeting in context, or every capture when
// the command carries no meeting.
func (s *NoteTakerService) stop(st *router.CommandState) bool {
	if id := st.ContextString(router.KeyMeetingID); id != "" {
		return s.Sessions.Stop(id)
	}
	return s.Sessions.StopAll() > 0
}

// currentMeeting returns the meeting named in the state's context, falling
// back to the meeting with the latest start time.
func currentMeeting(ctx context.Context, meetings *repository.MeetingRepo, st *router.CommandState) (*repository.Meeting, error) {
	if id := st.ContextString(router.KeyMeetingID); id != "" {
		m, err := meetings.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return m, nil
		}
	}
	return meetings.Latest(ctx)
}
