package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/teammate/internal/database/repository"
	"github.com/jask/teammate/internal/graph"
	"github.com/jask/teammate/internal/prefs"
	"github.com/jask/teammate/internal/reminder"
	"github.com/jask/teammate/internal/router"
)

const defaultMeetingTitle = "Team Meeting"

var timeLayouts = []string{"3 PM", "3PM", "3:04 PM", "3:04PM", "15:04"}

// titlePrefixes are stripped from the text before " at " to leave the title.
// Longer phrases come first.
var titlePrefixes = []string{
	"schedule a meeting", "schedule meeting", "schedule a", "schedule",
	"set up a meeting", "set up a", "set up",
	"plan a meeting", "plan a", "plan",
	"called", "about", "for",
}

// SchedulerService creates calendar events for "schedule ... at <time>"
// commands, stores the meeting and queues reminders for every attendee.
type SchedulerService struct {
	WakeWord         string
	Calendar         Calendar
	Meetings         *repository.MeetingRepo
	Reminders        Enqueuer
	Contacts         *prefs.Contacts
	UserID           string
	DefaultAttendees []string
	Duration         time.Duration
	ReminderLead     time.Duration
	Location         *time.Location
	Now              func() time.Time
	Logger           *zap.Logger
}

func (s *SchedulerService) Handle(ctx context.Context, st *router.CommandState) {
	log := named(s.Logger, "scheduler")
	cmd := command(s.WakeWord, st.Input())
	log.Info("scheduling meeting", zap.String("command", cmd))

	at := lastIndexFold(cmd, " at ")
	if at < 0 {
		st.Response = "Please specify a time (e.g., 'at 3 PM')."
		return
	}
	left, timeStr := strings.TrimSpace(cmd[:at]), strings.TrimSpace(cmd[at+len(" at "):])

	var names []string
	if i := lastIndexFold(timeStr, " with "); i >= 0 {
		names = append(names, splitNames(timeStr[i+len(" with "):])...)
		timeStr = strings.TrimSpace(timeStr[:i])
	}
	if i := lastIndexFold(left, " with "); i >= 0 {
		names = append(names, splitNames(left[i+len(" with "):])...)
		left = strings.TrimSpace(left[:i])
	}

	start, ok := s.parseStart(timeStr)
	if !ok {
		st.Response = "Invalid time format. Use '3 PM' or similar."
		return
	}

	attendees, unknown := s.attendees(names)
	if unknown != "" {
		st.Response = fmt.Sprintf("Unknown attendee '%s'. Add them to contacts first.", unknown)
		return
	}

	title := meetingTitle(left)
	eventID, err := s.Calendar.CreateEvent(ctx, s.UserID, graph.Event{
		Subject:   title,
		Start:     start.UTC(),
		End:       start.Add(s.duration()).UTC(),
		Attendees: attendees,
	})
	if err != nil {
		log.Error("create event", zap.Error(err))
		st.Response = fmt.Sprintf("Failed to schedule meeting: %v", err)
		return
	}

	m := repository.Meeting{
		ID:        uuid.NewString(),
		Title:     title,
		StartTime: start,
		Attendees: attendees,
		EventID:   &eventID,
	}
	if err := s.Meetings.Insert(ctx, m); err != nil {
		log.Error("store meeting", zap.Error(err))
		st.Response = fmt.Sprintf("Failed to save meeting: %v", err)
		return
	}
	st.SetContext(router.KeyMeetingID, m.ID)
	log.Info("scheduled meeting",
		zap.String("title", title),
		zap.Time("start", start),
		zap.String("event_id", eventID),
		zap.String("meeting_id", m.ID),
	)

	s.queueReminders(ctx, log, m)
	st.Response = fmt.Sprintf("Scheduled '%s' at %s with ID %s.", title, timeStr, m.ID)
}

func (s *SchedulerService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SchedulerService) duration() time.Duration {
	if s.Duration > 0 {
		return s.Duration
	}
	return time.Hour
}

// parseStart reads a clock time as the next occurrence of that time in the
// configured location: today, or tomorrow when it has already passed.
func (s *SchedulerService) parseStart(timeStr string) (time.Time, bool) {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	raw := strings.ToUpper(strings.TrimRight(strings.TrimSpace(timeStr), ".!?"))
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		now := s.now().In(loc)
		start := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		if start.Before(now) {
			start = start.AddDate(0, 0, 1)
		}
		return start, true
	}
	return time.Time{}, false
}

// attendees returns the default attendees plus every named contact. The
// first name that cannot be resolved is returned as unknown.
func (s *SchedulerService) attendees(names []string) ([]string, string) {
	out := append([]string(nil), s.DefaultAttendees...)
	seen := map[string]bool{}
	for _, a := range out {
		seen[strings.ToLower(a)] = true
	}
	for _, n := range names {
		addr, ok := "", false
		if s.Contacts != nil {
			addr, ok = s.Contacts.Lookup(n)
		} else if strings.Contains(n, "@") {
			addr, ok = n, true
		}
		if !ok {
			return nil, n
		}
		if !seen[strings.ToLower(addr)] {
			seen[strings.ToLower(addr)] = true
			out = append(out, addr)
		}
	}
	return out, ""
}

func (s *SchedulerService) queueReminders(ctx context.Context, log *zap.Logger, m repository.Meeting) {
	if s.Reminders == nil {
		return
	}
	lead := s.ReminderLead
	if lead <= 0 {
		lead = 2 * time.Minute
	}
	due := m.StartTime.Add(-lead)
	if now := s.now(); due.Before(now) {
		due = now
	}
	wake := wakeTitle(s.WakeWord)
	for _, a := range m.Attendees {
		for _, cmd := range []string{
			fmt.Sprintf("%s, tell %s Reminder: '%s' starts in %s", wake, a, m.Title, leadText(lead)),
			fmt.Sprintf("%s, call %s", wake, a),
		} {
			err := s.Reminders.Enqueue(ctx, reminder.Reminder{
				ID:      uuid.NewString(),
				DueAt:   due,
				Command: cmd,
				Context: map[string]any{router.KeyMeetingID: m.ID},
			})
			if err != nil {
				log.Warn("queue reminder", zap.String("attendee", a), zap.Error(err))
			}
		}
	}
}

func meetingTitle(left string) string {
	title := strings.TrimSpace(left)
	for stripped := true; stripped; {
		stripped = false
		for _, p := range titlePrefixes {
			if rest, ok := cutPrefixFold(title, p); ok {
				title, stripped = rest, true
				break
			}
		}
	}
	title = strings.Trim(title, " '\"")
	if title == "" {
		return defaultMeetingTitle
	}
	return title
}

// splitNames reads "alice, bob and carol" as three names.
func splitNames(s string) []string {
	s = strings.TrimRight(strings.TrimSpace(s), ".!?")
	var out []string
	for _, part := range strings.Split(s, ",") {
		for _, n := range strings.Split(part, " and ") {
			if n = strings.TrimSpace(n); n != "" {
				n, _ = cutPrefixFold(n, "and")
				out = append(out, n)
			}
		}
	}
	return out
}

func leadText(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	if mins == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", mins)
}
