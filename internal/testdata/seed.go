package testdata

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jask/teammate/internal/database/repository"
)

// DemoMinutes are the utterances seeded into the demo meeting.
var DemoMinutes = []repository.Minute{
	{Speaker: "Speaker 1", Text: "Revenue is up twelve percent this quarter."},
	{Speaker: "Speaker 2", Text: "We still need an owner for the launch checklist."},
	{Speaker: "Speaker 1", Text: "Let's decide on the beta date next week."},
}

// SeedMeeting inserts a demo meeting starting at start with DemoMinutes and
// returns it.
func SeedMeeting(ctx context.Context, meetings *repository.MeetingRepo, start time.Time) (repository.Meeting, error) {
	m := repository.Meeting{
		ID:        uuid.NewString(),
		Title:     "Q1 Review",
		StartTime: start,
		Attendees: []string{"user@example.com"},
	}
	if err := meetings.Insert(ctx, m); err != nil {
		return repository.Meeting{}, err
	}
	for _, line := range DemoMinutes {
		line.ID = uuid.NewString()
		line.MeetingID = m.ID
		if err := meetings.AddMinute(ctx, line); err != nil {
			return repository.Meeting{}, err
		}
	}
	return m, nil
}
