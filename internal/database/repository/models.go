package repository

import "time"

// Meeting represents a meetings row.
type Meeting struct {
	ID        string
	Title     string
	StartTime time.Time
	Attendees []string
	EventID   *string
	CreatedAt time.Time
}

// Minute is one recognised utterance captured during a meeting.
type Minute struct {
	ID        string
	MeetingID string
	Speaker   string
	Text      string
	CreatedAt time.Time
}

// Document is a file that has been read, with its extracted text.
type Document struct {
	ID        string
	Path      string
	Type      string
	Content   string
	CreatedAt time.Time
}

// Communication kinds.
const (
	CommText   = "text"
	CommCall   = "call"
	CommSpeech = "speech"
)

// Communication logs an outbound message, call or spoken line.
type Communication struct {
	ID        string
	Type      string
	Recipient string
	Content   string
	CreatedAt time.Time
}

// Reminder statuses.
const (
	ReminderPending = "pending"
	ReminderDone    = "done"
	ReminderFailed  = "failed"
)

// Reminder is a command scheduled to be routed at DueAt.
type Reminder struct {
	ID        string
	DueAt     time.Time
	Command   string
	Context   map[string]any
	Status    string
	Attempts  int
	LastError *string
	CreatedAt time.Time
}

// MeetingContext pairs a meeting title with one of its minutes.
type MeetingContext struct {
	Title string
	Text  string
}
