// Package service holds the handlers the router dispatches to, one per
// intent, plus maintenance actions for the CLI.
package service

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/jask/teammate/internal/graph"
	"github.com/jask/teammate/internal/reminder"
)

// Calendar creates calendar events.
type Calendar interface {
	CreateEvent(ctx context.Context, userID string, e graph.Event) (string, error)
}

// Messenger posts to team channels and one-on-one chats.
type Messenger interface {
	PostChannelMessage(ctx context.Context, teamID, channelID, content string) error
	CreateOneOnOneChat(ctx context.Context, userID string) (string, error)
	PostChatMessage(ctx context.Context, chatID, content string) error
}

// Answerer answers a question about document content.
type Answerer interface {
	Answer(ctx context.Context, question, content string) (string, error)
}

// Suggester proposes a next step from meeting context.
type Suggester interface {
	Suggest(ctx context.Context, meetingContext string) (string, error)
}

// Enqueuer schedules reminder commands.
type Enqueuer interface {
	Enqueue(ctx context.Context, r reminder.Reminder) error
}

func named(l *zap.Logger, name string) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.Named(name)
}

// command strips every occurrence of the wake word, the punctuation that
// follows it and surrounding space, keeping the case of the rest.
func command(wake, input string) string {
	if wake = strings.TrimSpace(wake); wake != "" {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(wake) + `[,:;!]?`)
		input = re.ReplaceAllString(input, " ")
	}
	input = strings.Join(strings.Fields(input), " ")
	return strings.TrimLeftFunc(input, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ':' || r == ';'
	})
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// cutPrefixFold removes prefix from s ignoring case. The prefix must end at
// a word boundary.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	rest := s[len(prefix):]
	if rest != "" && !unicode.IsSpace(rune(rest[0])) && !unicode.IsPunct(rune(rest[0])) {
		return s, false
	}
	return strings.TrimSpace(rest), true
}

// lastIndexFold returns the byte offset of the last case-insensitive match
// of sep in s, or -1.
func lastIndexFold(s, sep string) int {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(sep))
	all := re.FindAllStringIndex(s, -1)
	if len(all) == 0 {
		return -1
	}
	return all[len(all)-1][0]
}

// indexFold returns the byte offset of the first case-insensitive match of
// sep in s, or -1.
func indexFold(s, sep string) int {
	loc := regexp.MustCompile(`(?i)`+regexp.QuoteMeta(sep)).FindStringIndex(s)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// wakeTitle renders the wake word the way a user would type it at the start
// of a command.
func wakeTitle(wake string) string {
	wake = strings.TrimSpace(wake)
	if wake == "" {
		return "Teammate"
	}
	return strings.ToUpper(wake[:1]) + wake[1:]
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
