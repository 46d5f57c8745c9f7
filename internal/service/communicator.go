package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/teammate/internal/database/repository"
	"github.com/jask/teammate/internal/prefs"
	"github.com/jask/teammate/internal/router"
	"github.com/jask/teammate/internal/speech"
)

const teamRecipient = "team"

var (
	// ErrChannelNotConfigured means the team or channel id is missing.
	ErrChannelNotConfigured = errors.New("team or channel not configured")
	// ErrUnrecognizedCommand means the text names no communication verb.
	ErrUnrecognizedCommand = errors.New("unrecognized communication command")
)

var commVerbs = map[string]bool{"tell": true, "send": true, "remind": true, "call": true, "say": true}

// CommunicatorService sends messages, places (simulated) calls and speaks in
// the meeting. Every action is logged to the communications table.
type CommunicatorService struct {
	WakeWord         string
	TeamID           string
	ChannelID        string
	Messenger        Messenger
	Speaker          speech.Speaker
	Communications   *repository.CommunicationRepo
	Contacts         *prefs.Contacts
	DefaultRecipient string
	Logger           *zap.Logger
}

func (s *CommunicatorService) Handle(ctx context.Context, st *router.CommandState) {
	_ = s.Execute(ctx, st)
}

// Execute runs the command and sets the response. The returned error is
// non-nil when nothing was delivered.
func (s *CommunicatorService) Execute(ctx context.Context, st *router.CommandState) error {
	log := named(s.Logger, "communicator")
	cmd := command(s.WakeWord, st.Input())
	log.Info("processing communication command", zap.String("command", cmd))

	if s.TeamID == "" || s.ChannelID == "" {
		st.Response = "Error: TEAM_ID or CHANNEL_ID not configured in environment."
		return ErrChannelNotConfigured
	}

	verb, rest := splitVerb(cmd)
	switch verb {
	case "tell", "send", "remind":
		return s.sendText(ctx, log, st, verb, rest)
	case "call":
		recipient := strings.TrimRight(strings.TrimSpace(rest), ".!?")
		if recipient == "" {
			recipient = s.DefaultRecipient
		}
		log.Info("simulating call", zap.String("recipient", recipient))
		s.logComm(ctx, log, repository.CommCall, recipient, "Call initiated")
		st.Response = fmt.Sprintf("Simulated call to %s (real calls TBD)", recipient)
		return nil
	case "say":
		content := strings.TrimSpace(rest)
		if s.Speaker != nil {
			if err := s.Speaker.Speak(ctx, content); err != nil {
				st.Response = fmt.Sprintf("Failed to speak in meeting: %v", err)
				return err
			}
		}
		s.logComm(ctx, log, repository.CommSpeech, "meeting", content)
		st.Response = fmt.Sprintf("Spoke in meeting: '%s'", content)
		return nil
	default:
		st.Response = "Unrecognized communication command."
		return ErrUnrecognizedCommand
	}
}

func (s *CommunicatorService) sendText(ctx context.Context, log *zap.Logger, st *router.CommandState, verb, rest string) error {
	if verb == "send" {
		for _, p := range []string{"a message", "message"} {
			if r, ok := cutPrefixFold(rest, p); ok {
				rest = r
				break
			}
		}
	}
	recipient, address, content := s.parseRecipient(rest)
	if content == "" {
		st.Response = "Please say what to send (e.g., 'tell the team we're starting')."
		return ErrUnrecognizedCommand
	}

	var err error
	if recipient == teamRecipient {
		err = s.Messenger.PostChannelMessage(ctx, s.TeamID, s.ChannelID, content)
	} else {
		var chatID string
		if chatID, err = s.Messenger.CreateOneOnOneChat(ctx, address); err == nil {
			err = s.Messenger.PostChatMessage(ctx, chatID, content)
		}
	}
	if err != nil {
		log.Error("send message", zap.String("recipient", recipient), zap.Error(err))
		st.Response = fmt.Sprintf("Failed to send message to %s: %v", recipient, err)
		return err
	}
	s.logComm(ctx, log, repository.CommText, recipient, content)
	st.Response = fmt.Sprintf("Sent message to %s: '%s'", recipient, content)
	return nil
}

// parseRecipient finds who a message is for. In order: a leading "the team",
// a leading contact name or address, a trailing "to <recipient>", and
// finally the team.
func (s *CommunicatorService) parseRecipient(rest string) (recipient, address, content string) {
	rest = strings.TrimSpace(rest)
	for _, p := range []string{"the team", "team"} {
		if r, ok := cutPrefixFold(rest, p); ok {
			return teamRecipient, "", trimContent(r)
		}
	}
	if first, r, ok := strings.Cut(rest, " "); ok {
		if addr, found := s.lookup(first); found {
			return first, addr, trimContent(r)
		}
	}
	padded := " " + rest
	if i := lastIndexFold(padded, " to "); i >= 0 {
		who := strings.TrimRight(strings.TrimSpace(padded[i+len(" to "):]), ".!?")
		content = strings.TrimSpace(padded[:i])
		if containsFold(who, teamRecipient) {
			return teamRecipient, "", content
		}
		if addr, found := s.lookup(who); found {
			return who, addr, content
		}
		return who, who, content
	}
	return teamRecipient, "", trimContent(rest)
}

func (s *CommunicatorService) lookup(name string) (string, bool) {
	name = strings.TrimRight(name, ",:")
	if strings.Contains(name, "@") {
		return name, true
	}
	if s.Contacts == nil {
		return "", false
	}
	return s.Contacts.Lookup(name)
}

func (s *CommunicatorService) logComm(ctx context.Context, log *zap.Logger, kind, recipient, content string) {
	if s.Communications == nil {
		return
	}
	err := s.Communications.Insert(ctx, repository.Communication{
		ID:        uuid.NewString(),
		Type:      kind,
		Recipient: recipient,
		Content:   content,
	})
	if err != nil {
		log.Warn("log communication", zap.Error(err))
		return
	}
	log.Info("logged communication", zap.String("type", kind), zap.String("recipient", recipient))
}

// splitVerb finds the first communication verb and returns it with the text
// after it.
func splitVerb(cmd string) (string, string) {
	fields := strings.Fields(cmd)
	for i, f := range fields {
		w := strings.ToLower(strings.Trim(f, ".,!?:"))
		if commVerbs[w] {
			return w, strings.Join(fields[i+1:], " ")
		}
	}
	return "", ""
}

func trimContent(s string) string {
	s = strings.TrimLeft(strings.TrimSpace(s), ",:")
	if r, ok := cutPrefixFold(strings.TrimSpace(s), "that"); ok {
		s = r
	}
	return strings.TrimSpace(s)
}
