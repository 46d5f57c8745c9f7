package graph

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Offline stands in for Client when no app credentials are configured. It
// logs every call, returns generated ids and keeps what was posted.
type Offline struct {
	logger *zap.Logger

	mu       sync.Mutex
	posted   []Posted
	events   []Event
	userName string
}

// Posted is a message captured by Offline.
type Posted struct {
	Target  string
	Content string
}

func NewOffline(logger *zap.Logger) *Offline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Offline{logger: logger.Named("graph.offline"), userName: "Offline User"}
}

func (o *Offline) Me(context.Context) (string, error) { return o.userName, nil }

func (o *Offline) CreateEvent(_ context.Context, userID string, e Event) (string, error) {
	o.mu.Lock()
	o.events = append(o.events, e)
	o.mu.Unlock()
	id := uuid.NewString()
	o.logger.Info("simulated event", zap.String("user", userID), zap.String("subject", e.Subject), zap.Time("start", e.Start), zap.String("event_id", id))
	return id, nil
}

func (o *Offline) PostChannelMessage(_ context.Context, teamID, channelID, content string) error {
	o.record("channel:"+teamID+"/"+channelID, content)
	return nil
}

func (o *Offline) CreateOneOnOneChat(_ context.Context, userID string) (string, error) {
	id := "chat-" + uuid.NewString()
	o.logger.Info("simulated chat", zap.String("user", userID), zap.String("chat_id", id))
	return id, nil
}

func (o *Offline) PostChatMessage(_ context.Context, chatID, content string) error {
	o.record("chat:"+chatID, content)
	return nil
}

// Posted returns a copy of every message posted so far.
func (o *Offline) Posted() []Posted {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Posted(nil), o.posted...)
}

// Events returns a copy of every event created so far.
func (o *Offline) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.events...)
}

func (o *Offline) record(target, content string) {
	o.mu.Lock()
	o.posted = append(o.posted, Posted{Target: target, Content: content})
	o.mu.Unlock()
	o.logger.Info("simulated post", zap.String("target", target), zap.String("content", content))
}
