// Package graph is a small Microsoft Graph v1.0 client covering calendar
// events, channel messages and one-on-one chats.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/jask/teammate/internal/config"
)

const defaultScope = "https://graph.microsoft.com/.default"

// Error is a non-2xx Graph response.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("graph: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("graph: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Event is a calendar event to create.
type Event struct {
	Subject   string
	Start     time.Time
	End       time.Time
	Attendees []string
}

// Client talks to Graph with an app-only token.
type Client struct {
	baseURL string
	userID  string
	http    *http.Client
	logger  *zap.Logger
}

// New builds a client authenticated with OAuth2 client credentials against
// the tenant's token endpoint.
func New(ctx context.Context, cfg config.GraphConfig, logger *zap.Logger) *Client {
	authority := strings.TrimRight(cfg.Authority, "/")
	if authority == "" {
		authority = "https://login.microsoftonline.com"
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", authority, url.PathEscape(cfg.TenantID)),
		Scopes:       []string{defaultScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	hc := cc.Client(ctx)
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	return NewWithHTTPClient(cfg.BaseURL, cfg.UserID, hc, logger)
}

// NewWithHTTPClient uses hc as is; it must attach credentials itself.
func NewWithHTTPClient(baseURL, userID string, hc *http.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		http:    hc,
		logger:  logger.Named("graph"),
	}
}

// Me returns the display name of the configured user. App-only tokens cannot
// call /me, so the user is addressed by id.
func (c *Client) Me(ctx context.Context) (string, error) {
	var out struct {
		DisplayName string `json:"displayName"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(c.userID), nil, &out); err != nil {
		return "", err
	}
	return out.DisplayName, nil
}

type dateTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type emailAddress struct {
	Address string `json:"address"`
}

type attendee struct {
	EmailAddress emailAddress `json:"emailAddress"`
	Type         string       `json:"type"`
}

type eventBody struct {
	Subject   string       `json:"subject"`
	Start     dateTimeZone `json:"start"`
	End       dateTimeZone `json:"end"`
	Attendees []attendee   `json:"attendees"`
}

// CreateEvent creates an event in userID's calendar and returns its id.
func (c *Client) CreateEvent(ctx context.Context, userID string, e Event) (string, error) {
	if userID == "" {
		userID = c.userID
	}
	body := eventBody{
		Subject: e.Subject,
		Start:   dateTimeZone{DateTime: e.Start.UTC().Format("2006-01-02T15:04:05"), TimeZone: "UTC"},
		End:     dateTimeZone{DateTime: e.End.UTC().Format("2006-01-02T15:04:05"), TimeZone: "UTC"},
	}
	for _, a := range e.Attendees {
		body.Attendees = append(body.Attendees, attendee{EmailAddress: emailAddress{Address: a}, Type: "required"})
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/events", body, &out); err != nil {
		return "", err
	}
	c.logger.Info("created event", zap.String("event_id", out.ID), zap.String("subject", e.Subject))
	return out.ID, nil
}

type itemBody struct {
	ContentType string `json:"contentType,omitempty"`
	Content     string `json:"content"`
}

type chatMessage struct {
	Body itemBody `json:"body"`
}

// PostChannelMessage posts content to a team channel.
func (c *Client) PostChannelMessage(ctx context.Context, teamID, channelID, content string) error {
	path := fmt.Sprintf("/teams/%s/channels/%s/messages", url.PathEscape(teamID), url.PathEscape(channelID))
	return c.do(ctx, http.MethodPost, path, chatMessage{Body: itemBody{Content: content}}, nil)
}

type chatMember struct {
	ODataType string   `json:"@odata.type"`
	Roles     []string `json:"roles"`
	UserBind  string   `json:"user@odata.bind"`
}

type chatCreate struct {
	ChatType string       `json:"chatType"`
	Members  []chatMember `json:"members"`
}

// CreateOneOnOneChat opens (or reuses) a one-on-one chat between the
// configured user and userID and returns the chat id.
func (c *Client) CreateOneOnOneChat(ctx context.Context, userID string) (string, error) {
	member := func(id string) chatMember {
		return chatMember{
			ODataType: "#microsoft.graph.aadUserConversationMember",
			Roles:     []string{"owner"},
			UserBind:  fmt.Sprintf("%s/users('%s')", c.baseURL, id),
		}
	}
	body := chatCreate{ChatType: "oneOnOne", Members: []chatMember{member(c.userID), member(userID)}}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/chats", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// PostChatMessage posts content to a chat.
func (c *Client) PostChatMessage(ctx context.Context, chatID, content string) error {
	return c.do(ctx, http.MethodPost, "/chats/"+url.PathEscape(chatID)+"/messages", chatMessage{Body: itemBody{Content: content}}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("graph: encode %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("graph: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("graph: decode %s: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	e := &Error{Status: resp.StatusCode}
	if json.Unmarshal(raw, &payload) == nil && payload.Error.Code != "" {
		e.Code = payload.Error.Code
		e.Message = payload.Error.Message
	} else {
		e.Message = strings.TrimSpace(string(raw))
	}
	return e
}
