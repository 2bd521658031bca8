// Package client drives a chat session against the backend relay: it
// posts the user's message and feeds the streamed reply back into the
// session's placeholder assistant message.
package client

import (
	"context"
	"io"
	"strings"
	"sync/atomic"

	"resty.dev/v3"

	"github.com/DphenomenalALU/tresor-backend/internal/domain/chat"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/logger"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/apperrors"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/sse"
)

const (
	senderUser      = "user"
	senderAssistant = "assistant"
)

type contextMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type chatRequest struct {
	Message string           `json:"message"`
	Context []contextMessage `json:"context"`
	Model   string           `json:"model"`
}

// Client sends messages through the relay. One send may be in flight at
// a time; a second SendMessage while one runs is rejected.
type Client struct {
	session    *chat.Session
	http       *resty.Client
	baseURL    string
	sending    atomic.Bool
	onFragment func(string)
}

func NewClient(session *chat.Session, httpClient *resty.Client, baseURL string) *Client {
	return &Client{
		session: session,
		http:    httpClient,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// Session exposes the underlying session state for rendering.
func (c *Client) Session() *chat.Session { return c.session }

// OnFragment registers a callback invoked for every streamed fragment,
// for incremental rendering. Call before SendMessage.
func (c *Client) OnFragment(fn func(string)) { c.onFragment = fn }

// Sending reports whether a send is currently in flight.
func (c *Client) Sending() bool { return c.sending.Load() }

// SendMessage appends the user's message, relays it with the full
// conversation context, and streams the reply into a placeholder
// assistant message. On any terminal stream failure the placeholder is
// replaced by the fixed fallback reply; there is no retry.
func (c *Client) SendMessage(ctx context.Context, content string) (chat.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return chat.Message{}, apperrors.New(apperrors.TypeValidation, "message is empty")
	}
	if !c.sending.CompareAndSwap(false, true) {
		return chat.Message{}, apperrors.New(apperrors.TypeConflict, "a send is already in progress")
	}
	defer c.sending.Store(false)

	if _, err := c.session.AppendMessage(ctx, content, false); err != nil {
		return chat.Message{}, err
	}

	body := chatRequest{
		Message: content,
		Context: c.buildContext(),
		Model:   c.session.Model,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetDoNotParseResponse(true).
		Post(c.baseURL + "/api/chat")
	if err != nil {
		lg := logger.GetLogger()
		lg.Warn().Err(err).Msg("chat relay request failed")
		return c.session.AbortStream(ctx)
	}
	if resp.IsError() {
		lg := logger.GetLogger()
		lg.Warn().Int("status", resp.StatusCode()).Msg("chat relay request rejected")
		closeBody(resp)
		return c.session.AbortStream(ctx)
	}

	c.session.BeginStream()
	defer closeBody(resp)

	decoder := sse.NewDecoder(resp.RawResponse.Body)
	for {
		event, err := decoder.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			lg := logger.GetLogger()
			lg.Warn().Err(err).Msg("chat stream broken")
			return c.session.AbortStream(ctx)
		}
		if event.IsError() {
			lg := logger.GetLogger()
			lg.Warn().Str("error", event.Error).Msg("chat stream error frame")
			return c.session.AbortStream(ctx)
		}
		c.session.AppendStreamContent(event.Content)
		if c.onFragment != nil {
			c.onFragment(event.Content)
		}
	}

	return c.session.CompleteStream(ctx)
}

// buildContext snapshots the active thread chronologically, including the
// message being sent; the relay appends the message itself again last.
func (c *Client) buildContext() []contextMessage {
	history := make([]contextMessage, 0, len(c.session.Messages))
	for _, msg := range c.session.Messages {
		sender := senderUser
		if msg.IsAssistant {
			sender = senderAssistant
		}
		history = append(history, contextMessage{Sender: sender, Text: msg.Content})
	}
	return history
}

func closeBody(resp *resty.Response) {
	if resp.RawResponse != nil && resp.RawResponse.Body != nil {
		_ = resp.RawResponse.Body.Close()
	}
}
