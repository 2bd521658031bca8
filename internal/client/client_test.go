package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DphenomenalALU/tresor-backend/internal/domain/chat"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/storage"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/httpclients"
)

func newStartedSession(t *testing.T) *chat.Session {
	t.Helper()
	store := storage.NewMemoryStore()
	session := chat.NewSession(chat.NewManager(store), store, "u1", "llama-3.3-70b-versatile")
	require.NoError(t, session.Start(context.Background()))
	return session
}

func newRelayServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, func(*chat.Session) *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	build := func(session *chat.Session) *Client {
		return NewClient(session, httpclients.NewClient("test", 5*time.Second), server.URL)
	}
	return server, build
}

func TestSendMessageStreamsReply(t *testing.T) {
	var got chatRequest
	server, build := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":\"4\"}\n\n")
		fmt.Fprint(w, "data: {\"content\":\".\"}\n\n")
	})
	defer server.Close()

	session := newStartedSession(t)
	relay := build(session)

	reply, err := relay.SendMessage(context.Background(), "What is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, "4.", reply.Content)
	assert.True(t, reply.IsAssistant)

	// Request carried the model and the full history, the new message
	// included, in chronological order.
	assert.Equal(t, "What is 2+2?", got.Message)
	assert.Equal(t, "llama-3.3-70b-versatile", got.Model)
	require.Len(t, got.Context, 2)
	assert.Equal(t, "assistant", got.Context[0].Sender)
	assert.Equal(t, chat.Greeting, got.Context[0].Text)
	assert.Equal(t, "user", got.Context[1].Sender)
	assert.Equal(t, "What is 2+2?", got.Context[1].Text)

	// Greeting, user message, streamed reply.
	require.Len(t, session.Messages, 3)
	assert.Equal(t, "4.", session.Messages[2].Content)
	assert.False(t, relay.Sending())
}

func TestSendMessageErrorFrameFallsBack(t *testing.T) {
	server, build := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":\"par\"}\n\n")
		fmt.Fprint(w, "data: {\"error\":\"model overloaded\"}\n\n")
	})
	defer server.Close()

	session := newStartedSession(t)
	relay := build(session)

	reply, err := relay.SendMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, chat.FallbackReply, reply.Content)

	// The partial placeholder is gone; only greeting, user message and
	// the fallback remain.
	require.Len(t, session.Messages, 3)
	assert.Equal(t, chat.FallbackReply, session.Messages[2].Content)
	assert.False(t, relay.Sending())
}

func TestSendMessageTransportFailureFallsBack(t *testing.T) {
	server, build := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer server.Close()

	session := newStartedSession(t)
	relay := build(session)

	reply, err := relay.SendMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, chat.FallbackReply, reply.Content)
	assert.False(t, relay.Sending())
}

func TestSendMessageRejectsEmpty(t *testing.T) {
	session := newStartedSession(t)
	relay := NewClient(session, httpclients.NewClient("test", time.Second), "http://unused")

	_, err := relay.SendMessage(context.Background(), "   ")
	assert.Error(t, err)
}

func TestSendMessageSingleFlight(t *testing.T) {
	session := newStartedSession(t)
	relay := NewClient(session, httpclients.NewClient("test", time.Second), "http://unused")

	relay.sending.Store(true)
	_, err := relay.SendMessage(context.Background(), "hello")
	require.Error(t, err)

	relay.sending.Store(false)
}
