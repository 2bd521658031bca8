package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DphenomenalALU/tresor-backend/internal/config"
	"github.com/DphenomenalALU/tresor-backend/internal/domain/user"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/storage"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/handlers/authhandler"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/handlers/chathandler"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/handlers/ragiehandler"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/httpclients"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/httpclients/completion"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/httpclients/ragie"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/sse"
)

type stubVerifier struct {
	identity *user.Identity
	err      error
}

func (s *stubVerifier) Verify(_ context.Context, _ string) (*user.Identity, error) {
	return s.identity, s.err
}

func newTestServer(t *testing.T, upstreamURL, ragieURL string, verifier *stubVerifier) *HTTPServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Port:         5000,
		AppURL:       "http://localhost:5000",
		DefaultModel: "llama-3.3-70b-versatile",
	}

	store := storage.NewMemoryStore()
	users := user.NewService(store)

	restyClient := httpclients.NewClient("test", 5*time.Second)
	completions := completion.NewClient(restyClient, "groq", upstreamURL, "groq-key")
	connector := ragie.NewClient(httpclients.NewClient("ragie", 5*time.Second), ragieURL, "ragie-key", cfg.AppURL)

	return NewHTTPServer(
		cfg,
		authhandler.NewAuthHandler(users, verifier),
		chathandler.NewChatHandler(completions, cfg.DefaultModel),
		ragiehandler.NewRagieHandler(connector),
	)
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, "http://unused", "http://unused", &stubVerifier{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
}

func TestChatRelayStreamsUpstreamTokens(t *testing.T) {
	var upstreamBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		TopP        float64 `json:"top_p"`
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&upstreamBody))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"4\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\".\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	server := newTestServer(t, upstream.URL, "http://unused", &stubVerifier{})

	body := `{"message":"What is 2+2?","context":[{"sender":"user","text":"hi"},{"sender":"ai","text":"hello"}],"model":""}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	// The upstream saw the fixed system prompt, the mapped history and
	// the sampling defaults.
	assert.Equal(t, "llama-3.3-70b-versatile", upstreamBody.Model)
	require.Len(t, upstreamBody.Messages, 4)
	assert.Equal(t, "system", upstreamBody.Messages[0].Role)
	assert.Equal(t, completion.SystemPrompt, upstreamBody.Messages[0].Content)
	assert.Equal(t, "user", upstreamBody.Messages[1].Role)
	assert.Equal(t, "assistant", upstreamBody.Messages[2].Role)
	assert.Equal(t, "What is 2+2?", upstreamBody.Messages[3].Content)
	assert.InDelta(t, 0.6, upstreamBody.Temperature, 1e-9)
	assert.Equal(t, 2048, upstreamBody.MaxTokens)
	assert.InDelta(t, 0.95, upstreamBody.TopP, 1e-9)

	decoder := sse.NewDecoder(rec.Body)
	var got []string
	for {
		event, err := decoder.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.False(t, event.IsError())
		got = append(got, event.Content)
	}
	assert.Equal(t, []string{"4", "."}, got)
}

func TestChatRelayEmitsErrorFrameOnUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	server := newTestServer(t, upstream.URL, "http://unused", &stubVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	// Status is already committed as 200; the failure is an in-stream frame.
	assert.Equal(t, http.StatusOK, rec.Code)

	decoder := sse.NewDecoder(rec.Body)
	event, err := decoder.Next()
	require.NoError(t, err)
	assert.True(t, event.IsError())
	assert.Contains(t, event.Error, "model overloaded")
}

func TestGoogleAuth(t *testing.T) {
	verifier := &stubVerifier{identity: &user.Identity{
		Subject: "google-sub-1",
		Name:    "Ada",
		Email:   "ada@example.com",
		Picture: "https://example.com/ada.png",
	}}
	server := newTestServer(t, "http://unused", "http://unused", verifier)

	req := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(`{"credential":"token"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User user.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "google-sub-1", resp.User.ID)
	assert.Equal(t, "Ada", resp.User.Name)
	assert.True(t, resp.User.IsGoogleUser)
	assert.Empty(t, resp.User.PasswordHash)
}

func TestGoogleAuthRejectsBadToken(t *testing.T) {
	server := newTestServer(t, "http://unused", "http://unused", &stubVerifier{err: errors.New("bad signature")})

	req := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(`{"credential":"forged"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Authentication failed"}`, rec.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	server := newTestServer(t, "http://unused", "http://unused", &stubVerifier{})

	register := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"name":"Ada","email":"ada@example.com","password":"hunter22"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec := register()
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same email again conflicts.
	rec = register()
	assert.Equal(t, http.StatusConflict, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"ada@example.com","password":"hunter22"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"ada@example.com","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRagieInitProxiesBodyVerbatim(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"url":"https://secure.ragie.ai/oauth/abc","connection_id":"c-1"}`)
	}))
	defer upstream.Close()

	server := newTestServer(t, "http://unused", upstream.URL, &stubVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/ragie/init", strings.NewReader(`{"userId":"user-42"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://secure.ragie.ai/oauth/abc","connection_id":"c-1"}`, rec.Body.String())
}

func TestRagieCallbackRedirects(t *testing.T) {
	server := newTestServer(t, "http://unused", "http://unused", &stubVerifier{})

	tests := []struct {
		name     string
		target   string
		location string
	}{
		{name: "success", target: "/ragie-callback?connection_id=c-1", location: "/chat.html?connection_success=true"},
		{name: "provider error", target: "/ragie-callback?error=denied", location: "/?error=connection_failed"},
		{name: "missing id", target: "/ragie-callback", location: "/?error=no_connection_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	server := newTestServer(t, "http://unused", "http://unused", &stubVerifier{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "fixed-id")
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-Id"))
}
