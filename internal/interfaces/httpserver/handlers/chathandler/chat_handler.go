// Package chathandler relays chat completion requests to the upstream
// provider as a server-sent-event stream.
package chathandler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"

	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/logger"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/metrics"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/middlewares"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/httpclients/completion"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/sse"
)

const senderUser = "user"

type ChatHandler struct {
	completions  *completion.Client
	defaultModel string
}

func NewChatHandler(completions *completion.Client, defaultModel string) *ChatHandler {
	return &ChatHandler{completions: completions, defaultModel: defaultModel}
}

type contextMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type chatRequest struct {
	Message string           `json:"message"`
	Context []contextMessage `json:"context"`
	Model   string           `json:"model"`
}

// Completions streams one chat completion. The request carries the full
// conversation context; the handler holds no state between requests. The
// response is committed as 200 before the upstream call, so upstream
// failures surface as an error frame inside the stream.
func (h *ChatHandler) Completions(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		lg := logger.GetLogger()
		lg.Warn().Err(err).Msg("malformed chat request")
		req = chatRequest{}
	}

	model := req.Model
	if model == "" {
		model = h.defaultModel
	}

	history := make([]openai.ChatCompletionMessage, 0, len(req.Context)+1)
	for _, msg := range req.Context {
		role := openai.ChatMessageRoleAssistant
		if msg.Sender == senderUser {
			role = openai.ChatMessageRoleUser
		}
		history = append(history, openai.ChatCompletionMessage{Role: role, Content: msg.Text})
	}
	history = append(history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	middlewares.PrepareSSE(c)
	encoder := sse.NewEncoder(c.Writer)

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()
	start := time.Now()

	request := completion.BuildRequest(model, history)
	_, err := h.completions.StreamContent(c.Request.Context(), request, func(delta string) error {
		return encoder.WriteContent(delta)
	})
	if err != nil {
		lg := logger.GetLogger()
		lg.Error().Err(err).Str("model", model).Msg("completion stream failed")
		metrics.RecordCompletion(model, "failure", time.Since(start).Seconds())
		if writeErr := encoder.WriteError(err.Error()); writeErr != nil {
			lg := logger.GetLogger()
			lg.Error().Err(writeErr).Msg("unable to write error frame")
		}
		return
	}
	metrics.RecordCompletion(model, "success", time.Since(start).Seconds())
}
