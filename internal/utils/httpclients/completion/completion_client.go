// Package completion talks to an OpenAI-compatible chat completion API
// (Groq in production) and exposes its streamed output as plain content
// fragments.
package completion

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/logger"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/apperrors"
)

const (
	channelBufferSize    = 100
	errorBufferSize      = 10
	dataPrefix           = "data: "
	doneMarker           = "[DONE]"
	scannerInitialBuffer = 12 * 1024
	scannerMaxBuffer     = 10 * 1024 * 1024
)

// Defaults applied to every relayed completion request.
const (
	SystemPrompt = "You are Tresor AI. Respond directly and naturally in plain text. Keep responses short and to the point. No thinking out loud, no markdown, no self-references."

	DefaultTemperature = 0.6
	DefaultMaxTokens   = 2048
	DefaultTopP        = 0.95
)

type StreamOption func(*resty.Request)

func WithHeader(key, value string) StreamOption {
	return func(r *resty.Request) {
		if strings.TrimSpace(key) == "" {
			return
		}
		r.SetHeader(key, value)
	}
}

// Client streams chat completions from one upstream provider.
type Client struct {
	client  *resty.Client
	name    string
	baseURL string
	apiKey  string
}

func NewClient(client *resty.Client, name, baseURL, apiKey string) *Client {
	return &Client{
		client:  client,
		name:    name,
		baseURL: normalizeBaseURL(baseURL),
		apiKey:  apiKey,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// BuildRequest assembles the upstream request: the fixed system prompt,
// the conversation history, and the sampling defaults.
func BuildRequest(model string, history []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt,
	})
	messages = append(messages, history...)

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Stream:      true,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		TopP:        DefaultTopP,
	}
}

// CreateChatCompletion performs a blocking, non-streamed completion.
func (c *Client) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	request.Stream = false

	var respBody openai.ChatCompletionResponse
	resp, err := c.prepareRequest(ctx).
		SetBody(request).
		SetResult(&respBody).
		Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeExternal, "completion request", err)
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(resp, "completion request failed")
	}
	return &respBody, nil
}

// StreamContent runs a streamed completion and invokes onContent for every
// non-empty content delta, in arrival order. It returns the accumulated
// full content. A non-nil error from onContent aborts the stream.
func (c *Client) StreamContent(ctx context.Context, request openai.ChatCompletionRequest, onContent func(string) error, opts ...StreamOption) (string, error) {
	request.Stream = true

	ctx, cancel := context.WithCancel(ctx)

	dataChan := make(chan string, channelBufferSize)
	errChan := make(chan error, errorBufferSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go c.streamResponseToChannel(ctx, request, dataChan, errChan, &wg, opts)
	defer func() {
		cancel()
		wg.Wait()
	}()

	var content strings.Builder
	for {
		select {
		case line, ok := <-dataChan:
			if !ok {
				// The pump may have parked a terminal error before closing.
				select {
				case err := <-errChan:
					if err != nil {
						return content.String(), err
					}
				default:
				}
				return content.String(), nil
			}

			data, found := strings.CutPrefix(line, dataPrefix)
			if !found {
				continue
			}
			if data == doneMarker {
				cancel()
				return content.String(), nil
			}

			delta := c.parseContentDelta(data)
			if delta == "" {
				continue
			}
			content.WriteString(delta)
			if onContent != nil {
				if err := onContent(delta); err != nil {
					cancel()
					return content.String(), err
				}
			}

		case err, ok := <-errChan:
			if ok && err != nil {
				cancel()
				return content.String(), err
			}

		case <-ctx.Done():
			return content.String(), apperrors.Wrap(apperrors.TypeExternal, "completion stream cancelled", ctx.Err())
		}
	}
}

func (c *Client) prepareRequest(ctx context.Context) *resty.Request {
	req := c.client.R().SetContext(ctx)
	req.SetHeader("Content-Type", "application/json")
	if strings.TrimSpace(c.apiKey) != "" {
		req.SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	return req
}

func (c *Client) endpoint(path string) string {
	if c.baseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + path
}

func (c *Client) doStreamingRequest(ctx context.Context, request openai.ChatCompletionRequest, opts []StreamOption) (*resty.Response, error) {
	req := c.prepareRequest(ctx).
		SetBody(request).
		SetDoNotParseResponse(true)

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(req)
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.SetHeader("Accept-Encoding", "identity")
	}

	resp, err := req.Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeExternal, "streaming request", err)
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(resp, "streaming request failed")
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, apperrors.New(apperrors.TypeExternal, "streaming request failed: empty response body")
	}
	return resp, nil
}

func (c *Client) streamResponseToChannel(ctx context.Context, request openai.ChatCompletionRequest, dataChan chan<- string, errChan chan<- error, wg *sync.WaitGroup, opts []StreamOption) {
	defer wg.Done()
	defer close(dataChan)

	resp, err := c.doStreamingRequest(ctx, request, opts)
	if err != nil {
		c.sendAsyncError(errChan, err)
		return
	}
	defer func() {
		if closeErr := resp.RawResponse.Body.Close(); closeErr != nil {
			lg := logger.GetLogger()
			lg.Error().Err(closeErr).Str("client", c.name).Msg("unable to close response body")
		}
	}()

	scanner := bufio.NewScanner(resp.RawResponse.Body)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)

	for scanner.Scan() {
		select {
		case dataChan <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.sendAsyncError(errChan, err)
	}
}

func (c *Client) parseContentDelta(data string) string {
	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		lg := logger.GetLogger()
		lg.Error().Err(err).Str("client", c.name).Str("data", data).Msg("failed to parse stream chunk JSON")
		return ""
	}

	var delta strings.Builder
	for _, choice := range chunk.Choices {
		delta.WriteString(choice.Delta.Content)
	}
	return delta.String()
}

func (c *Client) errorFromResponse(resp *resty.Response, message string) error {
	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return apperrors.New(apperrors.TypeExternal, message)
	}
	defer resp.RawResponse.Body.Close()
	body, err := io.ReadAll(resp.RawResponse.Body)
	if err != nil {
		return apperrors.New(apperrors.TypeExternal, message)
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return apperrors.New(apperrors.TypeExternal, message)
	}
	return apperrors.New(apperrors.TypeExternal, fmt.Sprintf("%s: %s", message, trimmed))
}

func (c *Client) sendAsyncError(errChan chan<- error, err error) {
	if err == nil {
		return
	}
	select {
	case errChan <- err:
	default:
	}
}

func normalizeBaseURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}
