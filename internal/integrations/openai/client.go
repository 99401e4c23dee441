// Package openai is the classifier collaborator backed by the OpenAI API:
// structured chat completions and Whisper transcription.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"jarvis-agent/internal/integrations/paramstore"
	"jarvis-agent/internal/llm"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
)

type Getter = paramstore.Getter

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	Op         string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.Op, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client implements llm.Provider on top of go-openai.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	token      *paramstore.Secret
}

var _ llm.Provider = (*Client)(nil)

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

// NewClient creates a Client whose API key is read from
// <paramPrefix>/open-ai-token when a call is made.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("openai: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("openai: parameter prefix must not be empty")
	}
	token, err := paramstore.NewToken(ps, paramPrefix+"/open-ai-token")
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) api(ctx context.Context) (*goopenai.Client, error) {
	key, err := c.token.Value(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai: resolve api key: %w", err)
	}
	cfg := goopenai.DefaultConfig(key)
	cfg.BaseURL = strings.TrimRight(c.baseURL, "/")
	cfg.HTTPClient = c.httpClient
	return goopenai.NewClientWithConfig(cfg), nil
}

// Generate runs one chat completion. A request with a schema is sent in
// strict JSON-schema mode.
func (c *Client) Generate(ctx context.Context, r llm.Request) (string, error) {
	api, err := c.api(ctx)
	if err != nil {
		return "", err
	}

	var messages []goopenai.ChatCompletionMessage
	if r.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: r.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: r.Prompt})

	req := goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if len(r.Schema) > 0 {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   r.SchemaName,
				Strict: true,
				Schema: r.Schema,
			},
		}
	}

	resp, err := api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrapError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe sends a voice note to Whisper. filename carries the container
// format (.oga, .mp3) the API uses to decode the audio.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("openai: audio is empty")
	}
	if filename == "" {
		filename = "voice.ogg"
	}
	api, err := c.api(ctx)
	if err != nil {
		return "", err
	}
	resp, err := api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    goopenai.Whisper1,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: "pt",
	})
	if err != nil {
		return "", wrapError("transcription", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// wrapError turns go-openai's status-carrying errors into HTTPStatusError so
// callers can tell rate limiting from other upstream failures.
func wrapError(op string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: apiErr.HTTPStatusCode, Op: op, Body: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: reqErr.HTTPStatusCode, Op: op, Body: reqErr.Error()}
	}
	return fmt.Errorf("openai: %s: %w", op, err)
}
