// Package gemini is the alternative classifier collaborator backed by the
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"google.golang.org/genai"

	"jarvis-agent/internal/integrations/paramstore"
	"jarvis-agent/internal/llm"
)

const (
	defaultModel     = "gemini-2.0-flash"
	transcribePrompt = "Transcreva este áudio em português do Brasil. Responda apenas com a transcrição, sem comentários."
)

type Client struct {
	model      string
	baseURL    string
	httpClient *http.Client
	token      *paramstore.Secret
}

var _ llm.Provider = (*Client)(nil)

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at another endpoint; used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates a Client whose API key is read from
// <paramPrefix>/gemini-token when a call is made.
func NewClient(ps paramstore.Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("gemini: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("gemini: parameter prefix must not be empty")
	}
	token, err := paramstore.NewToken(ps, paramPrefix+"/gemini-token")
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) api(ctx context.Context) (*genai.Client, error) {
	key, err := c.token.Value(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini: resolve api key: %w", err)
	}
	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}

// Generate asks for JSON output when the request carries a schema. Gemini
// does not take the strict schema itself; the caller validates the result.
func (c *Client) Generate(ctx context.Context, r llm.Request) (string, error) {
	api, err := c.api(ctx)
	if err != nil {
		return "", err
	}
	cfg := &genai.GenerateContentConfig{}
	if r.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(r.System, genai.RoleUser)
	}
	if len(r.Schema) > 0 {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := api.Models.GenerateContent(ctx, c.model, []*genai.Content{
		genai.NewContentFromText(r.Prompt, genai.RoleUser),
	}, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

// Transcribe sends the audio inline and asks for a verbatim transcript.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("gemini: audio is empty")
	}
	api, err := c.api(ctx)
	if err != nil {
		return "", err
	}
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(transcribePrompt),
		genai.NewPartFromBytes(audio, audioMIMEType(filename)),
	}, genai.RoleUser)

	resp, err := api.Models.GenerateContent(ctx, c.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini: transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func audioMIMEType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	default:
		// Telegram voice notes are Opus in an Ogg container.
		return "audio/ogg"
	}
}
