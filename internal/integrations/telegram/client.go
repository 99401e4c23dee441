// Package telegram is the messaging platform client: replies, the inline
// menu, voice downloads and the webhook update format.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"jarvis-agent/internal/domain"
	"jarvis-agent/internal/integrations/paramstore"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	// maxMessageRunes is the Bot API limit for one sendMessage text.
	maxMessageRunes = 4096
	maxDownloadSize = 20 << 20
)

// APIError is a Bot API response with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s: %d %s", e.Method, e.Code, e.Description)
}

func (e *APIError) HTTPStatusCode() int {
	return e.Code
}

type Client struct {
	apiBase    string
	httpClient *http.Client
	token      *paramstore.Secret
	logger     *slog.Logger
}

type Option func(*Client)

func WithAPIBase(base string) Option {
	return func(c *Client) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.apiBase = base
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

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client whose bot token is read from
// <paramPrefix>/telegram-token when a call is made.
func NewClient(ps paramstore.Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("telegram: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("telegram: parameter prefix must not be empty")
	}
	token, err := paramstore.NewToken(ps, paramPrefix+"/telegram-token")
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	c := &Client{
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		token:      token,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "telegram")
	return c, nil
}

// SendText sends text to a chat, split into several messages when it exceeds
// the Bot API limit.
func (c *Client) SendText(ctx context.Context, conversationID, text string) error {
	for _, chunk := range splitMessage(text, maxMessageRunes) {
		if _, err := c.apiCall(ctx, "sendMessage", map[string]any{
			"chat_id": conversationID,
			"text":    chunk,
		}); err != nil {
			return err
		}
	}
	return nil
}

// SendMenu sends text with an inline keyboard, two buttons per row.
func (c *Client) SendMenu(ctx context.Context, conversationID, text string, options []domain.MenuOption) error {
	var rows [][]map[string]string
	for i, opt := range options {
		if i%2 == 0 {
			rows = append(rows, nil)
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], map[string]string{
			"text":          opt.Label,
			"callback_data": opt.Data,
		})
	}
	_, err := c.apiCall(ctx, "sendMessage", map[string]any{
		"chat_id":      conversationID,
		"text":         text,
		"reply_markup": map[string]any{"inline_keyboard": rows},
	})
	return err
}

// AnswerCallback stops the loading indicator on a pressed inline button.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	_, err := c.apiCall(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": callbackID})
	return err
}

type tgFile struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
	FileSize int    `json:"file_size"`
}

// DownloadFile resolves a file_id with getFile and downloads the content. The
// returned name is the base of the file path, e.g. "file_12.oga".
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	data, err := c.apiCall(ctx, "getFile", map[string]any{"file_id": fileID})
	if err != nil {
		return nil, "", err
	}
	var file tgFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, "", fmt.Errorf("telegram: parsing getFile: %w", err)
	}
	if file.FilePath == "" {
		return nil, "", errors.New("telegram: getFile returned no file_path")
	}

	token, err := c.token.Value(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("telegram: resolve token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/file/bot%s/%s", c.apiBase, token, file.FilePath), nil)
	if err != nil {
		return nil, "", fmt.Errorf("telegram: creating download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("telegram: download failed: %w", withoutURL(err))
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, "", &APIError{Method: "download", Code: resp.StatusCode, Description: resp.Status}
	}
	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, "", fmt.Errorf("telegram: reading file: %w", err)
	}
	return audio, path.Base(file.FilePath), nil
}

// apiCall makes a POST request to the Bot API and returns the result field.
func (c *Client) apiCall(ctx context.Context, method string, payload map[string]any) (json.RawMessage, error) {
	token, err := c.token.Value(ctx)
	if err != nil {
		return nil, fmt.Errorf("telegram: resolve token: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/bot"+token+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: creating request for %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, withoutURL(err))
	}
	defer func() { _ = resp.Body.Close() }()

	var result struct {
		OK          bool            `json:"ok"`
		ErrorCode   int             `json:"error_code"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("telegram: decoding %s response: %w", method, err)
	}
	if !result.OK {
		code := result.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		c.logger.Warn("bot api call failed", "method", method, "code", code, "description", result.Description)
		return nil, &APIError{Method: method, Code: code, Description: result.Description}
	}
	return result.Result, nil
}

// withoutURL drops the request URL from transport errors; it carries the bot
// token.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// splitMessage cuts text into chunks of at most limit runes, preferring line
// breaks.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
