// Package handler adapts transports (API Gateway, EventBridge, local HTTP)
// to the use cases.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"jarvis-agent/internal/domain"
	"jarvis-agent/internal/integrations/telegram"
	"jarvis-agent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// Processor handles one inbound event.
type Processor interface {
	Process(ctx context.Context, ev domain.InboundEvent) (usecase.ProcessOutput, error)
}

// CallbackAnswerer acknowledges a button press so the client stops its
// loading indicator.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID string) error
}

type webhookResponse struct {
	Status         string `json:"status"`
	ConversationID string `json:"conversationId,omitempty"`
	Intent         string `json:"intent,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the messaging platform webhook.
type Handler struct {
	uc       Processor
	answerer CallbackAnswerer
	logger   *slog.Logger
}

type Option func(*Handler)

func WithCallbackAnswerer(a CallbackAnswerer) Option {
	return func(h *Handler) {
		h.answerer = a
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHandler(uc Processor, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: processor must not be nil")
	}
	h := &Handler{uc: uc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "webhook")
	return h, nil
}

// Handle always answers the platform with a JSON body. Updates the assistant
// does not act on (edits, stickers) and malformed ones are acknowledged with
// 200 so they are not redelivered.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := h.logger.With("correlation_id", correlationID)

	update, ok, err := telegram.ParseUpdate([]byte(req.Body))
	if err != nil {
		logger.Warn("rejected malformed update", "code", usecase.ErrorInvalidInput, "err", err)
		return jsonResponse(http.StatusOK, correlationID, webhookResponse{Status: "rejected"}), nil
	}
	if !ok {
		return jsonResponse(http.StatusOK, correlationID, webhookResponse{Status: "ignored"}), nil
	}

	if update.CallbackID != "" && h.answerer != nil {
		if err := h.answerer.AnswerCallback(ctx, update.CallbackID); err != nil {
			logger.Warn("answer callback failed", "err", err)
		}
	}

	out, err := h.uc.Process(ctx, update.Event)
	if err != nil {
		code := usecase.Classify(err)
		logger.Error("process failed", "conversation_id", update.Event.ConversationID, "code", code, "err", err)
		return jsonResponse(statusFor(code), correlationID, errorResponse{Error: string(code)}), nil
	}

	return jsonResponse(http.StatusOK, correlationID, webhookResponse{
		Status:         string(out.Status),
		ConversationID: out.ConversationID,
		Intent:         string(out.Intent),
	}), nil
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	case usecase.ErrorTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func jsonResponse(status int, correlationID string, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

// headerValue looks a header up case-insensitively; API Gateway preserves
// the client's casing.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
