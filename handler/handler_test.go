package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"jarvis-agent/internal/domain"
	"jarvis-agent/internal/usecase"
)

const textUpdate = `{"update_id":100,"message":{"message_id":1,"chat":{"id":42},"text":"listar tarefas"}}`

type stubUseCase struct {
	out   usecase.ProcessOutput
	err   error
	in    domain.InboundEvent
	calls int
}

func (s *stubUseCase) Process(_ context.Context, in domain.InboundEvent) (usecase.ProcessOutput, error) {
	s.calls++
	s.in = in
	return s.out, s.err
}

type stubAnswerer struct {
	ids []string
	err error
}

func (s *stubAnswerer) AnswerCallback(_ context.Context, id string) error {
	s.ids = append(s.ids, id)
	return s.err
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/telegram/webhook",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: usecase.ProcessOutput{ConversationID: "42", Status: usecase.StatusReplied, Intent: domain.IntentTaskList, Delivered: true}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(textUpdate))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, domain.InboundEvent{ConversationID: "42", EventID: "100", Text: "listar tarefas"}, uc.in)

	out := parseBody[webhookResponse](t, resp.Body)
	require.Equal(t, "replied", out.Status)
	require.Equal(t, "42", out.ConversationID)
	require.Equal(t, string(domain.IntentTaskList), out.Intent)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_MalformedUpdateAcknowledged(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	for _, body := range []string{`not-json`, `{"message":{"chat":{"id":1},"text":"oi"}}`} {
		resp, err := h.Handle(context.Background(), makeEvent(body))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		require.Equal(t, "rejected", parseBody[webhookResponse](t, resp.Body).Status)
		require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
	}
	require.Zero(t, uc.calls)
}

func TestHandle_IgnoredUpdate(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"update_id":5,"edited_message":{"message_id":8,"chat":{"id":42},"text":"x"}}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ignored", parseBody[webhookResponse](t, resp.Body).Status)
	require.Zero(t, uc.calls)
}

func TestHandle_AnswersCallback(t *testing.T) {
	uc := &stubUseCase{out: usecase.ProcessOutput{ConversationID: "42", Status: usecase.StatusReplied}}
	answerer := &stubAnswerer{err: errors.New("query is too old")}
	h, err := NewHandler(uc, WithCallbackAnswerer(answerer))
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"update_id":3,"callback_query":{"id":"cb-1","data":"menu_tasks","message":{"message_id":7,"chat":{"id":42}}}}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"cb-1"}, answerer.ids)
	require.Equal(t, "menu_tasks", uc.in.CallbackData)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "empty_event"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "rate limited", err: &usecase.Error{Code: usecase.ErrorRateLimited, Reason: "llm_rate_limited"}, status: http.StatusTooManyRequests, code: string(usecase.ErrorRateLimited)},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "telegram_error"}, status: http.StatusBadGateway, code: string(usecase.ErrorUpstream)},
		{name: "timeout", err: context.DeadlineExceeded, status: http.StatusGatewayTimeout, code: string(usecase.ErrorTimeout)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "dynamodb_write_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &stubUseCase{err: tc.err}
			h, err := NewHandler(uc)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent(textUpdate))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	uc := &stubUseCase{out: usecase.ProcessOutput{ConversationID: "42", Status: usecase.StatusDuplicate}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeEvent(textUpdate)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}
