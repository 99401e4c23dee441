package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"jarvis-agent/internal/digest"
	"jarvis-agent/internal/usecase"
)

func newTestServer(t *testing.T, uc *stubUseCase, r *stubRunner) http.Handler {
	t.Helper()
	wh, err := NewHandler(uc)
	require.NoError(t, err)
	dh, err := NewDigestHandler(r, nil)
	require.NoError(t, err)
	return NewServer(wh, dh)
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(t, &stubUseCase{}, &stubRunner{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Webhook(t *testing.T) {
	uc := &stubUseCase{out: usecase.ProcessOutput{ConversationID: "42", Status: usecase.StatusReplied}}
	srv := newTestServer(t, uc, &stubRunner{})

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(textUpdate))
	req.Header.Set("X-Correlation-Id", "corr-9")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "corr-9", rec.Header().Get("X-Correlation-Id"))
	require.Equal(t, "listar tarefas", uc.in.Text)
	require.JSONEq(t, `{"status":"replied","conversationId":"42"}`, rec.Body.String())
}

func TestServer_Digest(t *testing.T) {
	r := &stubRunner{report: digest.Report{Total: 1, Sent: 1}}
	srv := newTestServer(t, &stubUseCase{}, r)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cron/digest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"total":1,"sent":1,"failed":0}`, rec.Body.String())

	r.err = errors.New("scan failed")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cron/digest", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
