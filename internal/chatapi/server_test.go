package chatapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meetingbrain/assistant/internal/assistant"
	"github.com/meetingbrain/assistant/internal/cache"
	"github.com/meetingbrain/assistant/internal/config"
	"github.com/meetingbrain/assistant/internal/contracts"
	"github.com/meetingbrain/assistant/internal/decision"
	"github.com/meetingbrain/assistant/internal/llm"
	"github.com/meetingbrain/assistant/internal/models"
	"github.com/meetingbrain/assistant/internal/orchestrator"
	"github.com/meetingbrain/assistant/internal/store"
)

func newTestHandler(t *testing.T) *assistant.Handler {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	logStore := cache.NewInteractionLogStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	st := store.NewFakeStore()
	st.AddMeeting(&models.Meeting{ID: "m1", CompanyID: "c-acme", CompanyName: "Acme Corp"})
	cfg := config.Load()
	client := llm.NewStubClient(llm.Response{Text: `{"intent":"GENERAL_HELP","confidence":0.9}`})
	classifier := decision.New(client, cfg)
	orch := orchestrator.New(st, llm.NewStubClient(), nil, cfg)
	executor := contracts.New(st, orch, llm.NewStubClient(), nil, nil, cfg)

	return assistant.New(st, logStore, classifier, orch, executor, cfg)
}

func TestHandleHealthReturnsOK(t *testing.T) {
	s := NewServer(":0", newTestHandler(t))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
}

func TestHandleTurnRejectsMissingFields(t *testing.T) {
	s := NewServer(":0", newTestHandler(t))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turn", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTurnReturnsAnswer(t *testing.T) {
	s := NewServer(":0", newTestHandler(t))
	payload := `{"threadId":"t1","messageText":"hello there"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turn", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out outboundTurn
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, models.IntentGeneralHelp, out.Metadata.Intent)
}

func TestCorsMiddlewareHandlesPreflight(t *testing.T) {
	s := NewServer(":0", newTestHandler(t))
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/turn", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
