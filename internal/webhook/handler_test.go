package webhook_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hospital-chat/internal/config"
	"hospital-chat/internal/dedup"
	"hospital-chat/internal/models"
	"hospital-chat/internal/store"
	"hospital-chat/internal/store/storetest"
	"hospital-chat/internal/webhook"
	"hospital-chat/pkg/logging"
	wa "hospital-chat/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEngine struct {
	mu   sync.Mutex
	msgs []wa.IncomingMessage
}

func (e *recordingEngine) HandleMessage(_ context.Context, msg wa.IncomingMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
	return nil
}

func (e *recordingEngine) received() []wa.IncomingMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]wa.IncomingMessage(nil), e.msgs...)
}

type setup struct {
	router  *gin.Engine
	handler *webhook.Handler
	engine  *recordingEngine
	store   *store.Store
}

func newSetup(t *testing.T, secret string) *setup {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := storetest.New(t)
	eng := &recordingEngine{}
	cfg := &config.Config{VerifyToken: "verify-me", AppSecret: secret}
	h := webhook.NewHandler(cfg, eng, s, dedup.NewMemory(time.Hour), logging.Nop())

	r := gin.New()
	h.RegisterRoutes(r, r.Group("/api"))
	return &setup{router: r, handler: h, engine: eng, store: s}
}

const textPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{"id": "1", "changes": [{"field": "messages", "value": {
    "messaging_product": "whatsapp",
    "messages": [{"from": "919800000001", "id": "wamid.A", "timestamp": "1700000000", "type": "text", "text": {"body": "Hi"}}]
  }}]}]
}`

func post(r http.Handler, path string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVerifyWebhook(t *testing.T) {
	s := newSetup(t, "")

	cases := []struct {
		query string
		code  int
		body  string
	}{
		{"hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", http.StatusOK, "42"},
		{"hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", http.StatusForbidden, ""},
		{"hub.challenge=42", http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?"+tc.query, nil))
		assert.Equal(t, tc.code, w.Code, tc.query)
		if tc.body != "" {
			assert.Equal(t, tc.body, w.Body.String())
		}
	}
}

func TestWebhookStoresAndProcessesMessage(t *testing.T) {
	s := newSetup(t, "")

	w := post(s.router, "/webhook", []byte(textPayload), nil)
	require.Equal(t, http.StatusOK, w.Code)
	s.handler.Wait()

	got := s.engine.received()
	require.Len(t, got, 1)
	assert.Equal(t, "919800000001", got[0].From)

	msgs, err := s.store.ListMessages(context.Background(), store.MessageQuery{UserPhone: "919800000001"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.DirectionInbound, msgs[0].Direction)
	assert.Equal(t, models.MessageReceived, msgs[0].Status)
	assert.Equal(t, "Hi", msgs[0].Content)
}

func TestWebhookDropsRetriedDelivery(t *testing.T) {
	s := newSetup(t, "")

	post(s.router, "/webhook", []byte(textPayload), nil)
	post(s.router, "/webhook", []byte(textPayload), nil)
	s.handler.Wait()

	assert.Len(t, s.engine.received(), 1)
}

func TestWebhookSignature(t *testing.T) {
	s := newSetup(t, "app-secret")
	body := []byte(textPayload)

	w := post(s.router, "/webhook", body, map[string]string{webhook.SignatureHeader: "sha256=deadbeef"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(s.router, "/webhook", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(s.router, "/webhook", body, map[string]string{webhook.SignatureHeader: webhook.Sign("app-secret", body)})
	assert.Equal(t, http.StatusOK, w.Code)
	s.handler.Wait()
	assert.Len(t, s.engine.received(), 1)
}

func TestWebhookIgnoresOtherObjects(t *testing.T) {
	s := newSetup(t, "")
	w := post(s.router, "/webhook", []byte(`{"object":"page","entry":[]}`), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	s.handler.Wait()
	assert.Empty(t, s.engine.received())
}

func TestWebhookAppliesDeliveryStatus(t *testing.T) {
	s := newSetup(t, "")
	ctx := context.Background()
	out := &models.Message{Direction: models.DirectionOutbound, UserPhone: "919800000002", Status: models.MessageSent, WaMessageID: "wamid.OUT"}
	require.NoError(t, s.store.CreateMessage(ctx, out))

	payload := `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{
	  "statuses":[{"id":"wamid.OUT","status":"read","recipient_id":"919800000002"}]}}]}]}`
	w := post(s.router, "/webhook", []byte(payload), nil)
	require.Equal(t, http.StatusOK, w.Code)

	msgs, err := s.store.ListMessages(ctx, store.MessageQuery{UserPhone: "919800000002"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "read", msgs[0].Status)
}

func TestSimulateRunsSynchronously(t *testing.T) {
	s := newSetup(t, "")

	w := post(s.router, "/api/webhook/simulate", []byte(`{"phone":"919800000003","text":"hello"}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := s.engine.received()
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Text.Body)

	w = post(s.router, "/api/webhook/simulate-interactive", []byte(`{"phone":"919800000003","interactive":{"type":"button_reply","button_reply":{"id":"btn_confirm_pay","title":"Confirm"}}}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got = s.engine.received()
	require.Len(t, got, 2)
	assert.Equal(t, "btn_confirm_pay", got[1].Interactive.ButtonReply.ID)

	w = post(s.router, "/api/webhook/simulate", []byte(`{"phone":"919800000003"}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"a":1}`)
	assert.True(t, webhook.ValidSignature("k", body, webhook.Sign("k", body)))
	assert.False(t, webhook.ValidSignature("other", body, webhook.Sign("k", body)))
	assert.False(t, webhook.ValidSignature("k", body, "md5=abc"))
	assert.False(t, webhook.ValidSignature("k", body, "sha256=zz"))
}
