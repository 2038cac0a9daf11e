package whatsapp_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hospital-chat/internal/catalog"
	"hospital-chat/internal/config"
	"hospital-chat/internal/models"
	"hospital-chat/internal/store"
	"hospital-chat/internal/store/storetest"
	"hospital-chat/internal/whatsapp"
	"hospital-chat/internal/whatsapp/whatsapptest"
	"hospital-chat/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendRawMessage(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.abc"}]}`))
	}))
	defer srv.Close()

	c := whatsapp.NewClient(&config.Config{WhatsAppToken: "tok", PhoneNumberID: "123", APIVersion: "v19.0"})
	c.BaseURL = srv.URL

	res, err := c.SendRawMessage(context.Background(), whatsapp.TextMessage("919800000000", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "wamid.abc", res.MessageID)
	assert.Equal(t, "/v19.0/123/messages", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "text", gotBody["type"])
}

func TestClientErrors(t *testing.T) {
	c := whatsapp.NewClient(&config.Config{APIVersion: "v19.0"})
	_, err := c.SendRawMessage(context.Background(), whatsapp.TextMessage("91", "x"))
	assert.ErrorIs(t, err, whatsapp.ErrMissingCredentials)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad token"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	c = whatsapp.NewClient(&config.Config{WhatsAppToken: "tok", PhoneNumberID: "123", APIVersion: "v19.0"})
	c.BaseURL = srv.URL
	_, err = c.SendRawMessage(context.Background(), whatsapp.TextMessage("91", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad token")
}

func TestRenderButtonMenuTruncatesToThree(t *testing.T) {
	c := catalog.NewSeeded(time.Hour)
	welcome, _ := c.Template(catalog.Welcome)

	msg, err := whatsapp.Render(welcome, "919800000000")
	require.NoError(t, err)
	require.NotNil(t, msg.Interactive)
	assert.Equal(t, "button", msg.Interactive.Type)
	assert.Len(t, msg.Interactive.Action.Buttons, whatsapp.MaxReplyButtons)
	assert.Equal(t, "Welcome to Hospital Services! 🏥", msg.Interactive.Header.Text)
}

func TestRenderListMenu(t *testing.T) {
	c := catalog.NewSeeded(time.Hour)
	labs, _ := c.Template(catalog.LabTests)

	msg, err := whatsapp.Render(labs, "919800000000")
	require.NoError(t, err)
	assert.Equal(t, "list", msg.Interactive.Type)
	assert.Equal(t, "Select Test", msg.Interactive.Action.Button)
	require.Len(t, msg.Interactive.Action.Sections, 2)
	assert.Equal(t, "test_blood_sugar", msg.Interactive.Action.Sections[0].Rows[0].ID)
}

func TestRenderUnsupportedKind(t *testing.T) {
	_, err := whatsapp.Render(&catalog.Template{ID: "x", Kind: "carousel", Body: "b"}, "91")
	assert.EqualError(t, err, "unsupported template kind: carousel")
}

func TestFlowMessage(t *testing.T) {
	msg := whatsapp.FlowMessage("919800000000", whatsapp.FlowLaunch{FlowID: "737535792667128", Token: "flow_token_1_abc"}, time.Now())
	params := msg.Interactive.Action.Parameters
	require.NotNil(t, params)
	assert.Equal(t, "flow", msg.Interactive.Type)
	assert.Equal(t, "3", params.FlowMessageVersion)
	assert.Equal(t, "Open Form", params.FlowCTA)
	assert.Equal(t, "navigate", params.FlowAction)
	assert.Equal(t, "RECOMMEND", params.FlowActionPayload.Screen)
	assert.Equal(t, "flow_token_1_abc", params.FlowToken)
}

type recordingNotifier struct{ got []models.Message }

func (r *recordingNotifier) NotifyMessage(m models.Message) { r.got = append(r.got, m) }

func TestDispatcherPersistsSentAndFailed(t *testing.T) {
	s := storetest.New(t)
	transport := &whatsapptest.Transport{}
	notifier := &recordingNotifier{}
	d := whatsapp.NewDispatcher(transport, s, notifier, nil, logging.Nop())
	ctx := context.Background()

	_, err := d.SendText(ctx, "919800000000", "first", whatsapp.Link{PatientID: "p1"})
	require.NoError(t, err)

	transport.Err = errors.New("network down")
	_, err = d.SendText(ctx, "919800000000", "second", whatsapp.Link{})
	require.Error(t, err)

	msgs, err := s.ListMessages(ctx, store.MessageQuery{UserPhone: "919800000000"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	byContent := map[string]models.Message{}
	for _, m := range msgs {
		byContent[m.Content] = m
	}
	assert.Equal(t, models.MessageSent, byContent["first"].Status)
	assert.Equal(t, "wamid.1", byContent["first"].WaMessageID)
	assert.Equal(t, "p1", byContent["first"].PatientID)
	assert.Equal(t, models.MessageFailed, byContent["second"].Status)
	assert.Contains(t, byContent["second"].Error, "network down")

	require.Len(t, notifier.got, 1)
}

func TestDispatcherAlignsBodyWithHeader(t *testing.T) {
	transport := &whatsapptest.Transport{}
	d := whatsapp.NewDispatcher(transport, nil, nil, nil, logging.Nop())

	tpl := &catalog.Template{
		ID: "x", Kind: catalog.ButtonMenu,
		Header:  "Dr. Mehta - Available Slots",
		Body:    "Book with Dr. Sharma today",
		Buttons: []catalog.Button{{ID: "b", Title: "B"}},
	}
	_, err := d.Send(context.Background(), tpl, "91", whatsapp.Link{})
	require.NoError(t, err)
	assert.Equal(t, "Book with Dr. Mehta today", transport.Last().Interactive.Body.Text)
	assert.Equal(t, "Book with Dr. Sharma today", tpl.Body, "caller's template untouched")
}
