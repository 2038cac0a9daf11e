package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"hospital-chat/internal/config"
)

// ErrMissingCredentials is returned when no access token or phone number id
// is configured.
var ErrMissingCredentials = errors.New("missing WhatsApp API credentials")

const graphBaseURL = "https://graph.facebook.com"

// Transport sends a rendered payload to the WhatsApp Cloud API.
type Transport interface {
	SendRawMessage(ctx context.Context, msg GenericMessage) (SendResult, error)
}

// SendResult identifies an accepted outbound message.
type SendResult struct {
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

type Client struct {
	Config  *config.Config
	BaseURL string
	HTTP    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		Config:  cfg,
		BaseURL: graphBaseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// --- Message Structures ---

type GenericMessage struct {
	MessagingProduct string          `json:"messaging_product"`
	RecipientType    string          `json:"recipient_type,omitempty"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Text             *TextObj        `json:"text,omitempty"`
	Interactive      *InteractiveObj `json:"interactive,omitempty"`
}

type TextObj struct {
	Body       string `json:"body"`
	PreviewUrl bool   `json:"preview_url"`
}

type InteractiveObj struct {
	Type   string     `json:"type"`
	Header *HeaderObj `json:"header,omitempty"`
	Body   BodyObj    `json:"body"`
	Footer *FooterObj `json:"footer,omitempty"`
	Action ActionObj  `json:"action"`
}

type HeaderObj struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type BodyObj struct {
	Text string `json:"text"`
}

type FooterObj struct {
	Text string `json:"text"`
}

type ActionObj struct {
	Button   string       `json:"button,omitempty"`
	Buttons  []ButtonObj  `json:"buttons,omitempty"`
	Sections []SectionObj `json:"sections,omitempty"`
	// Flow specific fields
	Name       string      `json:"name,omitempty"`
	Parameters *FlowParams `json:"parameters,omitempty"`
}

type FlowParams struct {
	FlowMessageVersion string             `json:"flow_message_version"`
	FlowToken          string             `json:"flow_token"`
	FlowID             string             `json:"flow_id,omitempty"`
	FlowCTA            string             `json:"flow_cta"`
	FlowAction         string             `json:"flow_action,omitempty"` // navigate or data_exchange
	FlowActionPayload  *FlowActionPayload `json:"flow_action_payload,omitempty"`
}

type FlowActionPayload struct {
	Screen string `json:"screen"`
	Data   any    `json:"data,omitempty"`
}

type ButtonObj struct {
	Type  string   `json:"type"`
	Reply ReplyObj `json:"reply"`
}

type ReplyObj struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type SectionObj struct {
	Title string   `json:"title,omitempty"`
	Rows  []RowObj `json:"rows,omitempty"`
}

type RowObj struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, url string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Config.WhatsAppToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 {
		return respBody, fmt.Errorf("API error: %s - %s", resp.Status, string(respBody))
	}

	return respBody, nil
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.BaseURL, c.Config.APIVersion, path)
}

func (c *Client) credentialsOK() bool {
	return c.Config.WhatsAppToken != "" && c.Config.PhoneNumberID != ""
}

// --- Messaging Methods ---

func (c *Client) SendRawMessage(ctx context.Context, msg GenericMessage) (SendResult, error) {
	if !c.credentialsOK() {
		return SendResult{}, ErrMissingCredentials
	}
	if msg.MessagingProduct == "" {
		msg.MessagingProduct = "whatsapp"
	}
	resp, err := c.sendRequest(ctx, http.MethodPost, c.endpoint(c.Config.PhoneNumberID+"/messages"), msg)
	if err != nil {
		return SendResult{}, err
	}

	var parsed sendResponse
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return SendResult{}, fmt.Errorf("decode send response: %w", err)
	}
	result := SendResult{Timestamp: time.Now()}
	if len(parsed.Messages) > 0 {
		result.MessageID = parsed.Messages[0].ID
	}
	return result, nil
}

// PhoneNumberStatus fetches the business phone number record, which doubles
// as a credentials and connectivity check.
func (c *Client) PhoneNumberStatus(ctx context.Context) (map[string]any, error) {
	if !c.credentialsOK() {
		return nil, ErrMissingCredentials
	}
	resp, err := c.sendRequest(ctx, http.MethodGet, c.endpoint(c.Config.PhoneNumberID), nil)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}
