package whatsapp

import (
	"fmt"
	"time"

	"hospital-chat/internal/catalog"
)

// MaxReplyButtons is the most reply buttons an interactive message may carry.
const MaxReplyButtons = 3

// Render turns a catalog template into a Cloud API payload for to. Button
// menus beyond MaxReplyButtons are cut silently.
func Render(t *catalog.Template, to string) (GenericMessage, error) {
	switch t.Kind {
	case catalog.PlainText:
		return TextMessage(to, t.Body), nil

	case catalog.ButtonMenu:
		interactive := newInteractive("button", t)
		buttons := t.Buttons
		if len(buttons) > MaxReplyButtons {
			buttons = buttons[:MaxReplyButtons]
		}
		for _, b := range buttons {
			interactive.Action.Buttons = append(interactive.Action.Buttons, ButtonObj{
				Type:  "reply",
				Reply: ReplyObj{ID: b.ID, Title: b.Title},
			})
		}
		return interactiveMessage(to, interactive), nil

	case catalog.ListMenu:
		interactive := newInteractive("list", t)
		interactive.Action.Button = t.ButtonText
		if interactive.Action.Button == "" {
			interactive.Action.Button = "View Options"
		}
		for _, s := range t.Sections {
			section := SectionObj{Title: s.Title}
			for _, r := range s.Rows {
				section.Rows = append(section.Rows, RowObj{ID: r.ID, Title: r.Title, Description: r.Description})
			}
			interactive.Action.Sections = append(interactive.Action.Sections, section)
		}
		return interactiveMessage(to, interactive), nil

	default:
		return GenericMessage{}, fmt.Errorf("unsupported template kind: %s", t.Kind)
	}
}

func newInteractive(kind string, t *catalog.Template) *InteractiveObj {
	obj := &InteractiveObj{Type: kind, Body: BodyObj{Text: t.Body}}
	if t.Header != "" {
		obj.Header = &HeaderObj{Type: "text", Text: t.Header}
	}
	if t.Footer != "" {
		obj.Footer = &FooterObj{Text: t.Footer}
	}
	return obj
}

func interactiveMessage(to string, obj *InteractiveObj) GenericMessage {
	return GenericMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive:      obj,
	}
}

func TextMessage(to, body string) GenericMessage {
	return GenericMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &TextObj{Body: body},
	}
}

// FlowLaunch describes a WhatsApp Flow form sent to a user.
type FlowLaunch struct {
	FlowID   string
	Token    string
	Body     string
	FormType string
}

// FlowMessage builds the interactive flow payload. The form opens on its
// RECOMMEND screen with the user's phone and the correlation token prefilled.
func FlowMessage(to string, f FlowLaunch, now time.Time) GenericMessage {
	body := f.Body
	if body == "" {
		body = "Please complete this form:"
	}
	formType := f.FormType
	if formType == "" {
		formType = "registration"
	}
	return interactiveMessage(to, &InteractiveObj{
		Type:   "flow",
		Header: &HeaderObj{Type: "text", Text: "Complete Form"},
		Body:   BodyObj{Text: body},
		Footer: &FooterObj{Text: "Powered by WhatsApp Flows"},
		Action: ActionObj{
			Name: "flow",
			Parameters: &FlowParams{
				FlowMessageVersion: "3",
				FlowToken:          f.Token,
				FlowID:             f.FlowID,
				FlowCTA:            "Open Form",
				FlowAction:         "navigate",
				FlowActionPayload: &FlowActionPayload{
					Screen: "RECOMMEND",
					Data: map[string]any{
						"user_name":  "",
						"user_phone": to,
						"form_type":  formType,
						"flow_id":    f.FlowID,
						"flow_token": f.Token,
						"timestamp":  now.UTC().Format(time.RFC3339),
					},
				},
			},
		},
	})
}

// Summary is the plain text stored for a rendered payload.
func Summary(msg GenericMessage) string {
	switch {
	case msg.Text != nil:
		return msg.Text.Body
	case msg.Interactive != nil:
		text := msg.Interactive.Body.Text
		if msg.Interactive.Header != nil && msg.Interactive.Header.Text != "" {
			text = msg.Interactive.Header.Text + "\n" + text
		}
		return text
	default:
		return fmt.Sprintf("%s message", msg.Type)
	}
}
