// Package whatsapptest provides an in-memory Transport for tests.
package whatsapptest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hospital-chat/internal/whatsapp"
)

// Transport records every payload it is asked to send. Set Err to make
// sends fail.
type Transport struct {
	mu   sync.Mutex
	Sent []whatsapp.GenericMessage
	Err  error
}

func (t *Transport) SendRawMessage(_ context.Context, msg whatsapp.GenericMessage) (whatsapp.SendResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return whatsapp.SendResult{}, t.Err
	}
	t.Sent = append(t.Sent, msg)
	return whatsapp.SendResult{MessageID: fmt.Sprintf("wamid.%d", len(t.Sent)), Timestamp: time.Now()}, nil
}

// Messages returns a snapshot of the sent payloads.
func (t *Transport) Messages() []whatsapp.GenericMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]whatsapp.GenericMessage(nil), t.Sent...)
}

// To returns the payloads sent to one recipient.
func (t *Transport) To(phone string) []whatsapp.GenericMessage {
	var out []whatsapp.GenericMessage
	for _, m := range t.Messages() {
		if m.To == phone {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent payload, or the zero value.
func (t *Transport) Last() whatsapp.GenericMessage {
	msgs := t.Messages()
	if len(msgs) == 0 {
		return whatsapp.GenericMessage{}
	}
	return msgs[len(msgs)-1]
}
