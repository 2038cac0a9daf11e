package whatsapp

import (
	"context"
	"fmt"
	"time"

	"hospital-chat/internal/catalog"
	"hospital-chat/internal/metrics"
	"hospital-chat/internal/models"
	"hospital-chat/pkg/logging"
)

// MessageStore persists outbound message records.
type MessageStore interface {
	CreateMessage(ctx context.Context, m *models.Message) error
}

// Notifier receives every successfully sent message.
type Notifier interface {
	NotifyMessage(msg models.Message)
}

// Link ties an outbound message to the records it concerns.
type Link struct {
	PatientID  string
	DoctorID   string
	BookingID  string
	FlowID     string
	IsResponse bool
}

// Dispatcher renders and sends messages, recording each one. A failed send
// is still recorded, with status failed, so the content is not lost.
type Dispatcher struct {
	transport Transport
	messages  MessageStore
	notifier  Notifier
	metrics   *metrics.ChatMetrics
	logger    *logging.Logger
	now       func() time.Time
}

func NewDispatcher(transport Transport, messages MessageStore, notifier Notifier, m *metrics.ChatMetrics, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		transport: transport,
		messages:  messages,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Send delivers a catalog template. Before rendering, a body that names a
// different doctor than the header is rewritten to match the header.
func (d *Dispatcher) Send(ctx context.Context, t *catalog.Template, to string, link Link) (SendResult, error) {
	tpl := t.Clone()
	if tpl.Header != "" {
		if body, changed := catalog.AlignBodyWithHeader(tpl.Header, tpl.Body); changed {
			d.logger.Debug("aligned template body with header", "template_id", tpl.ID, "header", tpl.Header)
			tpl.Body = body
		}
	}

	msg, err := Render(tpl, to)
	if err != nil {
		d.record(ctx, string(tpl.Kind), to, tpl.Body, tpl.ID, link, SendResult{}, err)
		return SendResult{}, err
	}
	return d.deliver(ctx, string(tpl.Kind), msg, tpl.ID, link)
}

func (d *Dispatcher) SendText(ctx context.Context, to, body string, link Link) (SendResult, error) {
	return d.deliver(ctx, string(catalog.PlainText), TextMessage(to, body), "", link)
}

func (d *Dispatcher) SendFlow(ctx context.Context, to string, f FlowLaunch, link Link) (SendResult, error) {
	if link.FlowID == "" {
		link.FlowID = f.FlowID
	}
	return d.deliver(ctx, "flow", FlowMessage(to, f, d.now()), "", link)
}

func (d *Dispatcher) deliver(ctx context.Context, kind string, msg GenericMessage, templateID string, link Link) (SendResult, error) {
	start := d.now()
	res, err := d.transport.SendRawMessage(ctx, msg)
	if err != nil {
		err = fmt.Errorf("send %s to %s: %w", kind, msg.To, err)
	}
	d.metrics.ObserveOutbound(kind, outcome(err), time.Since(start).Seconds())
	d.record(ctx, kind, msg.To, Summary(msg), templateID, link, res, err)
	return res, err
}

func (d *Dispatcher) record(ctx context.Context, kind, to, content, templateID string, link Link, res SendResult, sendErr error) {
	m := models.Message{
		Direction:   models.DirectionOutbound,
		UserPhone:   to,
		MessageType: kind,
		Content:     content,
		Status:      models.MessageSent,
		PatientID:   link.PatientID,
		DoctorID:    link.DoctorID,
		BookingID:   link.BookingID,
		FlowID:      link.FlowID,
		TemplateID:  templateID,
		WaMessageID: res.MessageID,
		IsResponse:  link.IsResponse,
	}
	if sendErr != nil {
		m.Status = models.MessageFailed
		m.Error = sendErr.Error()
		d.logger.Warn("outbound send failed, keeping message as failed record", "to", to, "kind", kind, "error", sendErr)
	}
	if d.messages != nil {
		if err := d.messages.CreateMessage(ctx, &m); err != nil {
			d.logger.Error("failed to persist outbound message", "to", to, "kind", kind, "error", err)
			return
		}
	}
	if sendErr == nil && d.notifier != nil {
		d.notifier.NotifyMessage(m)
	}
}

func outcome(err error) string {
	if err != nil {
		return models.MessageFailed
	}
	return models.MessageSent
}
