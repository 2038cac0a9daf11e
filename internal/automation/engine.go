// Package automation runs the WhatsApp booking conversation: it classifies
// inbound messages, drives the booking state machine and applies its effects.
package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"hospital-chat/internal/catalog"
	"hospital-chat/internal/metrics"
	"hospital-chat/internal/models"
	"hospital-chat/internal/store"
	"hospital-chat/internal/whatsapp"
	"hospital-chat/pkg/logging"
	wa "hospital-chat/pkg/models"
)

// Events receives booking lifecycle notifications for live dashboards.
type Events interface {
	NotifyBooking(b models.Booking)
	NotifyArrival(b models.Booking)
}

type Options struct {
	RegistrationFlowID string
	CheckinWindow      time.Duration
	PaymentLinkBase    string
	Events             Events
	Metrics            *metrics.ChatMetrics
	Logger             *logging.Logger
}

type Engine struct {
	store      *store.Store
	catalog    *catalog.Catalog
	resolver   *catalog.Resolver
	dispatcher *whatsapp.Dispatcher
	events     Events
	metrics    *metrics.ChatMetrics
	logger     *logging.Logger
	locks      *phoneLocks
	now        func() time.Time

	registrationFlowID string
	checkinWindow      time.Duration
	paymentLinkBase    string
}

func NewEngine(s *store.Store, c *catalog.Catalog, d *whatsapp.Dispatcher, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.CheckinWindow <= 0 {
		opts.CheckinWindow = 6 * time.Hour
	}
	if opts.RegistrationFlowID == "" {
		opts.RegistrationFlowID = "737535792667128"
	}
	if opts.PaymentLinkBase == "" {
		opts.PaymentLinkBase = "https://pay.hospital.com/"
	}
	return &Engine{
		store:              s,
		catalog:            c,
		resolver:           catalog.NewResolver(c, s),
		dispatcher:         d,
		events:             opts.Events,
		metrics:            opts.Metrics,
		logger:             opts.Logger,
		locks:              newPhoneLocks(),
		now:                time.Now,
		registrationFlowID: opts.RegistrationFlowID,
		checkinWindow:      opts.CheckinWindow,
		paymentLinkBase:    opts.PaymentLinkBase,
	}
}

// SetClock replaces the time source used for tokens and template ids.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// RunJanitor prunes expired personalized catalog entries until ctx ends.
func (e *Engine) RunJanitor(ctx context.Context, every time.Duration) {
	e.catalog.RunJanitor(ctx, every, func(n int) {
		e.metrics.ObservePruned(n)
		e.logger.Info("pruned expired catalog entries", "count", n)
	})
}

// HandleMessage processes one inbound WhatsApp message. Messages from the
// same phone are handled one at a time.
func (e *Engine) HandleMessage(ctx context.Context, msg wa.IncomingMessage) error {
	if msg.From == "" {
		return fmt.Errorf("message %s has no sender", msg.ID)
	}
	unlock := e.locks.Lock(msg.From)
	defer unlock()

	if msg.Interactive != nil && msg.Interactive.NfmReply != nil {
		e.metrics.ObserveInbound("flow_reply", "handled")
		return e.handleFlowReply(ctx, msg)
	}

	sig, ok := signalOf(msg)
	if !ok {
		e.metrics.ObserveInbound(msg.Type, "ignored")
		e.logger.Info("message type not supported for triggers", "from", msg.From, "type", msg.Type)
		return nil
	}
	e.metrics.ObserveInbound(string(sig.Kind), "handled")

	res := e.resolver.Resolve(ctx, sig)
	e.metrics.ObserveResolution(resolutionSource(res))

	state, err := e.loadState(ctx, msg.From)
	if err != nil {
		return err
	}
	ev := e.classify(ctx, msg.From, sig, res, state)
	next, effects := Transition(state, ev)
	e.logger.Debug("conversation transition",
		"phone", msg.From, "event", ev.Kind, "from", state.Stage, "to", next.Stage, "effects", len(effects))

	e.apply(ctx, msg.From, state, effects)
	return nil
}

// signalOf reduces a message to what trigger matching needs.
func signalOf(msg wa.IncomingMessage) (catalog.Signal, bool) {
	switch {
	case msg.Text != nil:
		return catalog.Signal{Kind: catalog.SignalText, Value: msg.Text.Body}, true
	case msg.Interactive != nil && msg.Interactive.ButtonReply != nil:
		r := msg.Interactive.ButtonReply
		return catalog.Signal{Kind: catalog.SignalButton, Value: r.ID, Title: r.Title}, true
	case msg.Interactive != nil && msg.Interactive.ListReply != nil:
		r := msg.Interactive.ListReply
		return catalog.Signal{Kind: catalog.SignalList, Value: r.ID, Title: r.Title}, true
	case msg.Button != nil:
		return catalog.Signal{Kind: catalog.SignalButton, Value: msg.Button.Payload, Title: msg.Button.Text}, true
	}
	return catalog.Signal{}, false
}

func resolutionSource(res catalog.Resolution) string {
	switch {
	case res.Trigger != nil:
		return "trigger"
	case res.Fallback != catalog.NoFallback:
		return string(res.Fallback)
	default:
		return "none"
	}
}

func (e *Engine) loadState(ctx context.Context, phone string) (State, error) {
	p, err := e.store.GetPending(ctx, phone)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return State{}, fmt.Errorf("load pending booking: %w", err)
	}
	return StateFrom(p), nil
}

// classify turns a resolution into a state machine event.
func (e *Engine) classify(ctx context.Context, phone string, sig catalog.Signal, res catalog.Resolution, state State) Event {
	if tr := res.Trigger; tr != nil {
		if sig.Kind == catalog.SignalText {
			return e.classifyKeyword(ctx, phone, tr)
		}
		return e.classifyInteractive(ctx, sig, tr)
	}

	switch res.Fallback {
	case catalog.FallbackDoctor:
		return Event{Kind: EventDoctorSelected, DoctorID: res.EntityID, DoctorName: e.doctorName(ctx, res.EntityID, sig.Title)}
	case catalog.FallbackSlot:
		return e.slotEvent(sig, nil)
	case catalog.FallbackBooking:
		return Event{Kind: EventCheckInSelected, BookingID: res.EntityID}
	}
	return Event{Kind: EventUnmatched}
}

func (e *Engine) classifyKeyword(ctx context.Context, phone string, tr *catalog.Trigger) Event {
	switch {
	case tr.ID == catalog.GreetingTrigger:
		_, err := e.store.GetPatientByPhone(ctx, phone)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			e.logger.Error("patient lookup failed", "phone", phone, "error", err)
		}
		return Event{Kind: EventGreeting, KnownPatient: err == nil}
	case tr.Action == catalog.MarkArrived:
		return Event{Kind: EventCheckInRequested}
	case tr.Action == catalog.StartExternalFlow:
		return Event{Kind: EventStartFlow, FlowID: tr.TargetID}
	case tr.Action == catalog.SendTemplate && tr.TargetID != "":
		return Event{Kind: EventShowTemplate, TemplateID: tr.TargetID}
	}
	return Event{Kind: EventUnmatched}
}

func (e *Engine) classifyInteractive(ctx context.Context, sig catalog.Signal, tr *catalog.Trigger) Event {
	subject := func(kind catalog.SubjectKind) string {
		if tr.Subject != nil && tr.Subject.Kind == kind {
			return tr.Subject.ID
		}
		return ""
	}

	switch {
	case tr.Action == catalog.MarkArrived:
		return Event{Kind: EventCheckInRequested}
	case tr.Action == catalog.MarkArrivedSelected:
		id := subject(catalog.SubjectBooking)
		if id == "" {
			id = tr.Value
		}
		return Event{Kind: EventCheckInSelected, BookingID: id}
	case tr.Action == catalog.StartExternalFlow:
		return Event{Kind: EventStartFlow, FlowID: tr.TargetID}
	case tr.Value == catalog.BtnConfirmPay:
		return Event{Kind: EventConfirmPay}
	case tr.Value == catalog.BtnCancel || tr.Value == catalog.BtnCancelPayment:
		return Event{Kind: EventCancelled}
	case tr.Value == catalog.BtnPrescriptionPay:
		return Event{Kind: EventPrescriptionPay}
	case strings.HasPrefix(tr.Value, catalog.BtnPaymentDonePrefix):
		return Event{Kind: EventPaymentDone, TemplateID: tr.TargetID}
	}

	if id := subject(catalog.SubjectDoctor); id != "" {
		return Event{Kind: EventDoctorSelected, DoctorID: id, DoctorName: e.doctorName(ctx, id, sig.Title)}
	}
	if sig.Kind == catalog.SignalList && tr.TargetID == catalog.DoctorSlots {
		id := ""
		if e.store.HasDoctor(ctx, tr.Value) {
			id = tr.Value
		}
		return Event{Kind: EventDoctorSelected, DoctorID: id, DoctorName: e.doctorName(ctx, id, sig.Title)}
	}
	if strings.HasPrefix(tr.Value, catalog.SlotButtonPrefix) {
		return e.slotEvent(sig, tr)
	}
	if id := subject(catalog.SubjectLab); id != "" || tr.TargetID == catalog.LabBooking {
		if id == "" {
			id = tr.Value
		}
		return Event{Kind: EventLabSelected, LabID: id, Title: sig.Title}
	}
	if id := subject(catalog.SubjectPatient); id != "" {
		return Event{Kind: EventPatientSelected, PatientID: id}
	}
	if tr.TargetID != "" {
		return Event{Kind: EventShowTemplate, TemplateID: tr.TargetID}
	}
	return Event{Kind: EventUnmatched}
}

// slotEvent builds a slot selection. The label is the tapped title without
// its leading emoji, falling back to the seeded button title.
func (e *Engine) slotEvent(sig catalog.Signal, tr *catalog.Trigger) Event {
	title := sig.Title
	if title == "" {
		if t, ok := e.catalog.Template(catalog.DoctorSlots); ok {
			for _, b := range t.Buttons {
				if b.ID == sig.Value {
					title = b.Title
				}
			}
		}
	}
	ev := Event{Kind: EventSlotSelected, SlotTitle: title, SlotLabel: slotLabel(title)}
	if ev.SlotLabel == "" {
		ev.SlotLabel = sig.Value
	}
	if tr != nil && tr.Subject != nil && tr.Subject.Kind == catalog.SubjectDoctor {
		ev.DoctorID = tr.Subject.ID
	}
	return ev
}

func slotLabel(title string) string {
	return strings.TrimSpace(strings.TrimLeftFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}

// doctorName prefers the stored doctor record over the tapped title.
func (e *Engine) doctorName(ctx context.Context, doctorID, title string) string {
	if doctorID != "" {
		if d, err := e.store.GetDoctor(ctx, doctorID); err == nil && d.Name != "" {
			return d.Name
		}
	}
	return title
}

// apply runs effects in order. A failing effect is logged and the rest still
// run.
func (e *Engine) apply(ctx context.Context, phone string, state State, effects []Effect) {
	run := &turn{phone: phone, state: state}
	for _, eff := range effects {
		if err := e.applyOne(ctx, run, eff); err != nil {
			e.logger.Error("conversation effect failed", "phone", phone, "effect", eff.Kind, "error", err)
		}
	}
}

// turn carries what earlier effects produced to later ones.
type turn struct {
	phone   string
	state   State
	patient *models.Patient
	doctor  *models.Doctor
	booking *models.Booking
}

func (e *Engine) applyOne(ctx context.Context, run *turn, eff Effect) error {
	switch eff.Kind {
	case EffectSendTemplate:
		return e.sendTemplate(ctx, run, eff)
	case EffectStartRegistration:
		return e.startFlow(ctx, run.phone, e.registrationFlowID, "registration")
	case EffectStartFlow:
		return e.startFlow(ctx, run.phone, eff.FlowID, "")
	case EffectSavePending:
		update := store.PendingUpdate{
			PatientID:   eff.PatientID,
			DoctorID:    eff.DoctorID,
			BookingTime: eff.BookingTime,
		}
		meta := map[string]any{}
		if eff.DoctorName != "" {
			meta["doctorName"] = eff.DoctorName
		}
		if eff.SlotTitle != "" {
			meta["slotTitle"] = eff.SlotTitle
		}
		if len(meta) > 0 {
			update.Meta = meta
		}
		_, err := e.store.MergePending(ctx, run.phone, update)
		return err
	case EffectFinalizeBooking:
		return e.finalize(ctx, run)
	case EffectSendPayment:
		return e.sendPayment(ctx, run, eff)
	case EffectSendText:
		_, err := e.dispatcher.SendText(ctx, run.phone, eff.Body, whatsapp.Link{PatientID: run.state.PatientID})
		return err
	case EffectRunCheckIn:
		return e.runCheckIn(ctx, run.phone)
	case EffectMarkArrived:
		return e.arriveFromChat(ctx, run.phone, eff.BookingID)
	}
	return fmt.Errorf("unknown effect %q", eff.Kind)
}

// sendTemplate personalizes, enriches and sends a catalog template.
func (e *Engine) sendTemplate(ctx context.Context, run *turn, eff Effect) error {
	t, ok := e.catalog.Template(eff.TemplateID)
	if !ok || t.Status != catalog.StatusPublished {
		e.logger.Warn("template not found or not published", "template_id", eff.TemplateID, "phone", run.phone)
		return nil
	}

	switch t.ID {
	case catalog.DoctorSlots:
		name := eff.DoctorName
		if name == "" {
			name = e.resolveDoctorName(ctx, run.phone, run.state, eff.DoctorID)
		}
		t.Header = catalog.RewriteHeaderDoctor(t.Header, name)
	case catalog.ConfirmAppointment:
		name := eff.DoctorName
		if name == "" {
			name = e.resolveDoctorName(ctx, run.phone, run.state, eff.DoctorID)
		}
		t.Body = catalog.InjectDoctorName(t.Body, name)
		t.Header = catalog.ConfirmHeader
	}
	e.enrich(ctx, t)

	_, err := e.dispatcher.Send(ctx, t, run.phone, whatsapp.Link{PatientID: run.state.PatientID, DoctorID: run.state.DoctorID})
	return err
}

// resolveDoctorName looks in the pending booking, then the doctor record,
// then the latest message to this phone that mentions a doctor.
func (e *Engine) resolveDoctorName(ctx context.Context, phone string, state State, doctorID string) string {
	if state.DoctorName != "" {
		return state.DoctorName
	}
	if doctorID == "" {
		doctorID = state.DoctorID
	}
	if doctorID != "" {
		if d, err := e.store.GetDoctor(ctx, doctorID); err == nil && d.Name != "" {
			return d.Name
		}
	}
	recent, err := e.store.ListMessages(ctx, store.MessageQuery{UserPhone: phone, Limit: 20})
	if err != nil {
		e.logger.Warn("recent message lookup failed", "phone", phone, "error", err)
		return ""
	}
	for _, m := range recent {
		if name := catalog.DoctorName(m.Content); name != "" {
			return name
		}
	}
	return ""
}

// startFlow launches a WhatsApp Flow form under a fresh correlation token.
func (e *Engine) startFlow(ctx context.Context, phone, flowID, formType string) error {
	if flowID == "" {
		return errors.New("start flow: no flow id")
	}
	token := FlowToken(e.now())
	tracking := &models.FlowTracking{UserPhone: phone, FlowID: flowID, FlowToken: token, Status: models.TrackingSent}
	if err := e.store.CreateFlowTracking(ctx, tracking); err != nil {
		return fmt.Errorf("track flow %s: %w", flowID, err)
	}
	_, err := e.dispatcher.SendFlow(ctx, phone, whatsapp.FlowLaunch{
		FlowID:   flowID,
		Token:    token,
		Body:     "Please complete this form:",
		FormType: formType,
	}, whatsapp.Link{FlowID: flowID})
	return err
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// FlowToken mints flow_token_<unixmillis>_<random6>.
func FlowToken(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = tokenAlphabet[rand.Intn(len(tokenAlphabet))]
	}
	return fmt.Sprintf("flow_token_%d_%s", now.UnixMilli(), suffix)
}
