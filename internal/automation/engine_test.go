package automation_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"hospital-chat/internal/automation"
	"hospital-chat/internal/catalog"
	"hospital-chat/internal/metrics"
	"hospital-chat/internal/models"
	"hospital-chat/internal/store"
	"hospital-chat/internal/store/storetest"
	"hospital-chat/internal/whatsapp"
	"hospital-chat/internal/whatsapp/whatsapptest"
	"hospital-chat/pkg/logging"
	wa "hospital-chat/pkg/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvents struct {
	mu       sync.Mutex
	bookings []models.Booking
	arrivals []models.Booking
}

func (r *recordedEvents) NotifyBooking(b models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings = append(r.bookings, b)
}

func (r *recordedEvents) NotifyArrival(b models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arrivals = append(r.arrivals, b)
}

type fixture struct {
	engine    *automation.Engine
	store     *store.Store
	catalog   *catalog.Catalog
	transport *whatsapptest.Transport
	events    *recordedEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := storetest.New(t)
	c := catalog.NewSeeded(time.Hour)
	tr := &whatsapptest.Transport{}
	m := metrics.NewChatMetrics(prometheus.NewRegistry())
	d := whatsapp.NewDispatcher(tr, s, nil, m, logging.Nop())
	ev := &recordedEvents{}
	e := automation.NewEngine(s, c, d, automation.Options{Events: ev, Metrics: m, Logger: logging.Nop()})
	return &fixture{engine: e, store: s, catalog: c, transport: tr, events: ev}
}

func textMsg(from, body string) wa.IncomingMessage {
	return wa.IncomingMessage{From: from, ID: "wamid.in", Type: "text", Text: &wa.TextBody{Body: body}}
}

func buttonMsg(from, id, title string) wa.IncomingMessage {
	return wa.IncomingMessage{From: from, ID: "wamid.in", Type: "interactive", Interactive: &wa.InteractiveMessage{
		Type: "button_reply", ButtonReply: &wa.ButtonReply{ID: id, Title: title},
	}}
}

func listMsg(from, id, title string) wa.IncomingMessage {
	return wa.IncomingMessage{From: from, ID: "wamid.in", Type: "interactive", Interactive: &wa.InteractiveMessage{
		Type: "list_reply", ListReply: &wa.ListReply{ID: id, Title: title},
	}}
}

func TestGreetingFromUnknownPhoneStartsRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000001"

	require.NoError(t, f.engine.HandleMessage(ctx, textMsg(from, "Hi")))

	sent := f.transport.To(from)
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].Interactive)
	assert.Equal(t, "flow", sent[0].Interactive.Type)
	params := sent[0].Interactive.Action.Parameters
	require.NotNil(t, params)
	assert.Equal(t, "737535792667128", params.FlowID)
	assert.True(t, strings.HasPrefix(params.FlowToken, "flow_token_"))

	tracking, err := f.store.LatestFlowTracking(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, models.TrackingSent, tracking.Status)
	assert.Equal(t, params.FlowToken, tracking.FlowToken)
}

func TestGreetingFromKnownPatientSendsWelcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000002"
	require.NoError(t, f.store.CreatePatient(ctx, &models.Patient{Name: "Asha", PhoneNumber: from}))

	require.NoError(t, f.engine.HandleMessage(ctx, textMsg(from, "hello")))

	msg := f.transport.Last()
	require.NotNil(t, msg.Interactive)
	assert.Equal(t, "button", msg.Interactive.Type)
	assert.Equal(t, "Welcome to Hospital Services! 🏥", msg.Interactive.Header.Text)
	assert.Len(t, msg.Interactive.Action.Buttons, whatsapp.MaxReplyButtons)

	welcome, ok := f.catalog.Template(catalog.Welcome)
	require.True(t, ok)
	assert.Len(t, welcome.Buttons, 4)
	assert.Equal(t, catalog.BtnCheckIn, welcome.Buttons[3].ID)
}

func TestDoctorRowSelectionSavesPendingAndRewritesHeader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000003"
	doctor := &models.Doctor{Name: "Mehta", PhoneNumber: "9811111111", Specialization: "cardiology"}
	require.NoError(t, f.store.CreateDoctor(ctx, doctor))

	require.NoError(t, f.engine.HandleMessage(ctx, listMsg(from, doctor.ID, "Mehta")))

	pending, err := f.store.GetPending(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, doctor.ID, pending.DoctorID)
	assert.Equal(t, "Mehta", pending.MetaString("doctorName"))

	msg := f.transport.Last()
	require.NotNil(t, msg.Interactive)
	assert.Equal(t, "Dr. Mehta - Available Slots 📅", msg.Interactive.Header.Text)
}

func TestSlotSelectionShowsConfirmationForChosenDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000004"
	doctor := &models.Doctor{Name: "Mehta", PhoneNumber: "9811111112", Specialization: "cardiology"}
	require.NoError(t, f.store.CreateDoctor(ctx, doctor))

	require.NoError(t, f.engine.HandleMessage(ctx, listMsg(from, doctor.ID, "Mehta")))
	require.NoError(t, f.engine.HandleMessage(ctx, buttonMsg(from, "btn_slot_930", "🕘 Mon 9:30 AM")))

	pending, err := f.store.GetPending(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, doctor.ID, pending.DoctorID)
	assert.Equal(t, "Mon 9:30 AM", pending.BookingTime)
	assert.Equal(t, "🕘 Mon 9:30 AM", pending.MetaString("slotTitle"))

	msg := f.transport.Last()
	require.NotNil(t, msg.Interactive)
	assert.Equal(t, catalog.ConfirmHeader, msg.Interactive.Header.Text)
	assert.Contains(t, msg.Interactive.Body.Text, "Dr. Mehta")
	assert.NotContains(t, msg.Interactive.Body.Text, "Sharma")
}

func TestSlotSelectionRecoversDoctorFromRecentMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000013"
	require.NoError(t, f.store.CreateMessage(ctx, &models.Message{
		Direction: models.DirectionOutbound,
		UserPhone: from,
		Content:   "Dr. Kapoor - Available Slots",
		Status:    models.MessageSent,
	}))

	require.NoError(t, f.engine.HandleMessage(ctx, buttonMsg(from, "btn_slot_930", "🕘 Mon 9:30 AM")))

	msg := f.transport.Last()
	require.NotNil(t, msg.Interactive)
	assert.Equal(t, catalog.ConfirmHeader, msg.Interactive.Header.Text)
	assert.Contains(t, msg.Interactive.Body.Text, "Dr. Kapoor")
	assert.NotContains(t, msg.Interactive.Body.Text, "Sharma")
}

func TestConfirmPayCreatesBookingAndPaymentLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000005"
	require.NoError(t, f.store.CreateDoctor(ctx, &models.Doctor{ID: "d1", Name: "Mehta", PhoneNumber: "9811111113", ConsultationFee: 900}))
	_, err := f.store.MergePending(ctx, from, store.PendingUpdate{DoctorID: "d1", BookingTime: "Mon 9:30 AM"})
	require.NoError(t, err)

	require.NoError(t, f.engine.HandleMessage(ctx, buttonMsg(from, catalog.BtnConfirmPay, "✅ Confirm & Pay")))

	patient, err := f.store.GetPatientByPhone(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, "WhatsApp Patient", patient.Name)

	bookings, err := f.store.BookingsForPatient(ctx, patient.ID)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "d1", bookings[0].DoctorID)
	assert.Equal(t, models.BookingScheduled, bookings[0].Status)
	assert.Equal(t, "whatsapp", bookings[0].Meta["source"])

	_, err = f.store.GetPending(ctx, from)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.Len(t, f.events.bookings, 1)
	assert.Equal(t, bookings[0].ID, f.events.bookings[0].ID)

	payment := f.transport.Last()
	require.NotNil(t, payment.Interactive)
	assert.Equal(t, "Payment Required 💳", payment.Interactive.Header.Text)
	assert.Contains(t, payment.Interactive.Body.Text, "₹900")
	assert.Contains(t, payment.Interactive.Body.Text, "Dr. Mehta Consultation")
	assert.Contains(t, payment.Interactive.Body.Text, "[Payment Link: https://pay.hospital.com/")
	done := payment.Interactive.Action.Buttons[0].Reply.ID
	assert.True(t, strings.HasPrefix(done, catalog.BtnPaymentDonePrefix))

	recorded, err := f.store.ListMessages(ctx, store.MessageQuery{UserPhone: from, Limit: 10})
	require.NoError(t, err)
	var summary *models.Message
	for i := range recorded {
		if recorded[i].MessageType == "booking_confirmation" {
			summary = &recorded[i]
		}
	}
	require.NotNil(t, summary)
	assert.Equal(t, models.MessageRecorded, summary.Status)
	assert.Equal(t, bookings[0].ID, summary.BookingID)

	// the personalized "payment completed" button leads to the confirmation
	require.NoError(t, f.engine.HandleMessage(ctx, buttonMsg(from, done, "✅ Payment Completed")))
	confirm := f.transport.Last()
	require.NotNil(t, confirm.Interactive)
	assert.Equal(t, "Appointment Confirmed! 🎉", confirm.Interactive.Header.Text)
	assert.Contains(t, confirm.Interactive.Body.Text, "Dr. Mehta")
	assert.Contains(t, confirm.Interactive.Body.Text, bookings[0].ID)
}

func TestSecondConfirmPayFindsNoPendingBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000006"
	require.NoError(t, f.store.CreateDoctor(ctx, &models.Doctor{ID: "d1", Name: "Mehta", PhoneNumber: "9811111114"}))
	_, err := f.store.MergePending(ctx, from, store.PendingUpdate{DoctorID: "d1", BookingTime: "Mon 9:30 AM"})
	require.NoError(t, err)

	tap := buttonMsg(from, catalog.BtnConfirmPay, "✅ Confirm & Pay")
	require.NoError(t, f.engine.HandleMessage(ctx, tap))
	before := len(f.transport.To(from))
	require.NoError(t, f.engine.HandleMessage(ctx, tap))

	patient, err := f.store.GetPatientByPhone(ctx, from)
	require.NoError(t, err)
	bookings, err := f.store.BookingsForPatient(ctx, patient.ID)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)

	after := f.transport.To(from)[before:]
	require.Len(t, after, 2)
	require.NotNil(t, after[0].Text)
	assert.Contains(t, after[0].Text.Body, "couldn't find a booking in progress")
	require.NotNil(t, after[1].Interactive)
	assert.Equal(t, "Welcome to Hospital Services! 🏥", after[1].Interactive.Header.Text)
}

func TestConcurrentConfirmPayCreatesOneBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000007"
	require.NoError(t, f.store.CreateDoctor(ctx, &models.Doctor{ID: "d1", Name: "Mehta", PhoneNumber: "9811111115"}))
	_, err := f.store.MergePending(ctx, from, store.PendingUpdate{DoctorID: "d1", BookingTime: "Mon 9:30 AM"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.engine.HandleMessage(ctx, buttonMsg(from, catalog.BtnConfirmPay, "✅ Confirm & Pay"))
		}()
	}
	wg.Wait()

	var n int64
	require.NoError(t, f.store.DB().Model(&models.Booking{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestArrivedKeywordChecksInSingleBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000008"
	patient := &models.Patient{Name: "Ravi", PhoneNumber: from}
	require.NoError(t, f.store.CreatePatient(ctx, patient))
	doctor := &models.Doctor{Name: "Mehta", PhoneNumber: "9811111116"}
	require.NoError(t, f.store.CreateDoctor(ctx, doctor))
	booking, err := f.store.CreateBooking(ctx, store.NewBooking{
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		BookingTime: time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.HandleMessage(ctx, textMsg(from, "arrived")))

	got, err := f.store.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingArrived, got.Status)
	assert.NotNil(t, got.ArrivalTime)
	assert.Equal(t, "whatsapp", got.ArrivalLocation)
	assert.Equal(t, "patient", got.CheckedInBy)

	toDoctor, err := f.store.ListMessages(ctx, store.MessageQuery{UserPhone: "919811111116", Limit: 10})
	require.NoError(t, err)
	require.Len(t, toDoctor, 1)
	assert.Contains(t, toDoctor[0].Content, "Ravi has arrived")
	assert.Equal(t, booking.ID, toDoctor[0].BookingID)

	require.Len(t, f.events.arrivals, 1)
}

func TestArrivedWithSeveralBookingsAsksWhichOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000009"
	patient := &models.Patient{Name: "Ravi", PhoneNumber: from}
	require.NoError(t, f.store.CreatePatient(ctx, patient))
	doctor := &models.Doctor{Name: "Mehta", PhoneNumber: "9811111117"}
	require.NoError(t, f.store.CreateDoctor(ctx, doctor))

	var ids []string
	for _, offset := range []time.Duration{time.Hour, 2 * time.Hour} {
		b, err := f.store.CreateBooking(ctx, store.NewBooking{
			PatientID:   patient.ID,
			DoctorID:    doctor.ID,
			BookingTime: time.Now().Add(offset).UTC().Format(time.RFC3339),
		})
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	require.NoError(t, f.engine.HandleMessage(ctx, textMsg(from, "I am here")))

	list := f.transport.Last()
	require.NotNil(t, list.Interactive)
	assert.Equal(t, "list", list.Interactive.Type)
	rows := list.Interactive.Action.Sections[0].Rows
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.LessOrEqual(t, len([]rune(r.Title)), catalog.MaxRowTitle)
	}

	require.NoError(t, f.engine.HandleMessage(ctx, listMsg(from, rows[1].ID, rows[1].Title)))

	chosen, err := f.store.GetBooking(ctx, rows[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingArrived, chosen.Status)
	other, err := f.store.GetBooking(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingScheduled, other.Status)
	assert.ElementsMatch(t, ids, []string{rows[0].ID, rows[1].ID})
}

func TestArrivedWithoutBookingReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000010"
	require.NoError(t, f.store.CreatePatient(ctx, &models.Patient{Name: "Ravi", PhoneNumber: from}))

	require.NoError(t, f.engine.HandleMessage(ctx, textMsg(from, "arrived")))

	msg := f.transport.Last()
	require.NotNil(t, msg.Text)
	assert.Contains(t, msg.Text.Body, "couldn't find a scheduled appointment")
}

func TestCheckInFromUnregisteredPhoneUsesSelectedPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "15550001111"
	patient := &models.Patient{Name: "Ravi", PhoneNumber: "9876500000"}
	require.NoError(t, f.store.CreatePatient(ctx, patient))
	booking, err := f.store.CreateBooking(ctx, store.NewBooking{
		PatientID:   patient.ID,
		BookingTime: time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.HandleMessage(ctx, buttonMsg(from, catalog.BtnCheckIn, "📍 I've arrived")))
	list := f.transport.Last()
	require.NotNil(t, list.Interactive)
	assert.Equal(t, "Existing Patients", list.Interactive.Header.Text)

	require.NoError(t, f.engine.HandleMessage(ctx, listMsg(from, patient.ID, "Ravi")))
	pending, err := f.store.GetPending(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, pending.PatientID)

	require.NoError(t, f.engine.HandleMessage(ctx, buttonMsg(from, catalog.BtnCheckIn, "📍 I've arrived")))

	got, err := f.store.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingArrived, got.Status)
	last := f.transport.Last()
	require.NotNil(t, last.Text)
	assert.Contains(t, last.Text.Body, "checked in")
}

func TestChatCheckInRefusesAnotherPatientsBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := &models.Patient{Name: "Owner", PhoneNumber: "919800000011"}
	require.NoError(t, f.store.CreatePatient(ctx, owner))
	from := "919800000012"
	require.NoError(t, f.store.CreatePatient(ctx, &models.Patient{Name: "Stranger", PhoneNumber: from}))
	b, err := f.store.CreateBooking(ctx, store.NewBooking{PatientID: owner.ID})
	require.NoError(t, err)

	// an unmatched list id that names a booking falls back to check-in
	_ = f.engine.HandleMessage(ctx, listMsg(from, b.ID, "booking"))

	got, err := f.store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingScheduled, got.Status)
}

func TestDoctorListExcludesInactiveDoctors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000013"

	active := &models.Doctor{Name: "Active", PhoneNumber: "9811111118", Specialization: "general"}
	require.NoError(t, f.store.CreateDoctor(ctx, active))
	removed := &models.Doctor{Name: "Removed", PhoneNumber: "9811111119"}
	require.NoError(t, f.store.CreateDoctor(ctx, removed))
	require.NoError(t, f.store.DeleteDoctor(ctx, removed.ID))
	legacy := &models.Doctor{Name: "Legacy", PhoneNumber: "9811111120"}
	require.NoError(t, f.store.DB().Create(legacy).Error)

	require.NoError(t, f.engine.HandleMessage(ctx, buttonMsg(from, "btn_general_checkup", "👩‍⚕️ General Checkup")))

	msg := f.transport.Last()
	require.NotNil(t, msg.Interactive)
	assert.Equal(t, "list", msg.Interactive.Type)
	var titles []string
	for _, r := range msg.Interactive.Action.Sections[0].Rows {
		titles = append(titles, r.Title)
	}
	assert.ElementsMatch(t, []string{"Active", "Legacy"}, titles)
	assert.Equal(t, "General Physicians", msg.Interactive.Action.Sections[0].Title)

	assert.True(t, f.catalog.HasTrigger(catalog.ListRowID, active.ID))
	assert.False(t, f.catalog.HasTrigger(catalog.ListRowID, removed.ID))
}

func TestPatientListExcludesInactivePatients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kept := &models.Patient{Name: "Kept", PhoneNumber: "919800000014"}
	require.NoError(t, f.store.CreatePatient(ctx, kept))
	gone := &models.Patient{Name: "Gone", PhoneNumber: "919800000015"}
	require.NoError(t, f.store.CreatePatient(ctx, gone))
	require.NoError(t, f.store.DeletePatient(ctx, gone.ID))

	require.NoError(t, f.engine.HandleMessage(ctx, buttonMsg("919800000016", "btn_existing_patient", "Existing Patient")))

	msg := f.transport.Last()
	require.NotNil(t, msg.Interactive)
	rows := msg.Interactive.Action.Sections[0].Rows
	require.Len(t, rows, 1)
	assert.Equal(t, "Kept", rows[0].Title)
}

func TestLabSelectionSendsPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := "919800000017"

	require.NoError(t, f.engine.HandleMessage(ctx, listMsg(from, "test_blood_sugar", "Blood Sugar Test")))

	msg := f.transport.Last()
	require.NotNil(t, msg.Interactive)
	assert.Equal(t, "Lab Test Payment 🧪", msg.Interactive.Header.Text)
	assert.Contains(t, msg.Interactive.Body.Text, "Blood Sugar Test")
	assert.Contains(t, msg.Interactive.Body.Text, "[Payment Link: https://pay.hospital.com/")

	var n int64
	require.NoError(t, f.store.DB().Model(&models.Booking{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUnsupportedMessageTypeIsIgnored(t *testing.T) {
	f := newFixture(t)
	err := f.engine.HandleMessage(context.Background(), wa.IncomingMessage{From: "919800000018", Type: "image"})
	require.NoError(t, err)
	assert.Empty(t, f.transport.Messages())
}

func TestMessageWithoutSenderIsRejected(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.engine.HandleMessage(context.Background(), textMsg("", "hi")))
}

func TestFlowTokenFormat(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	token := automation.FlowToken(now)
	assert.Regexp(t, `^flow_token_1700000000123_[a-z0-9]{6}$`, token)
}
