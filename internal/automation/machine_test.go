package automation_test

import (
	"testing"

	"hospital-chat/internal/automation"
	"hospital-chat/internal/catalog"
	"hospital-chat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFromPending(t *testing.T) {
	assert.Equal(t, automation.StageNone, automation.StateFrom(nil).Stage)

	s := automation.StateFrom(&models.PendingBooking{DoctorID: "d1"})
	assert.Equal(t, automation.StageDoctorChosen, s.Stage)
	assert.True(t, s.HasPending)

	s = automation.StateFrom(&models.PendingBooking{DoctorID: "d1", BookingTime: "Mon 9:30 AM", Meta: map[string]any{"doctorName": "Mehta"}})
	assert.Equal(t, automation.StageSlotChosen, s.Stage)
	assert.Equal(t, "Mehta", s.DoctorName)
}

func TestGreetingDependsOnKnownPatient(t *testing.T) {
	_, effects := automation.Transition(automation.State{Stage: automation.StageNone}, automation.Event{Kind: automation.EventGreeting})
	require.Len(t, effects, 1)
	assert.Equal(t, automation.EffectStartRegistration, effects[0].Kind)

	_, effects = automation.Transition(automation.State{Stage: automation.StageNone}, automation.Event{Kind: automation.EventGreeting, KnownPatient: true})
	require.Len(t, effects, 1)
	assert.Equal(t, automation.EffectSendTemplate, effects[0].Kind)
	assert.Equal(t, catalog.Welcome, effects[0].TemplateID)
}

func TestSlotKeepsChosenDoctor(t *testing.T) {
	s := automation.State{Stage: automation.StageDoctorChosen, HasPending: true, DoctorID: "d1", DoctorName: "Mehta"}

	next, effects := automation.Transition(s, automation.Event{
		Kind:       automation.EventSlotSelected,
		SlotLabel:  "Mon 9:30 AM",
		SlotTitle:  "🕘 Mon 9:30 AM",
		DoctorID:   "d2",
		DoctorName: "Other",
	})
	assert.Equal(t, automation.StageSlotChosen, next.Stage)
	assert.Equal(t, "d1", next.DoctorID)
	assert.Equal(t, "Mon 9:30 AM", next.BookingTime)

	require.Len(t, effects, 2)
	assert.Equal(t, automation.EffectSavePending, effects[0].Kind)
	assert.Empty(t, effects[0].DoctorID)
	assert.Equal(t, "Mon 9:30 AM", effects[0].BookingTime)
	assert.Equal(t, catalog.ConfirmAppointment, effects[1].TemplateID)
	assert.Equal(t, "Mehta", effects[1].DoctorName)
	assert.Equal(t, "d1", effects[1].DoctorID)
}

func TestConfirmPayFinalizesOnce(t *testing.T) {
	s := automation.State{Stage: automation.StageSlotChosen, HasPending: true, DoctorID: "d1", BookingTime: "Mon 9:30 AM", SlotTitle: "🕘 Mon 9:30 AM"}

	next, effects := automation.Transition(s, automation.Event{Kind: automation.EventConfirmPay})
	assert.Equal(t, automation.StageAwaitingPayment, next.Stage)
	require.Len(t, effects, 2)
	assert.Equal(t, automation.EffectFinalizeBooking, effects[0].Kind)
	assert.Equal(t, automation.EffectSendPayment, effects[1].Kind)
	assert.Equal(t, automation.PaymentAppointment, effects[1].Payment)
	assert.Equal(t, "🕘 Mon 9:30 AM", effects[1].Title)

	// finalizing removes the pending record, so the repeat starts from nothing
	again, effects := automation.Transition(automation.StateFrom(nil), automation.Event{Kind: automation.EventConfirmPay})
	assert.Equal(t, automation.StageNone, again.Stage)
	require.Len(t, effects, 2)
	assert.Equal(t, automation.EffectSendText, effects[0].Kind)
	assert.NotEqual(t, automation.EffectFinalizeBooking, effects[1].Kind)
	assert.Equal(t, catalog.Welcome, effects[1].TemplateID)
}

func TestConfirmPayNeedsSomethingToBook(t *testing.T) {
	s := automation.State{Stage: automation.StageNone, HasPending: true, PatientID: "p1"}
	next, effects := automation.Transition(s, automation.Event{Kind: automation.EventConfirmPay})
	assert.Equal(t, automation.StageNone, next.Stage)
	assert.Equal(t, "p1", next.PatientID)
	require.Len(t, effects, 2)
	assert.Equal(t, automation.EffectSendText, effects[0].Kind)
}

func TestCancelKeepsPendingData(t *testing.T) {
	s := automation.State{Stage: automation.StageSlotChosen, HasPending: true, DoctorID: "d1", BookingTime: "Mon 9:30 AM"}
	next, effects := automation.Transition(s, automation.Event{Kind: automation.EventCancelled})
	assert.Equal(t, automation.StageAbandoned, next.Stage)
	assert.Equal(t, "d1", next.DoctorID)
	require.Len(t, effects, 1)
	assert.Equal(t, catalog.Welcome, effects[0].TemplateID)
}

func TestUnmatchedFallsBackToWelcome(t *testing.T) {
	_, effects := automation.Transition(automation.State{}, automation.Event{Kind: automation.EventUnmatched})
	require.Len(t, effects, 1)
	assert.Equal(t, catalog.Welcome, effects[0].TemplateID)
}
