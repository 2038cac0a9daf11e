package models

import (
	"time"

	"hospital-chat/pkg/phone"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking statuses
const (
	BookingScheduled = "scheduled"
	BookingArrived   = "arrived"
)

// Flow tracking statuses
const (
	TrackingSent      = "sent"
	TrackingCompleted = "completed"
)

// Message directions and statuses
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	MessageReceived = "received"
	MessageSent     = "sent"
	MessageFailed   = "failed"
	// MessageRecorded marks a record kept for history that was never sent.
	MessageRecorded = "recorded"
)

func newID() string {
	return uuid.NewString()
}

// Active reports whether a soft-deletable record is active. A missing flag counts as active.
func Active(flag *bool) bool {
	return flag == nil || *flag
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// EmergencyContact is stored inline on the patient as JSON.
type EmergencyContact struct {
	Name         string `json:"name,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// HistoryEntry is one medical history item. Fields is free-form
// (symptoms, urgency, notes) as submitted.
type HistoryEntry struct {
	ID        string         `json:"id"`
	Type      string         `json:"type,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Patient is a hospital patient profile, soft deleted through IsActive.
type Patient struct {
	ID               string           `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name             string           `gorm:"type:varchar(255);index" json:"name"`
	PhoneNumber      string           `gorm:"type:varchar(32);index" json:"phoneNumber"`
	PhoneLast10      string           `gorm:"type:varchar(10);index" json:"-"`
	Email            string           `gorm:"type:varchar(255)" json:"email,omitempty"`
	DateOfBirth      string           `gorm:"type:varchar(32)" json:"dob,omitempty"`
	Gender           string           `gorm:"type:varchar(16)" json:"gender,omitempty"`
	Address          string           `gorm:"type:text" json:"address,omitempty"`
	EmergencyContact EmergencyContact `gorm:"type:text;serializer:json" json:"emergencyContact"`
	MedicalHistory   []HistoryEntry   `gorm:"type:text;serializer:json" json:"medicalHistory"`
	Medications      []string         `gorm:"type:text;serializer:json" json:"meds,omitempty"`
	IsActive         *bool            `gorm:"index" json:"isActive,omitempty"`
	DeletedAt        *time.Time       `json:"deletedAt,omitempty"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Patient) TableName() string {
	return "patients"
}

func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return nil
}

func (p *Patient) BeforeSave(tx *gorm.DB) error {
	p.PhoneLast10 = phone.Last10(p.PhoneNumber)
	return nil
}

// ScheduleEntry is one block in a doctor's weekly schedule.
type ScheduleEntry struct {
	ID        string    `json:"id"`
	Day       string    `json:"day,omitempty"`
	StartTime string    `json:"startTime,omitempty"`
	EndTime   string    `json:"endTime,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Doctor is a practitioner that patients can book with.
type Doctor struct {
	ID              string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name            string          `gorm:"type:varchar(255);index" json:"name"`
	PhoneNumber     string          `gorm:"type:varchar(32);index" json:"phoneNumber"`
	PhoneLast10     string          `gorm:"type:varchar(10);index" json:"-"`
	Email           string          `gorm:"type:varchar(255)" json:"email,omitempty"`
	Specialization  string          `gorm:"type:varchar(100);index" json:"specialization"`
	Department      string          `gorm:"type:varchar(100)" json:"department,omitempty"`
	LicenseNumber   string          `gorm:"type:varchar(64)" json:"licenseNumber,omitempty"`
	Experience      int             `json:"experience,omitempty"`
	Qualifications  []string        `gorm:"type:text;serializer:json" json:"qualifications,omitempty"`
	ConsultationFee int             `json:"consultationFee,omitempty"`
	IsActive        *bool           `gorm:"index" json:"isActive,omitempty"`
	IsAvailable     *bool           `gorm:"index" json:"isAvailable,omitempty"`
	Schedule        []ScheduleEntry `gorm:"type:text;serializer:json" json:"schedule"`
	DeletedAt       *time.Time      `json:"deletedAt,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Doctor) TableName() string {
	return "doctors"
}

func (d *Doctor) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = newID()
	}
	return nil
}

func (d *Doctor) BeforeSave(tx *gorm.DB) error {
	d.PhoneLast10 = phone.Last10(d.PhoneNumber)
	return nil
}

// Booking is a finalized appointment. It is never hard deleted.
type Booking struct {
	ID              string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	PatientID       string         `gorm:"type:varchar(64);index" json:"patientId"`
	DoctorID        string         `gorm:"type:varchar(64);index" json:"doctorId,omitempty"`
	BookingTime     time.Time      `gorm:"index" json:"bookingTime"`
	Status          string         `gorm:"type:varchar(20);index" json:"status"`
	ArrivalTime     *time.Time     `json:"arrivalTime,omitempty"`
	ArrivalLocation string         `gorm:"type:varchar(255)" json:"arrivalLocation,omitempty"`
	CheckedInBy     string         `gorm:"type:varchar(255)" json:"checkedInBy,omitempty"`
	Room            string         `gorm:"type:varchar(64)" json:"room,omitempty"`
	Meta            map[string]any `gorm:"type:text;serializer:json" json:"meta"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = newID()
	}
	return nil
}

// PendingBooking is the scratch state of an in-progress booking, one per phone.
// BookingTime holds either an RFC3339 timestamp or a slot label such as "Mon 9:30 AM".
type PendingBooking struct {
	UserPhone   string         `gorm:"primaryKey;type:varchar(32)" json:"userPhone"`
	PatientID   string         `gorm:"type:varchar(64)" json:"patientId,omitempty"`
	DoctorID    string         `gorm:"type:varchar(64)" json:"doctorId,omitempty"`
	BookingTime string         `gorm:"type:varchar(128)" json:"bookingTime,omitempty"`
	Meta        map[string]any `gorm:"type:text;serializer:json" json:"meta"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (PendingBooking) TableName() string {
	return "pending_bookings"
}

// MetaString returns meta[key] when it is a string.
func (p *PendingBooking) MetaString(key string) string {
	if p == nil || p.Meta == nil {
		return ""
	}
	s, _ := p.Meta[key].(string)
	return s
}

// Flow is a locally stored WhatsApp form definition. Updates bump Version.
type Flow struct {
	ID          string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string         `gorm:"type:varchar(255)" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	FlowJSON    map[string]any `gorm:"type:text;serializer:json" json:"flowJson"`
	IsActive    *bool          `gorm:"index" json:"isActive,omitempty"`
	Version     int            `gorm:"default:1" json:"version"`
	DeletedAt   *time.Time     `json:"deletedAt,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Flow) TableName() string {
	return "flows"
}

func (f *Flow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = newID()
	}
	return nil
}

// FlowResponse is a submitted form payload. Append-only.
type FlowResponse struct {
	ID           string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	FlowID       string         `gorm:"type:varchar(64);index" json:"flowId,omitempty"`
	FlowName     string         `gorm:"type:varchar(255)" json:"flowName,omitempty"`
	UserPhone    string         `gorm:"type:varchar(32);index" json:"userPhone"`
	ScreenID     string         `gorm:"type:varchar(128)" json:"screenId,omitempty"`
	Response     map[string]any `gorm:"type:text;serializer:json" json:"response"`
	RawResponse  string         `gorm:"type:text" json:"rawResponse,omitempty"`
	ResponseType string         `gorm:"type:varchar(50)" json:"responseType,omitempty"`
	MessageID    string         `gorm:"type:varchar(255)" json:"messageId,omitempty"`
	Status       string         `gorm:"type:varchar(20)" json:"status"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (FlowResponse) TableName() string {
	return "flow_responses"
}

func (r *FlowResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	return nil
}

// FlowTracking correlates a form launch with its completion through FlowToken.
type FlowTracking struct {
	ID          string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserPhone   string     `gorm:"type:varchar(32);index" json:"userPhone"`
	FlowID      string     `gorm:"type:varchar(64)" json:"flowId"`
	FlowToken   string     `gorm:"type:varchar(128);uniqueIndex" json:"flowToken"`
	Status      string     `gorm:"type:varchar(20)" json:"status"`
	ResponseID  string     `gorm:"type:varchar(64)" json:"responseId,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (FlowTracking) TableName() string {
	return "flow_trackings"
}

func (f *FlowTracking) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = newID()
	}
	return nil
}

// Message records every inbound and outbound chat message.
type Message struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Direction   string    `gorm:"type:varchar(10);index" json:"direction"`
	UserPhone   string    `gorm:"type:varchar(32);index" json:"userPhone"`
	MessageType string    `gorm:"type:varchar(50)" json:"messageType"`
	Content     string    `gorm:"type:text" json:"content"`
	Status      string    `gorm:"type:varchar(20)" json:"status"`
	Error       string    `gorm:"type:text" json:"error,omitempty"`
	PatientID   string    `gorm:"type:varchar(64);index" json:"patientId,omitempty"`
	DoctorID    string    `gorm:"type:varchar(64);index" json:"doctorId,omitempty"`
	BookingID   string    `gorm:"type:varchar(64)" json:"bookingId,omitempty"`
	FlowID      string    `gorm:"type:varchar(64);index" json:"flowId,omitempty"`
	TemplateID  string    `gorm:"type:varchar(128)" json:"templateId,omitempty"`
	WaMessageID string    `gorm:"type:varchar(255);index" json:"waMessageId,omitempty"`
	IsResponse  bool      `json:"isResponse"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}

// PatientAudit snapshots a patient before and after each change. Before and
// After hold JSON.
type PatientAudit struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Action    string    `gorm:"type:varchar(20)" json:"action"`
	PatientID string    `gorm:"type:varchar(64);index" json:"patientId"`
	Before    string    `gorm:"type:text" json:"before,omitempty"`
	After     string    `gorm:"type:text" json:"after,omitempty"`
	Timestamp time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}

func (PatientAudit) TableName() string {
	return "patient_audits"
}

func (a *PatientAudit) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = newID()
	}
	return nil
}

// WebhookMessage is the raw inbound message kept for audit.
type WebhookMessage struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	From      string    `gorm:"type:varchar(32);index" json:"from"`
	Raw       string    `gorm:"type:text" json:"raw"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (WebhookMessage) TableName() string {
	return "webhook_messages"
}

func (w *WebhookMessage) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = newID()
	}
	return nil
}

type Medication struct {
	ID           string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name         string `gorm:"type:varchar(255)" json:"name"`
	Dosage       string `gorm:"type:varchar(100)" json:"dosage,omitempty"`
	Instructions string `gorm:"type:text" json:"instructions,omitempty"`
}

func (Medication) TableName() string {
	return "medications"
}

type Lab struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string `gorm:"type:varchar(255)" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Price       int    `json:"price,omitempty"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

func (Lab) TableName() string {
	return "labs"
}

// SystemSetting overrides credentials from the environment at startup.
type SystemSetting struct {
	Key       string    `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}

// All lists every model for auto-migration and data copies.
func All() []any {
	return []any{
		&Patient{},
		&Doctor{},
		&Booking{},
		&PendingBooking{},
		&Flow{},
		&FlowResponse{},
		&FlowTracking{},
		&Message{},
		&PatientAudit{},
		&WebhookMessage{},
		&Medication{},
		&Lab{},
		&SystemSetting{},
	}
}
