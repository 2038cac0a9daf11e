package store

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hospital-chat/internal/models"
)

// NewBooking is the input to CreateBooking. BookingTime may be a timestamp
// or a slot label such as "🕘 Mon 9:30 AM".
type NewBooking struct {
	PatientID   string
	DoctorID    string
	BookingTime string
	Meta        map[string]any
}

// CreateBooking stores a scheduled booking. An unparseable time falls back
// to now.
func (s *Store) CreateBooking(ctx context.Context, in NewBooking) (*models.Booking, error) {
	when, _ := ParseBookingTime(in.BookingTime, s.now())
	meta := in.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	b := &models.Booking{
		PatientID:   in.PatientID,
		DoctorID:    in.DoctorID,
		BookingTime: when.UTC(),
		Status:      models.BookingScheduled,
		Meta:        meta,
	}
	if err := s.conn(ctx).Create(b).Error; err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return b, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := s.conn(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (s *Store) BookingsForPatient(ctx context.Context, patientID string) ([]models.Booking, error) {
	var out []models.Booking
	err := s.conn(ctx).Where("patient_id = ?", patientID).Order("booking_time").Find(&out).Error
	return out, err
}

// CheckinCandidates returns the patient's scheduled bookings within window of
// now. When none fall inside the window every scheduled booking is returned.
func (s *Store) CheckinCandidates(ctx context.Context, patientID string, window time.Duration) ([]models.Booking, error) {
	now := s.now().UTC()
	var near []models.Booking
	err := s.conn(ctx).
		Where("patient_id = ? AND status = ?", patientID, models.BookingScheduled).
		Where("booking_time BETWEEN ? AND ?", now.Add(-window), now.Add(window)).
		Order("booking_time").Find(&near).Error
	if err != nil {
		return nil, err
	}
	if len(near) > 0 {
		return near, nil
	}
	var all []models.Booking
	err = s.conn(ctx).
		Where("patient_id = ? AND status = ?", patientID, models.BookingScheduled).
		Order("booking_time").Find(&all).Error
	return all, err
}

// MarkArrived flips a booking to arrived. Marking an already arrived booking
// again refreshes the arrival details.
func (s *Store) MarkArrived(ctx context.Context, id, location, checkedInBy string) (*models.Booking, error) {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	err = s.conn(ctx).Model(b).Updates(map[string]any{
		"status":           models.BookingArrived,
		"arrival_time":     now,
		"arrival_location": location,
		"checked_in_by":    checkedInBy,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("mark arrived: %w", err)
	}
	return s.GetBooking(ctx, id)
}

func (s *Store) HasBooking(ctx context.Context, id string) bool {
	var n int64
	s.conn(ctx).Model(&models.Booking{}).Where("id = ?", id).Count(&n)
	return n > 0
}

func (s *Store) HasDoctor(ctx context.Context, id string) bool {
	var n int64
	s.conn(ctx).Model(&models.Doctor{}).Where("id = ?", id).Count(&n)
	return n > 0
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"Jan 2, 2006 3:04 PM",
	"2 Jan 2006 15:04",
	"02/01/2006 15:04",
}

var (
	symbolRanges = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}\x{FE0F}\x{200D}]`)
	slotLabel    = regexp.MustCompile(`(?i)^(mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?,?\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
)

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseBookingTime reads timestamps and weekday slot labels. Labels resolve
// to their next occurrence after now. The boolean is false when nothing
// parsed and now was returned instead.
func ParseBookingTime(raw string, now time.Time) (time.Time, bool) {
	cleaned := strings.TrimSpace(symbolRanges.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return now, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, cleaned, now.Location()); err == nil {
			return t, true
		}
	}
	if t, ok := parseSlotLabel(cleaned, now); ok {
		return t, true
	}
	return now, false
}

// NormalizeBookingTime rewrites parseable timestamps as RFC3339 and leaves
// slot labels untouched. Timestamps without a zone are read in loc, as
// ParseBookingTime does.
func NormalizeBookingTime(raw string, loc *time.Location) string {
	cleaned := strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, cleaned, loc); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return raw
}

func parseSlotLabel(label string, now time.Time) (time.Time, bool) {
	m := slotLabel.FindStringSubmatch(label)
	if m == nil {
		return time.Time{}, false
	}
	hour, _ := strconv.Atoi(m[2])
	minute := 0
	if m[3] != "" {
		minute, _ = strconv.Atoi(m[3])
	}
	switch strings.ToLower(m[4]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	day := weekdays[strings.ToLower(m[1])]
	offset := (int(day) - int(now.Weekday()) + 7) % 7
	t := time.Date(now.Year(), now.Month(), now.Day()+offset, hour, minute, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 7)
	}
	return t, true
}
