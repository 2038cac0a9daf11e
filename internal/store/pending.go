package store

import (
	"context"
	"fmt"

	"hospital-chat/internal/models"
)

// PendingUpdate is merged into a phone's pending booking. Empty fields keep
// the stored value and Meta keys are merged over the stored meta.
type PendingUpdate struct {
	PatientID   string
	DoctorID    string
	BookingTime string
	Meta        map[string]any
}

func (s *Store) GetPending(ctx context.Context, userPhone string) (*models.PendingBooking, error) {
	var p models.PendingBooking
	if err := s.conn(ctx).First(&p, "user_phone = ?", userPhone).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// MergePending creates or updates the pending booking for userPhone.
func (s *Store) MergePending(ctx context.Context, userPhone string, in PendingUpdate) (*models.PendingBooking, error) {
	existing, err := s.GetPending(ctx, userPhone)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	create := existing == nil
	if create {
		existing = &models.PendingBooking{UserPhone: userPhone}
	}
	if existing.Meta == nil {
		existing.Meta = map[string]any{}
	}
	if in.PatientID != "" {
		existing.PatientID = in.PatientID
	}
	if in.DoctorID != "" {
		existing.DoctorID = in.DoctorID
	}
	if in.BookingTime != "" {
		existing.BookingTime = NormalizeBookingTime(in.BookingTime, s.now().Location())
	}
	for k, v := range in.Meta {
		existing.Meta[k] = v
	}

	if create {
		err = s.conn(ctx).Create(existing).Error
	} else {
		err = s.conn(ctx).Save(existing).Error
	}
	if err != nil {
		return nil, fmt.Errorf("merge pending booking: %w", err)
	}
	return existing, nil
}

func (s *Store) DeletePending(ctx context.Context, userPhone string) error {
	return s.conn(ctx).Where("user_phone = ?", userPhone).Delete(&models.PendingBooking{}).Error
}
