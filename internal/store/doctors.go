package store

import (
	"context"
	"fmt"

	"hospital-chat/internal/models"
	"hospital-chat/pkg/phone"

	"github.com/google/uuid"
)

const defaultConsultationFee = 750

// DoctorPatch holds the fields of a partial doctor update.
type DoctorPatch struct {
	Name            *string   `json:"name"`
	PhoneNumber     *string   `json:"phoneNumber"`
	Email           *string   `json:"email"`
	Specialization  *string   `json:"specialization"`
	Department      *string   `json:"department"`
	LicenseNumber   *string   `json:"licenseNumber"`
	Experience      *int      `json:"experience"`
	Qualifications  *[]string `json:"qualifications"`
	ConsultationFee *int      `json:"consultationFee"`
	IsAvailable     *bool     `json:"isAvailable"`
}

func (p DoctorPatch) apply(d *models.Doctor) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.PhoneNumber != nil {
		d.PhoneNumber = *p.PhoneNumber
	}
	if p.Email != nil {
		d.Email = *p.Email
	}
	if p.Specialization != nil {
		d.Specialization = *p.Specialization
	}
	if p.Department != nil {
		d.Department = *p.Department
	}
	if p.LicenseNumber != nil {
		d.LicenseNumber = *p.LicenseNumber
	}
	if p.Experience != nil {
		d.Experience = *p.Experience
	}
	if p.Qualifications != nil {
		d.Qualifications = *p.Qualifications
	}
	if p.ConsultationFee != nil {
		d.ConsultationFee = *p.ConsultationFee
	}
	if p.IsAvailable != nil {
		d.IsAvailable = models.Bool(*p.IsAvailable)
	}
}

// CreateDoctor inserts an active, available doctor. Duplicate phone numbers
// yield ErrDuplicate.
func (s *Store) CreateDoctor(ctx context.Context, d *models.Doctor) error {
	if d.PhoneNumber != "" {
		if _, err := s.GetDoctorByPhone(ctx, d.PhoneNumber); err == nil {
			return ErrDuplicate
		}
	}
	d.IsActive = models.Bool(true)
	if d.IsAvailable == nil {
		d.IsAvailable = models.Bool(true)
	}
	if d.ConsultationFee == 0 {
		d.ConsultationFee = defaultConsultationFee
	}
	if err := s.conn(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

func (s *Store) GetDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	var d models.Doctor
	if err := s.conn(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Store) GetDoctorByPhone(ctx context.Context, number string) (*models.Doctor, error) {
	var d models.Doctor
	err := s.conn(ctx).Scopes(active).Where("phone_number = ?", number).First(&d).Error
	if err == nil {
		return &d, nil
	}
	if err = translate(err); err != ErrNotFound {
		return nil, err
	}
	last10 := phone.Last10(number)
	if last10 == "" {
		return nil, ErrNotFound
	}
	if err := s.conn(ctx).Scopes(active).Where("phone_last10 = ?", last10).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// DoctorsBySpecialization returns active, available doctors of one specialty.
func (s *Store) DoctorsBySpecialization(ctx context.Context, specialization string) ([]models.Doctor, error) {
	var out []models.Doctor
	err := s.conn(ctx).Scopes(active, available).
		Where("specialization = ?", specialization).
		Order("name").Find(&out).Error
	return out, err
}

func (s *Store) UpdateDoctor(ctx context.Context, id string, patch DoctorPatch) (*models.Doctor, error) {
	d, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.apply(d)
	if err := s.conn(ctx).Save(d).Error; err != nil {
		return nil, fmt.Errorf("update doctor: %w", err)
	}
	return d, nil
}

// ListDoctors returns active doctors ordered by name.
func (s *Store) ListDoctors(ctx context.Context, page Page) ([]models.Doctor, error) {
	q := s.conn(ctx).Scopes(active).Order("name").Order("id").Limit(page.size())
	if page.StartAfter != "" {
		cursor, err := s.GetDoctor(ctx, page.StartAfter)
		if err != nil {
			return nil, err
		}
		q = q.Where("name > ? OR (name = ? AND id > ?)", cursor.Name, cursor.Name, cursor.ID)
	}
	var out []models.Doctor
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) AvailableDoctors(ctx context.Context) ([]models.Doctor, error) {
	var out []models.Doctor
	err := s.conn(ctx).Scopes(active, available).Order("name").Find(&out).Error
	return out, err
}

// ListActiveDoctors feeds the doctor selection list.
func (s *Store) ListActiveDoctors(ctx context.Context, limit int) ([]models.Doctor, error) {
	var out []models.Doctor
	err := s.conn(ctx).Scopes(active).Order("name").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Store) SetDoctorAvailability(ctx context.Context, id string, isAvailable bool) (*models.Doctor, error) {
	return s.UpdateDoctor(ctx, id, DoctorPatch{IsAvailable: &isAvailable})
}

// AddSchedule appends a schedule block and returns the full schedule.
func (s *Store) AddSchedule(ctx context.Context, id string, entry models.ScheduleEntry) ([]models.ScheduleEntry, error) {
	d, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = s.now()
	d.Schedule = append(d.Schedule, entry)
	if err := s.conn(ctx).Save(d).Error; err != nil {
		return nil, fmt.Errorf("add schedule: %w", err)
	}
	return d.Schedule, nil
}

func (s *Store) DeleteDoctor(ctx context.Context, id string) error {
	d, err := s.GetDoctor(ctx, id)
	if err != nil {
		return err
	}
	err = s.conn(ctx).Model(d).Updates(map[string]any{"is_active": false, "deleted_at": s.now()}).Error
	if err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	return nil
}
