package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"hospital-chat/internal/models"
	"hospital-chat/pkg/phone"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PatientPatch holds the fields of a partial patient update. Nil fields are
// left untouched.
type PatientPatch struct {
	Name             *string                  `json:"name"`
	PhoneNumber      *string                  `json:"phoneNumber"`
	Email            *string                  `json:"email"`
	DateOfBirth      *string                  `json:"dob"`
	Gender           *string                  `json:"gender"`
	Address          *string                  `json:"address"`
	EmergencyContact *models.EmergencyContact `json:"emergencyContact"`
	Medications      *[]string                `json:"meds"`
}

func (p PatientPatch) apply(patient *models.Patient) {
	if p.Name != nil {
		patient.Name = *p.Name
	}
	if p.PhoneNumber != nil {
		patient.PhoneNumber = *p.PhoneNumber
	}
	if p.Email != nil {
		patient.Email = *p.Email
	}
	if p.DateOfBirth != nil {
		patient.DateOfBirth = *p.DateOfBirth
	}
	if p.Gender != nil {
		patient.Gender = *p.Gender
	}
	if p.Address != nil {
		patient.Address = *p.Address
	}
	if p.EmergencyContact != nil {
		patient.EmergencyContact = *p.EmergencyContact
	}
	if p.Medications != nil {
		patient.Medications = *p.Medications
	}
}

// CreatePatient inserts an active patient and writes a create audit. A
// patient with the same phone number yields ErrDuplicate.
func (s *Store) CreatePatient(ctx context.Context, p *models.Patient) error {
	if p.PhoneNumber != "" {
		if _, err := s.GetPatientByPhone(ctx, p.PhoneNumber); err == nil {
			return ErrDuplicate
		}
	}
	p.IsActive = models.Bool(true)
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
		return writeAudit(tx, "create", p.ID, nil, p)
	})
}

func (s *Store) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	var p models.Patient
	if err := s.conn(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// GetPatientByPhone matches the stored number exactly first, then falls back
// to the last ten digits so "+91 98765 43210" finds "919876543210".
func (s *Store) GetPatientByPhone(ctx context.Context, number string) (*models.Patient, error) {
	var p models.Patient
	err := s.conn(ctx).Scopes(active).Where("phone_number = ?", number).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if err = translate(err); err != ErrNotFound {
		return nil, err
	}
	last10 := phone.Last10(number)
	if last10 == "" {
		return nil, ErrNotFound
	}
	err = s.conn(ctx).Scopes(active).Where("phone_last10 = ?", last10).Order("created_at").First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// UpdatePatient applies the patch and records a before/after audit.
func (s *Store) UpdatePatient(ctx context.Context, id string, patch PatientPatch) (*models.Patient, error) {
	var updated models.Patient
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var before models.Patient
		if err := tx.First(&before, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		updated = before
		patch.apply(&updated)
		if err := tx.Save(&updated).Error; err != nil {
			return fmt.Errorf("update patient: %w", err)
		}
		return writeAudit(tx, "update", id, &before, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListPatients returns active patients, newest first.
func (s *Store) ListPatients(ctx context.Context, page Page) ([]models.Patient, error) {
	q := s.conn(ctx).Scopes(active).Order("created_at DESC").Order("id DESC").Limit(page.size())
	if page.StartAfter != "" {
		cursor, err := s.GetPatient(ctx, page.StartAfter)
		if err != nil {
			return nil, err
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var out []models.Patient
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SearchPatientsByName is a name prefix search capped at 20.
func (s *Store) SearchPatientsByName(ctx context.Context, term string) ([]models.Patient, error) {
	var out []models.Patient
	err := s.conn(ctx).Scopes(active).
		Where(`name LIKE ? ESCAPE '\'`, escapeLike(term)+"%").
		Order("name").Limit(20).Find(&out).Error
	return out, err
}

// DeletePatient is a soft delete.
func (s *Store) DeletePatient(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var before models.Patient
		if err := tx.First(&before, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		snapshot := before
		now := s.now()
		if err := tx.Model(&before).
			Updates(map[string]any{"is_active": false, "deleted_at": now}).Error; err != nil {
			return fmt.Errorf("delete patient: %w", err)
		}
		return writeAudit(tx, "delete", id, &snapshot, nil)
	})
}

// AddMedicalHistory appends an entry with a fresh id and timestamp.
func (s *Store) AddMedicalHistory(ctx context.Context, id string, entry models.HistoryEntry) ([]models.HistoryEntry, error) {
	p, err := s.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.ID = uuid.NewString()
	entry.Timestamp = s.now()
	history := append(p.MedicalHistory, entry)

	var updated models.Patient
	err = s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		updated = *p
		updated.MedicalHistory = history
		if err := tx.Save(&updated).Error; err != nil {
			return fmt.Errorf("add medical history: %w", err)
		}
		return writeAudit(tx, "update", id, p, &updated)
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

// ListActivePatients feeds the existing-patient selection list.
func (s *Store) ListActivePatients(ctx context.Context, limit int) ([]models.Patient, error) {
	var out []models.Patient
	err := s.conn(ctx).Scopes(active).Order("name").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Store) ListPatientAudits(ctx context.Context, patientID string) ([]models.PatientAudit, error) {
	var out []models.PatientAudit
	err := s.conn(ctx).Where("patient_id = ?", patientID).Order("timestamp").Find(&out).Error
	return out, err
}

func writeAudit(tx *gorm.DB, action, patientID string, before, after *models.Patient) error {
	audit := models.PatientAudit{Action: action, PatientID: patientID}
	if before != nil {
		b, _ := json.Marshal(before)
		audit.Before = string(b)
	}
	if after != nil {
		a, _ := json.Marshal(after)
		audit.After = string(a)
	}
	if err := tx.Create(&audit).Error; err != nil {
		return fmt.Errorf("write patient audit: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
