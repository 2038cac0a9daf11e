package store

import (
	"context"
	"fmt"

	"hospital-chat/internal/models"
)

// MessageQuery filters ListMessages. Zero values match everything.
type MessageQuery struct {
	UserPhone string
	FlowID    string
	Limit     int
}

func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	if err := s.conn(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// ListMessages returns messages newest first.
func (s *Store) ListMessages(ctx context.Context, q MessageQuery) ([]models.Message, error) {
	tx := s.conn(ctx).Order("created_at DESC").Limit(Page{Limit: q.Limit}.size())
	if q.UserPhone != "" {
		tx = tx.Where("user_phone = ?", q.UserPhone)
	}
	if q.FlowID != "" {
		tx = tx.Where("flow_id = ?", q.FlowID)
	}
	var out []models.Message
	err := tx.Find(&out).Error
	return out, err
}

// UpdateMessageStatus applies a delivery status reported by the provider.
func (s *Store) UpdateMessageStatus(ctx context.Context, waMessageID, status string) error {
	res := s.conn(ctx).Model(&models.Message{}).Where("wa_message_id = ?", waMessageID).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListMedications(ctx context.Context) ([]models.Medication, error) {
	var out []models.Medication
	err := s.conn(ctx).Order("name").Find(&out).Error
	return out, err
}

// ListActiveLabs feeds the lab selection list.
func (s *Store) ListActiveLabs(ctx context.Context, limit int) ([]models.Lab, error) {
	var out []models.Lab
	err := s.conn(ctx).Scopes(active).Order("name").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Store) GetLab(ctx context.Context, id string) (*models.Lab, error) {
	var l models.Lab
	if err := s.conn(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

// SaveLab and SaveMedication upsert by id.
func (s *Store) SaveLab(ctx context.Context, l *models.Lab) error {
	return s.conn(ctx).Save(l).Error
}

func (s *Store) SaveMedication(ctx context.Context, m *models.Medication) error {
	return s.conn(ctx).Save(m).Error
}
