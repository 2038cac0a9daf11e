package store

import (
	"context"
	"fmt"

	"hospital-chat/internal/models"
)

type FlowPatch struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	FlowJSON    *map[string]any `json:"flowJson"`
	IsActive    *bool           `json:"isActive"`
}

func (s *Store) CreateFlow(ctx context.Context, f *models.Flow) error {
	f.IsActive = models.Bool(true)
	f.Version = 1
	if err := s.conn(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("create flow: %w", err)
	}
	return nil
}

func (s *Store) GetFlow(ctx context.Context, id string) (*models.Flow, error) {
	var f models.Flow
	if err := s.conn(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

// UpdateFlow applies the patch and bumps the version.
func (s *Store) UpdateFlow(ctx context.Context, id string, patch FlowPatch) (*models.Flow, error) {
	f, err := s.GetFlow(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		f.Name = *patch.Name
	}
	if patch.Description != nil {
		f.Description = *patch.Description
	}
	if patch.FlowJSON != nil {
		f.FlowJSON = *patch.FlowJSON
	}
	if patch.IsActive != nil {
		f.IsActive = models.Bool(*patch.IsActive)
	}
	f.Version++
	if err := s.conn(ctx).Save(f).Error; err != nil {
		return nil, fmt.Errorf("update flow: %w", err)
	}
	return f, nil
}

func (s *Store) ListFlows(ctx context.Context) ([]models.Flow, error) {
	var out []models.Flow
	err := s.conn(ctx).Scopes(active).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *Store) DeleteFlow(ctx context.Context, id string) error {
	f, err := s.GetFlow(ctx, id)
	if err != nil {
		return err
	}
	return s.conn(ctx).Model(f).Updates(map[string]any{"is_active": false, "deleted_at": s.now()}).Error
}

func (s *Store) SaveFlowResponse(ctx context.Context, r *models.FlowResponse) error {
	if r.Status == "" {
		r.Status = models.MessageReceived
	}
	if r.Response == nil {
		r.Response = map[string]any{}
	}
	if err := s.conn(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("save flow response: %w", err)
	}
	return nil
}

func (s *Store) FlowResponsesByFlow(ctx context.Context, flowID string) ([]models.FlowResponse, error) {
	var out []models.FlowResponse
	err := s.conn(ctx).Where("flow_id = ?", flowID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *Store) FlowResponsesByUser(ctx context.Context, userPhone string) ([]models.FlowResponse, error) {
	var out []models.FlowResponse
	err := s.conn(ctx).Where("user_phone = ?", userPhone).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *Store) CreateFlowTracking(ctx context.Context, t *models.FlowTracking) error {
	if t.Status == "" {
		t.Status = models.TrackingSent
	}
	if err := s.conn(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create flow tracking: %w", err)
	}
	return nil
}

func (s *Store) FlowTrackingByToken(ctx context.Context, token string) (*models.FlowTracking, error) {
	var t models.FlowTracking
	if err := s.conn(ctx).First(&t, "flow_token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// LatestFlowTracking returns the most recent form launch for a phone.
func (s *Store) LatestFlowTracking(ctx context.Context, userPhone string) (*models.FlowTracking, error) {
	var t models.FlowTracking
	err := s.conn(ctx).Where("user_phone = ?", userPhone).Order("created_at DESC").First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) CompleteFlowTracking(ctx context.Context, id, responseID string) error {
	now := s.now()
	return s.conn(ctx).Model(&models.FlowTracking{}).Where("id = ?", id).Updates(map[string]any{
		"status":       models.TrackingCompleted,
		"response_id":  responseID,
		"completed_at": now,
	}).Error
}

func (s *Store) CreateWebhookMessage(ctx context.Context, from, raw string) (*models.WebhookMessage, error) {
	w := &models.WebhookMessage{From: from, Raw: raw}
	if err := s.conn(ctx).Create(w).Error; err != nil {
		return nil, fmt.Errorf("save webhook message: %w", err)
	}
	return w, nil
}
