package automation

import (
	"context"
	"errors"
	"fmt"

	"hospital-chat/internal/catalog"
	"hospital-chat/internal/models"
	"hospital-chat/internal/store"
	"hospital-chat/internal/whatsapp"
)

// ErrFlowNotFound is returned when a response names an unknown flow. The
// response itself is still saved.
var ErrFlowNotFound = errors.New("flow not found")

// ProcessFlowResponse saves a response submitted over the API and runs the
// follow-up action its flow defines for the answered screen.
func (e *Engine) ProcessFlowResponse(ctx context.Context, resp *models.FlowResponse) (*models.FlowResponse, error) {
	if err := e.store.SaveFlowResponse(ctx, resp); err != nil {
		return nil, err
	}

	flow, err := e.store.GetFlow(ctx, resp.FlowID)
	if errors.Is(err, store.ErrNotFound) {
		return resp, ErrFlowNotFound
	}
	if err != nil {
		return resp, err
	}
	if resp.FlowName == "" {
		resp.FlowName = flow.Name
	}

	def, err := DecodeFlowDefinition(flow.FlowJSON)
	if err != nil {
		e.logger.Warn("flow definition is not readable", "flow_id", flow.ID, "error", err)
		return resp, nil
	}
	action := NextAction(def, resp.ScreenID, resp.Response)
	if action == nil {
		return resp, nil
	}
	if err := e.ExecuteAction(ctx, *action, resp); err != nil {
		return resp, fmt.Errorf("run %s for flow %s: %w", action.Type, flow.ID, err)
	}
	return resp, nil
}

// NextAction picks the first action of the answered screen whose condition
// equals one of the submitted values, or is "default".
func NextAction(def FlowDefinition, screenID string, response map[string]any) *FlowAction {
	for _, screen := range def.Screens {
		if screen.ID != screenID {
			continue
		}
		for i, a := range screen.NextActions {
			if a.Condition == "default" || conditionMatches(a.Condition, response) {
				return &screen.NextActions[i]
			}
		}
	}
	return nil
}

func conditionMatches(condition string, response map[string]any) bool {
	if condition == "" {
		return false
	}
	for _, v := range response {
		if ToString(v) == condition {
			return true
		}
	}
	return false
}

// ExecuteAction runs one follow-up action for a response.
func (e *Engine) ExecuteAction(ctx context.Context, action FlowAction, resp *models.FlowResponse) error {
	link := whatsapp.Link{FlowID: resp.FlowID}

	switch action.Type {
	case "send_message":
		if action.Message == "" {
			return nil
		}
		_, err := e.dispatcher.SendText(ctx, resp.UserPhone, ReplaceVariables(action.Message, resp.UserPhone, resp.Response), link)
		return err

	case "trigger_flow":
		next, err := e.store.GetFlow(ctx, action.FlowID)
		if err != nil {
			return fmt.Errorf("next flow %s: %w", action.FlowID, err)
		}
		return e.startFlow(ctx, resp.UserPhone, next.ID, "")

	case "assign_doctor":
		doctors, err := e.store.DoctorsBySpecialization(ctx, action.Specialization)
		if err != nil {
			return err
		}
		if len(doctors) == 0 {
			e.logger.Info("no doctor to assign", "specialization", action.Specialization, "phone", resp.UserPhone)
			return nil
		}
		d := doctors[0]
		link.DoctorID = d.ID
		body := fmt.Sprintf("You have been assigned to %s. Contact: %s", catalog.WithTitle(d.Name), d.PhoneNumber)
		_, err = e.dispatcher.SendText(ctx, resp.UserPhone, body, link)
		return err

	default:
		e.logger.Warn("unknown flow action type", "type", action.Type, "flow_id", resp.FlowID)
	}
	return nil
}
