package automation

import (
	"context"
	"fmt"

	"hospital-chat/internal/catalog"
)

const (
	// maxListRows is the most rows WhatsApp accepts in one list message.
	maxListRows        = 10
	maxRowDescription  = 72
	doctorSectionTitle = "Doctors"
	labSectionTitle    = "Lab Tests"
	patientSection     = "Patients"
)

// enrich replaces the rows of the dynamic list templates with live records.
// On a query error, or when the query returns nothing, the template keeps
// its existing rows.
func (e *Engine) enrich(ctx context.Context, t *catalog.Template) {
	var (
		rows    []catalog.Row
		subject catalog.SubjectKind
		title   string
		err     error
	)
	switch t.ID {
	case catalog.DoctorSelection:
		rows, err = e.doctorRows(ctx)
		subject, title = catalog.SubjectDoctor, doctorSectionTitle
	case catalog.LabTests:
		rows, err = e.labRows(ctx)
		subject, title = catalog.SubjectLab, labSectionTitle
	case catalog.ExistingPatients:
		rows, err = e.patientRows(ctx)
		subject, title = catalog.SubjectPatient, patientSection
	default:
		return
	}
	if err != nil {
		e.logger.Error("failed to load rows for dynamic template", "template_id", t.ID, "error", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	for _, r := range rows {
		if e.catalog.HasTrigger(catalog.ListRowID, r.ID) {
			continue
		}
		e.catalog.PutTrigger(&catalog.Trigger{
			ID:       r.TriggerID,
			Kind:     catalog.ListRowID,
			Value:    r.ID,
			Action:   r.NextAction,
			TargetID: r.TargetID,
			Subject:  &catalog.Subject{Kind: subject, ID: r.ID},
		})
	}

	if len(t.Sections) > 0 && t.Sections[0].Title != "" {
		title = t.Sections[0].Title
	}
	t.Sections = []catalog.Section{{Title: title, Rows: rows}}
}

func (e *Engine) doctorRows(ctx context.Context) ([]catalog.Row, error) {
	doctors, err := e.store.ListActiveDoctors(ctx, maxListRows)
	if err != nil {
		return nil, err
	}
	rows := make([]catalog.Row, 0, len(doctors))
	for _, d := range doctors {
		rows = append(rows, catalog.Row{
			ID:          d.ID,
			Title:       catalog.TruncateTitle(nonEmpty(d.Name, "Unknown"), catalog.MaxRowTitle),
			Description: catalog.TruncateTitle(d.Specialization, maxRowDescription),
			TriggerID:   "trigger_dr_" + d.ID,
			NextAction:  catalog.SendTemplate,
			TargetID:    catalog.DoctorSlots,
		})
	}
	return rows, nil
}

func (e *Engine) labRows(ctx context.Context) ([]catalog.Row, error) {
	labs, err := e.store.ListActiveLabs(ctx, maxListRows)
	if err != nil {
		return nil, err
	}
	rows := make([]catalog.Row, 0, len(labs))
	for _, l := range labs {
		desc := l.Description
		if l.Price > 0 {
			if desc != "" {
				desc += " - "
			}
			desc += fmt.Sprintf("₹%d", l.Price)
		}
		rows = append(rows, catalog.Row{
			ID:          l.ID,
			Title:       catalog.TruncateTitle(nonEmpty(l.Name, "Lab Test"), catalog.MaxRowTitle),
			Description: catalog.TruncateTitle(desc, maxRowDescription),
			TriggerID:   "trigger_lab_" + l.ID,
			NextAction:  catalog.SendTemplate,
			TargetID:    catalog.LabBooking,
		})
	}
	return rows, nil
}

func (e *Engine) patientRows(ctx context.Context) ([]catalog.Row, error) {
	patients, err := e.store.ListActivePatients(ctx, maxListRows)
	if err != nil {
		return nil, err
	}
	rows := make([]catalog.Row, 0, len(patients))
	for _, p := range patients {
		rows = append(rows, catalog.Row{
			ID:          p.ID,
			Title:       catalog.TruncateTitle(nonEmpty(p.Name, "Unknown"), catalog.MaxRowTitle),
			Description: p.PhoneNumber,
			TriggerID:   "trigger_patient_" + p.ID,
			NextAction:  catalog.SendTemplate,
			TargetID:    catalog.Welcome,
		})
	}
	return rows, nil
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
