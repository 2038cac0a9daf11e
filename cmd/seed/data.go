package main

import "hospital-chat/internal/models"

var medications = []models.Medication{
	{ID: "med_aspirin", Name: "Aspirin", Dosage: "75 mg", Instructions: "Once daily"},
	{ID: "med_paracetamol", Name: "Paracetamol", Dosage: "500 mg", Instructions: "As needed for pain"},
	{ID: "med_amoxicillin", Name: "Amoxicillin", Dosage: "500 mg", Instructions: "Three times daily after food"},
}

var labs = []models.Lab{
	{ID: "lab_cbc", Name: "Complete Blood Count", Description: "Haemoglobin, WBC and platelet counts", Price: 400},
	{ID: "lab_lipid", Name: "Lipid Profile", Description: "Cholesterol and triglycerides, 12h fasting", Price: 800},
	{ID: "lab_hba1c", Name: "HbA1c", Description: "Three month average blood sugar", Price: 550},
}

var doctors = []models.Doctor{
	{
		Name:            "Emily Smith",
		PhoneNumber:     "+919812300001",
		Email:           "emily.smith@hospital.test",
		Specialization:  "Cardiology",
		Department:      "Cardiology",
		LicenseNumber:   "MD123456",
		Experience:      12,
		Qualifications:  []string{"MD", "FACC", "Board Certified Cardiologist"},
		ConsultationFee: 1200,
		Schedule: []models.ScheduleEntry{
			{ID: "sch_smith_mon", Day: "Monday", StartTime: "09:00", EndTime: "17:00"},
			{ID: "sch_smith_wed", Day: "Wednesday", StartTime: "09:00", EndTime: "17:00"},
			{ID: "sch_smith_fri", Day: "Friday", StartTime: "09:00", EndTime: "17:00"},
		},
	},
	{
		Name:           "Michael Brown",
		PhoneNumber:    "+919812300002",
		Email:          "michael.brown@hospital.test",
		Specialization: "Orthopedics",
		Department:     "Orthopedics",
		LicenseNumber:  "MD789012",
		Experience:     8,
		Qualifications: []string{"MD", "Orthopedic Surgery Specialist"},
		Schedule: []models.ScheduleEntry{
			{ID: "sch_brown_tue", Day: "Tuesday", StartTime: "08:00", EndTime: "16:00"},
			{ID: "sch_brown_thu", Day: "Thursday", StartTime: "08:00", EndTime: "16:00"},
		},
	},
	{
		Name:           "Raj Kumar",
		PhoneNumber:    "+919812300003",
		Email:          "raj.kumar@hospital.test",
		Specialization: "General Medicine",
		Department:     "General Medicine",
		LicenseNumber:  "MD345678",
		Experience:     15,
		Qualifications: []string{"MD", "Internal Medicine", "Family Medicine"},
		Schedule: []models.ScheduleEntry{
			{ID: "sch_kumar_mon", Day: "Monday", StartTime: "08:00", EndTime: "18:00"},
			{ID: "sch_kumar_tue", Day: "Tuesday", StartTime: "08:00", EndTime: "18:00"},
			{ID: "sch_kumar_thu", Day: "Thursday", StartTime: "08:00", EndTime: "18:00"},
		},
	},
}

var patients = []models.Patient{
	{
		Name:        "Alice Johnson",
		PhoneNumber: "+919812311001",
		Email:       "alice.johnson@example.test",
		DateOfBirth: "1985-04-12",
		Gender:      "female",
		Address:     "12 MG Road, Bengaluru",
		Medications: []string{"med_aspirin"},
		EmergencyContact: models.EmergencyContact{
			Name: "Mark Johnson", PhoneNumber: "+919812311009", Relationship: "husband",
		},
	},
	{
		Name:        "Bob Singh",
		PhoneNumber: "+919812311002",
		DateOfBirth: "1979-09-30",
		Gender:      "male",
		Address:     "4 Park Street, Kolkata",
		Medications: []string{"med_paracetamol"},
	},
}

func screen(id, title, next string, actions ...map[string]any) map[string]any {
	s := map[string]any{"id": id, "title": title, "data": map[string]any{}}
	if next != "" {
		s["layout"] = map[string]any{
			"type": "SingleColumnLayout",
			"children": []any{map[string]any{
				"type": "Footer", "label": "Continue",
				"on_click_action": map[string]any{"name": "complete", "payload": map[string]any{"screen": next}},
			}},
		}
	}
	if len(actions) > 0 {
		list := make([]any, len(actions))
		for i, a := range actions {
			list[i] = a
		}
		s["nextActions"] = list
	}
	return s
}

var flows = []models.Flow{
	{
		Name:        "Appointment Booking Flow",
		Description: "Interactive flow for patients to book appointments",
		FlowJSON: map[string]any{
			"version": "3.0",
			"screens": []any{
				screen("WELCOME", "Book Appointment", "SPECIALIZATION"),
				screen("SPECIALIZATION", "Select Specialization", "CONTACT_INFO",
					map[string]any{"type": "assign_doctor", "condition": "cardiology", "specialization": "Cardiology"},
					map[string]any{"type": "assign_doctor", "condition": "orthopedics", "specialization": "Orthopedics"},
					map[string]any{"type": "assign_doctor", "condition": "default", "specialization": "General Medicine"},
				),
				screen("CONTACT_INFO", "Contact Information", "",
					map[string]any{"type": "send_message", "condition": "default", "message": "Thanks {{response.name}}, we will confirm your appointment on {{phone}} shortly."},
				),
			},
		},
	},
	{
		Name:        "Symptom Checker Flow",
		Description: "Interactive flow to help patients describe their symptoms",
		FlowJSON: map[string]any{
			"version": "3.0",
			"screens": []any{
				screen("SYMPTOMS_START", "Symptom Checker", "",
					map[string]any{"type": "send_message", "condition": "chest_pain", "message": "Chest pain needs urgent care. Please call 108 or visit the emergency department now."},
					map[string]any{"type": "send_message", "condition": "default", "message": "We noted: {{response.symptoms}}. A doctor will review and reply."},
				),
			},
		},
	},
}
