package model

import (
	"time"
)

// PatientNode is the graph mirror of a patient profile.
type PatientNode struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	UpdatedAt time.Time
}

func NewPatientNode(p *Patient) *PatientNode {
	return &PatientNode{
		ID:    p.ID.Hex(),
		Name:  p.Name,
		Email: p.Email,
		Phone: p.Phone,
	}
}

// DoctorNode is the graph mirror of a doctor profile.
type DoctorNode struct {
	ID         string
	Name       string
	Email      string
	Speciality string
	UpdatedAt  time.Time
}

func NewDoctorNode(d *Doctor) *DoctorNode {
	return &DoctorNode{
		ID:         d.ID.Hex(),
		Name:       d.Name,
		Email:      d.Email,
		Speciality: d.Speciality,
	}
}

// Edge property keys. consultation_id is the lookup key and never changes.
const (
	EdgeConsultationID = "consultation_id"
	EdgeDate           = "date"
	EdgeMotif          = "motif"
	EdgeDiagnosis      = "diagnosis"
	EdgeTreatment      = "treatment"
	EdgeNotes          = "notes"
	EdgeStatus         = "status"
)

// ConsultationEdge is the CONSULTED_BY relationship from a patient to a doctor.
type ConsultationEdge struct {
	ConsultationID string
	PatientID      string
	DoctorID       string
	Date           string
	Motif          string
	Diagnosis      string
	Treatment      string
	Notes          string
	Status         string
	UpdatedAt      time.Time
}

func NewConsultationEdge(c *Consultation) *ConsultationEdge {
	return &ConsultationEdge{
		ConsultationID: c.ID.Hex(),
		PatientID:      c.PatientID.Hex(),
		DoctorID:       c.DoctorID.Hex(),
		Date:           c.Date.UTC().Format(time.RFC3339),
		Motif:          c.Motif,
		Diagnosis:      c.Diagnosis,
		Treatment:      c.Treatment,
		Notes:          c.Notes,
		Status:         string(c.Status),
	}
}

// Properties returns the mutable edge properties.
func (e *ConsultationEdge) Properties() map[string]interface{} {
	return map[string]interface{}{
		EdgeDate:      e.Date,
		EdgeMotif:     e.Motif,
		EdgeDiagnosis: e.Diagnosis,
		EdgeTreatment: e.Treatment,
		EdgeNotes:     e.Notes,
		EdgeStatus:    e.Status,
	}
}

// Changed returns the properties of next that differ from e.
func (e *ConsultationEdge) Changed(next *ConsultationEdge) map[string]interface{} {
	current := e.Properties()
	changed := make(map[string]interface{})
	for k, v := range next.Properties() {
		if current[k] != v {
			changed[k] = v
		}
	}
	return changed
}

// SetProperty assigns a mutable property by key. Unknown keys are ignored.
func (e *ConsultationEdge) SetProperty(key string, value interface{}) {
	s, _ := value.(string)
	switch key {
	case EdgeDate:
		e.Date = s
	case EdgeMotif:
		e.Motif = s
	case EdgeDiagnosis:
		e.Diagnosis = s
	case EdgeTreatment:
		e.Treatment = s
	case EdgeNotes:
		e.Notes = s
	case EdgeStatus:
		e.Status = s
	}
}

// ConsultedPatient is a patient reached through CONSULTED_BY edges of one doctor.
type ConsultedPatient struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Consultations int64  `json:"consultations"`
	LastVisit     string `json:"last_visit"`
}
