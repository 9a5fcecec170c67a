package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConsultationStatus string

const (
	StatusPending   ConsultationStatus = "pending"
	StatusCompleted ConsultationStatus = "completed"
	StatusCancelled ConsultationStatus = "cancelled"
)

var ConsultationStatuses = []ConsultationStatus{StatusPending, StatusCompleted, StatusCancelled}

func (s ConsultationStatus) Valid() bool {
	for _, v := range ConsultationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Consultation struct {
	Base      `bson:",inline"`
	PatientID primitive.ObjectID `bson:"patient_id" json:"patient_id"`
	DoctorID  primitive.ObjectID `bson:"doctor_id" json:"doctor_id"`
	Date      time.Time          `bson:"date" json:"date"`
	Motif     string             `bson:"motif" json:"motif"`
	Diagnosis string             `bson:"diagnosis" json:"diagnosis"`
	Treatment string             `bson:"treatment" json:"treatment"`
	Notes     string             `bson:"notes" json:"notes"`
	Status    ConsultationStatus `bson:"status" json:"status"`
	CreatedBy string             `bson:"created_by" json:"created_by"`
	UpdatedBy string             `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}

// ConsultationFilter is an equality filter; zero fields are ignored.
type ConsultationFilter struct {
	PatientID primitive.ObjectID
	DoctorID  primitive.ObjectID
	Status    ConsultationStatus
	// DateFrom is an inclusive lower bound on Date.
	DateFrom time.Time
	// Ascending lists oldest first instead of newest first.
	Ascending bool
}

type CreateConsultationRequest struct {
	PatientID string             `json:"patient_id" binding:"required"`
	DoctorID  string             `json:"doctor_id"`
	Date      *time.Time         `json:"date"`
	Motif     string             `json:"motif" binding:"required"`
	Diagnosis string             `json:"diagnosis"`
	Treatment string             `json:"treatment"`
	Notes     string             `json:"notes"`
	Status    ConsultationStatus `json:"status" binding:"omitempty,consultation_status"`
}

type UpdateConsultationRequest struct {
	ImmutableFields
	PatientID interface{}         `json:"patient_id,omitempty"`
	DoctorID  interface{}         `json:"doctor_id,omitempty"`
	Date      *time.Time          `json:"date"`
	Motif     *string             `json:"motif" binding:"omitempty,min=1"`
	Diagnosis *string             `json:"diagnosis"`
	Treatment *string             `json:"treatment"`
	Notes     *string             `json:"notes"`
	Status    *ConsultationStatus `json:"status" binding:"omitempty,consultation_status"`
}

// Apply merges the supplied mutable fields and reports whether anything was supplied.
func (r *UpdateConsultationRequest) Apply(c *Consultation) bool {
	changed := false
	if r.Date != nil {
		c.Date = r.Date.UTC()
		changed = true
	}
	for _, f := range []struct {
		dst *string
		src *string
	}{
		{&c.Motif, r.Motif},
		{&c.Diagnosis, r.Diagnosis},
		{&c.Treatment, r.Treatment},
		{&c.Notes, r.Notes},
	} {
		if f.src != nil {
			*f.dst = *f.src
			changed = true
		}
	}
	if r.Status != nil {
		c.Status = *r.Status
		changed = true
	}
	return changed
}

type PartySummary struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email,omitempty"`
}

// ConsultationView is a consultation with its endpoints resolved for display.
type ConsultationView struct {
	*Consultation
	Patient *PartySummary `json:"patient"`
	Doctor  *PartySummary `json:"doctor"`
}

type DoctorConsultationCount struct {
	DoctorID   primitive.ObjectID `bson:"_id" json:"doctor_id"`
	DoctorName string             `bson:"-" json:"doctor_name"`
	Count      int64              `bson:"count" json:"count"`
}

type ConsultationStats struct {
	Total    int64                        `json:"total"`
	ByStatus map[ConsultationStatus]int64 `json:"by_status"`
	ByDoctor []DoctorConsultationCount    `json:"by_doctor"`
}
