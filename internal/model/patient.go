package model

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Patient struct {
	Base                 `bson:",inline"`
	UserID               primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name                 string             `bson:"name" json:"name"`
	Email                string             `bson:"email" json:"email"`
	Phone                string             `bson:"phone" json:"phone"`
	BirthDate            string             `bson:"birth_date,omitempty" json:"birth_date,omitempty"`
	Address              string             `bson:"address,omitempty" json:"address,omitempty"`
	IdentificationNumber string             `bson:"identification_number,omitempty" json:"identification_number,omitempty"`
}

// CreatePatientRequest provisions a profile without a login identity.
type CreatePatientRequest struct {
	Name                 string `json:"name" binding:"required"`
	Email                string `json:"email" binding:"required,email"`
	Phone                string `json:"phone"`
	BirthDate            string `json:"birth_date"`
	Address              string `json:"address"`
	IdentificationNumber string `json:"identification_number"`
}

func (r *CreatePatientRequest) Patient() *Patient {
	return &Patient{
		Name:                 r.Name,
		Email:                NormalizeEmail(r.Email),
		Phone:                r.Phone,
		BirthDate:            r.BirthDate,
		Address:              r.Address,
		IdentificationNumber: r.IdentificationNumber,
	}
}

type UpdatePatientRequest struct {
	ImmutableFields
	Name                 *string `json:"name" binding:"omitempty,min=1"`
	Email                *string `json:"email" binding:"omitempty,email"`
	Phone                *string `json:"phone"`
	BirthDate            *string `json:"birth_date"`
	Address              *string `json:"address"`
	IdentificationNumber *string `json:"identification_number"`
}

// Apply merges the supplied fields and reports whether anything was supplied.
func (r *UpdatePatientRequest) Apply(p *Patient) bool {
	changed := false
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
			changed = true
		}
	}
	set(&p.Name, r.Name)
	if r.Email != nil {
		p.Email = NormalizeEmail(*r.Email)
		changed = true
	}
	set(&p.Phone, r.Phone)
	set(&p.BirthDate, r.BirthDate)
	set(&p.Address, r.Address)
	set(&p.IdentificationNumber, r.IdentificationNumber)
	return changed
}

// PatientOverview is the patient's own view of their record.
type PatientOverview struct {
	*Patient
	TotalConsultations int64         `json:"total_consultations"`
	LastConsultation   *Consultation `json:"last_consultation"`
}
