package model

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Doctor struct {
	Base       `bson:",inline"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Phone      string             `bson:"phone" json:"phone"`
	Speciality string             `bson:"speciality" json:"speciality"`
	Schedule   map[string]string  `bson:"schedule,omitempty" json:"schedule"`
}

type CreateDoctorRequest struct {
	Name       string            `json:"name" binding:"required"`
	Email      string            `json:"email" binding:"required,email"`
	Phone      string            `json:"phone"`
	Speciality string            `json:"speciality" binding:"required"`
	Schedule   map[string]string `json:"schedule"`
}

func (r *CreateDoctorRequest) Doctor() *Doctor {
	schedule := r.Schedule
	if schedule == nil {
		schedule = map[string]string{}
	}
	return &Doctor{
		Name:       r.Name,
		Email:      NormalizeEmail(r.Email),
		Phone:      r.Phone,
		Speciality: r.Speciality,
		Schedule:   schedule,
	}
}

type UpdateDoctorRequest struct {
	ImmutableFields
	Name       *string            `json:"name" binding:"omitempty,min=1"`
	Email      *string            `json:"email" binding:"omitempty,email"`
	Phone      *string            `json:"phone"`
	Speciality *string            `json:"speciality"`
	Schedule   *map[string]string `json:"schedule"`
}

func (r *UpdateDoctorRequest) Apply(d *Doctor) bool {
	changed := false
	if r.Name != nil {
		d.Name = *r.Name
		changed = true
	}
	if r.Email != nil {
		d.Email = NormalizeEmail(*r.Email)
		changed = true
	}
	if r.Phone != nil {
		d.Phone = *r.Phone
		changed = true
	}
	if r.Speciality != nil {
		d.Speciality = *r.Speciality
		changed = true
	}
	if r.Schedule != nil {
		d.Schedule = *r.Schedule
		changed = true
	}
	return changed
}
