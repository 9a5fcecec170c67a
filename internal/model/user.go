package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

type User struct {
	Base         `bson:",inline"`
	Email        string     `bson:"email" json:"email"`
	PasswordHash string     `bson:"password_hash" json:"-"`
	Role         Role       `bson:"role" json:"role"`
	FirstName    string     `bson:"first_name" json:"first_name"`
	LastName     string     `bson:"last_name" json:"last_name"`
	LastLogin    *time.Time `bson:"last_login,omitempty" json:"last_login"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type UserFilter struct {
	Role Role
	// Query matches email, first name or last name, case-insensitively.
	Query string
}

// RegisterRequest provisions an identity and, for doctors and patients, the matching profile.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Role      Role   `json:"role" binding:"omitempty,role"`

	Name                 string            `json:"name"`
	Phone                string            `json:"phone"`
	Speciality           string            `json:"speciality"`
	Schedule             map[string]string `json:"schedule"`
	BirthDate            string            `json:"birth_date"`
	Address              string            `json:"address"`
	IdentificationNumber string            `json:"identification_number"`
}

// DisplayName is the profile name, defaulting to first and last name.
func (r *RegisterRequest) DisplayName() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

type UpdateUserRequest struct {
	ImmutableFields
	Email     *string `json:"email" binding:"omitempty,email"`
	Password  *string `json:"password"`
	FirstName *string `json:"first_name" binding:"omitempty,min=1"`
	LastName  *string `json:"last_name" binding:"omitempty,min=1"`
}

func (r *UpdateUserRequest) Empty() bool {
	return r.Email == nil && r.Password == nil && r.FirstName == nil && r.LastName == nil
}

type AdminStats struct {
	TotalPatients      int64 `json:"total_patients"`
	TotalDoctors       int64 `json:"total_doctors"`
	TotalConsultations int64 `json:"total_consultations"`
}
