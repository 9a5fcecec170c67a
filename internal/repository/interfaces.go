package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/cabinet-api/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// ListOptions is offset pagination over a collection.
type ListOptions struct {
	Skip  int64
	Limit int64
}

// All repository interfaces in one file
type (
	// UserRepository is the credential store.
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id primitive.ObjectID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, filter model.UserFilter, opts ListOptions) ([]*model.User, int64, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id primitive.ObjectID) (*model.Patient, error)
		GetByUserID(ctx context.Context, userID primitive.ObjectID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, opts ListOptions) ([]*model.Patient, int64, error)
		Count(ctx context.Context) (int64, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id primitive.ObjectID) (*model.Doctor, error)
		GetByUserID(ctx context.Context, userID primitive.ObjectID) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, opts ListOptions) ([]*model.Doctor, int64, error)
		Count(ctx context.Context) (int64, error)
	}

	// ConsultationRepository lists newest first unless the filter asks for ascending order.
	ConsultationRepository interface {
		Create(ctx context.Context, consultation *model.Consultation) error
		Get(ctx context.Context, id primitive.ObjectID) (*model.Consultation, error)
		Update(ctx context.Context, consultation *model.Consultation) error
		Delete(ctx context.Context, id primitive.ObjectID) error
		List(ctx context.Context, filter model.ConsultationFilter, opts ListOptions) ([]*model.Consultation, int64, error)
		Count(ctx context.Context, filter model.ConsultationFilter) (int64, error)
		CountByStatus(ctx context.Context) (map[model.ConsultationStatus]int64, error)
		CountByDoctor(ctx context.Context) ([]model.DoctorConsultationCount, error)
	}

	// GraphRepository is the relationship store. Nodes are keyed by the document identifier,
	// CONSULTED_BY edges by their consultation_id property.
	GraphRepository interface {
		MergePatientNode(ctx context.Context, node *model.PatientNode) error
		MergeDoctorNode(ctx context.Context, node *model.DoctorNode) error
		DeletePatientNode(ctx context.Context, id string) (bool, error)
		DeleteDoctorNode(ctx context.Context, id string) (bool, error)
		GetConsultationEdge(ctx context.Context, consultationID string) (*model.ConsultationEdge, error)
		CreateConsultationEdge(ctx context.Context, edge *model.ConsultationEdge) error
		UpdateConsultationEdge(ctx context.Context, consultationID string, props map[string]interface{}) error
		DeleteConsultationEdge(ctx context.Context, consultationID string) (bool, error)
		PatientsOfDoctor(ctx context.Context, doctorID string) ([]*model.ConsultedPatient, error)
	}

	// Pinger reports store connectivity.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
