package patient

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
	"github.com/jwalitptl/cabinet-api/internal/service"
	"github.com/jwalitptl/cabinet-api/internal/service/graphsync"
	apperrors "github.com/jwalitptl/cabinet-api/pkg/errors"
)

const resource = "patient"

type PatientService interface {
	Create(ctx context.Context, patient *model.Patient) (*model.Patient, error)
	Get(ctx context.Context, id string) (*model.Patient, error)
	GetByUser(ctx context.Context, userID string) (*model.Patient, error)
	List(ctx context.Context, opts repository.ListOptions) ([]*model.Patient, int64, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, req *model.UpdatePatientRequest) (*model.Patient, error)
	UpdateOwn(ctx context.Context, principal *model.Principal, req *model.UpdatePatientRequest) (*model.Patient, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
	Overview(ctx context.Context, principal *model.Principal) (*model.PatientOverview, error)
}

type Service struct {
	repo          repository.PatientRepository
	consultations repository.ConsultationRepository
	sync          graphsync.Syncer
}

func NewService(repo repository.PatientRepository, consultations repository.ConsultationRepository, sync graphsync.Syncer) *Service {
	return &Service{
		repo:          repo,
		consultations: consultations,
		sync:          sync,
	}
}

func (s *Service) Create(ctx context.Context, patient *model.Patient) (*model.Patient, error) {
	patient.Email = model.NormalizeEmail(patient.Email)
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, service.StoreError(resource, err)
	}
	s.syncNode(ctx, patient)

	zerolog.Ctx(ctx).Info().Str("patient_id", patient.ID.Hex()).Msg("patient created")
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Patient, error) {
	oid, err := service.ParseID(resource, id)
	if err != nil {
		return nil, err
	}
	patient, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, service.StoreError(resource, err)
	}
	return patient, nil
}

// GetByUser resolves the profile linked to a login identity.
func (s *Service) GetByUser(ctx context.Context, userID string) (*model.Patient, error) {
	oid, err := service.ParseID(resource, userID)
	if err != nil {
		return nil, err
	}
	patient, err := s.repo.GetByUserID(ctx, oid)
	if err != nil {
		return nil, service.StoreError(resource, err)
	}
	return patient, nil
}

func (s *Service) List(ctx context.Context, opts repository.ListOptions) ([]*model.Patient, int64, error) {
	patients, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, 0, service.StoreError(resource, err)
	}
	return patients, total, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, service.StoreError(resource, err)
	}
	return n, nil
}

func (s *Service) Update(ctx context.Context, id string, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, patient, req)
}

func (s *Service) UpdateOwn(ctx context.Context, principal *model.Principal, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.GetByUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	// The profile email mirrors the login email, which only admins change.
	req.Email = nil
	return s.apply(ctx, patient, req)
}

func (s *Service) apply(ctx context.Context, patient *model.Patient, req *model.UpdatePatientRequest) (*model.Patient, error) {
	if !req.Apply(patient) {
		return nil, apperrors.Validation("no fields to update", nil)
	}
	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, service.StoreError(resource, err)
	}
	s.syncNode(ctx, patient)
	return patient, nil
}

// Delete removes the profile and its graph node with every edge attached to it.
// Consultation documents are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := service.ParseID(resource, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return service.StoreError(resource, err)
	}
	graphsync.Report(ctx, graphsync.OpDeletePatient, id, s.sync.DeletePatientNode(ctx, id))

	zerolog.Ctx(ctx).Info().Str("patient_id", id).Msg("patient deleted")
	return nil
}

// DeleteByUser removes the profile linked to userID, if there is one.
func (s *Service) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	patient, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return service.StoreError(resource, err)
	}
	return s.Delete(ctx, patient.ID.Hex())
}

// Overview is the caller's own profile with consultation totals.
func (s *Service) Overview(ctx context.Context, principal *model.Principal) (*model.PatientOverview, error) {
	patient, err := s.GetByUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	filter := model.ConsultationFilter{PatientID: patient.ID}
	latest, total, err := s.consultations.List(ctx, filter, repository.ListOptions{Limit: 1})
	if err != nil {
		return nil, service.StoreError("consultation", err)
	}

	overview := &model.PatientOverview{Patient: patient, TotalConsultations: total}
	if len(latest) > 0 {
		overview.LastConsultation = latest[0]
	}
	return overview, nil
}

func (s *Service) syncNode(ctx context.Context, patient *model.Patient) {
	graphsync.Report(ctx, graphsync.OpUpsertPatient, patient.ID.Hex(), s.sync.UpsertPatientNode(ctx, patient))
}
