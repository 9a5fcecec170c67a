package doctor

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

const resource = "doctor"

type DoctorService interface {
	Create(ctx context.Context, doctor *model.Doctor) (*model.Doctor, error)
	Get(ctx context.Context, id string) (*model.Doctor, error)
	GetByUser(ctx context.Context, userID string) (*model.Doctor, error)
	List(ctx context.Context, opts repository.ListOptions) ([]*model.Doctor, int64, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, req *model.UpdateDoctorRequest) (*model.Doctor, error)
	UpdateOwn(ctx context.Context, principal *model.Principal, req *model.UpdateDoctorRequest) (*model.Doctor, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
	ConsultedPatients(ctx context.Context, id string) ([]*model.ConsultedPatient, error)
	OwnPatients(ctx context.Context, principal *model.Principal) ([]*model.ConsultedPatient, error)
}

type Service struct {
	repo  repository.DoctorRepository
	graph repository.GraphRepository
	sync  graphsync.Syncer
}

func NewService(repo repository.DoctorRepository, graph repository.GraphRepository, sync graphsync.Syncer) *Service {
	return &Service{
		repo:  repo,
		graph: graph,
		sync:  sync,
	}
}

func (s *Service) Create(ctx context.Context, doctor *model.Doctor) (*model.Doctor, error) {
	doctor.Email = model.NormalizeEmail(doctor.Email)
	if doctor.Schedule == nil {
		doctor.Schedule = map[string]string{}
	}
	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, service.StoreError(resource, err)
	}
	s.syncNode(ctx, doctor)

	zerolog.Ctx(ctx).Info().Str("doctor_id", doctor.ID.Hex()).Msg("doctor created")
	return doctor, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Doctor, error) {
	oid, err := service.ParseID(resource, id)
	if err != nil {
		return nil, err
	}
	doctor, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, service.StoreError(resource, err)
	}
	return doctor, nil
}

func (s *Service) GetByUser(ctx context.Context, userID string) (*model.Doctor, error) {
	oid, err := service.ParseID(resource, userID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.repo.GetByUserID(ctx, oid)
	if err != nil {
		return nil, service.StoreError(resource, err)
	}
	return doctor, nil
}

func (s *Service) List(ctx context.Context, opts repository.ListOptions) ([]*model.Doctor, int64, error) {
	doctors, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, 0, service.StoreError(resource, err)
	}
	return doctors, total, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, service.StoreError(resource, err)
	}
	return n, nil
}

func (s *Service) Update(ctx context.Context, id string, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, doctor, req)
}

func (s *Service) UpdateOwn(ctx context.Context, principal *model.Principal, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.GetByUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	req.Email = nil
	return s.apply(ctx, doctor, req)
}

func (s *Service) apply(ctx context.Context, doctor *model.Doctor, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	if !req.Apply(doctor) {
		return nil, apperrors.Validation("no fields to update", nil)
	}
	if err := s.repo.Update(ctx, doctor); err != nil {
		return nil, service.StoreError(resource, err)
	}
	s.syncNode(ctx, doctor)
	return doctor, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := service.ParseID(resource, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return service.StoreError(resource, err)
	}
	graphsync.Report(ctx, graphsync.OpDeleteDoctor, id, s.sync.DeleteDoctorNode(ctx, id))

	zerolog.Ctx(ctx).Info().Str("doctor_id", id).Msg("doctor deleted")
	return nil
}

func (s *Service) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	doctor, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return service.StoreError(resource, err)
	}
	return s.Delete(ctx, doctor.ID.Hex())
}

// ConsultedPatients reads the doctor's patients from the graph store, most recent visit first.
func (s *Service) ConsultedPatients(ctx context.Context, id string) ([]*model.ConsultedPatient, error) {
	doctor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.patientsOf(ctx, doctor)
}

func (s *Service) OwnPatients(ctx context.Context, principal *model.Principal) ([]*model.ConsultedPatient, error) {
	doctor, err := s.GetByUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	return s.patientsOf(ctx, doctor)
}

func (s *Service) patientsOf(ctx context.Context, doctor *model.Doctor) ([]*model.ConsultedPatient, error) {
	patients, err := s.graph.PatientsOfDoctor(ctx, doctor.ID.Hex())
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return patients, nil
}

func (s *Service) syncNode(ctx context.Context, doctor *model.Doctor) {
	graphsync.Report(ctx, graphsync.OpUpsertDoctor, doctor.ID.Hex(), s.sync.UpsertDoctorNode(ctx, doctor))
}
