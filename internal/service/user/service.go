package user

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
	"github.com/jwalitptl/cabinet-api/internal/service"
	"github.com/jwalitptl/cabinet-api/internal/service/doctor"
	"github.com/jwalitptl/cabinet-api/internal/service/patient"
	apperrors "github.com/jwalitptl/cabinet-api/pkg/errors"
	"github.com/jwalitptl/cabinet-api/pkg/security"
)

const resource = "user"

type UserServicer interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Provision(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, filter model.UserFilter, opts repository.ListOptions) ([]*model.User, int64, error)
	Search(ctx context.Context, query string, opts repository.ListOptions) ([]*model.User, int64, error)
	Update(ctx context.Context, id string, req *model.UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, id string) error
	Profile(ctx context.Context, principal *model.Principal) (*model.User, error)
	UpdateProfile(ctx context.Context, principal *model.Principal, req *model.UpdateUserRequest) (*model.User, error)
	Stats(ctx context.Context) (*model.AdminStats, error)
}

type Options struct {
	Policy                 security.PasswordPolicy
	AllowAdminRegistration bool
}

type Service struct {
	repo          repository.UserRepository
	consultations repository.ConsultationRepository
	patients      patient.PatientService
	doctors       doctor.DoctorService
	hasher        security.PasswordHasher
	opts          Options
}

func NewService(repo repository.UserRepository, consultations repository.ConsultationRepository,
	patients patient.PatientService, doctors doctor.DoctorService, hasher security.PasswordHasher, opts Options) *Service {
	return &Service{
		repo:          repo,
		consultations: consultations,
		patients:      patients,
		doctors:       doctors,
		hasher:        hasher,
		opts:          opts,
	}
}

// Register is self-service provisioning. Admin accounts need AllowAdminRegistration.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if req.Role == model.RoleAdmin && !s.opts.AllowAdminRegistration {
		return nil, apperrors.Forbidden("admin registration is disabled")
	}
	return s.Provision(ctx, req)
}

// Provision creates the identity and, for doctors and patients, the linked profile.
// A failed profile write removes the identity again.
func (s *Service) Provision(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if req.Role == "" {
		req.Role = model.RolePatient
	}
	if !req.Role.Valid() {
		return nil, apperrors.Validation("role must be one of admin, doctor, patient", nil)
	}
	if req.Role == model.RoleDoctor && req.Speciality == "" {
		return nil, apperrors.Validation("speciality is required for doctors", nil)
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        model.NormalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         req.Role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("email already registered", err)
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.createProfile(ctx, user, req); err != nil {
		if delErr := s.repo.Delete(ctx, user.ID); delErr != nil {
			zerolog.Ctx(ctx).Error().Err(delErr).Str("user_id", user.ID.Hex()).Msg("failed to remove user after profile failure")
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("user_id", user.ID.Hex()).Str("role", string(user.Role)).Msg("user provisioned")
	return user, nil
}

func (s *Service) createProfile(ctx context.Context, user *model.User, req *model.RegisterRequest) error {
	var err error
	switch user.Role {
	case model.RolePatient:
		_, err = s.patients.Create(ctx, &model.Patient{
			UserID:               user.ID,
			Name:                 req.DisplayName(),
			Email:                user.Email,
			Phone:                req.Phone,
			BirthDate:            req.BirthDate,
			Address:              req.Address,
			IdentificationNumber: req.IdentificationNumber,
		})
	case model.RoleDoctor:
		_, err = s.doctors.Create(ctx, &model.Doctor{
			UserID:     user.ID,
			Name:       req.DisplayName(),
			Email:      user.Email,
			Phone:      req.Phone,
			Speciality: req.Speciality,
			Schedule:   req.Schedule,
		})
	}
	return err
}

func (s *Service) hashPassword(password string) (string, error) {
	if err := s.opts.Policy.Validate(password); err != nil {
		return "", apperrors.Validation(err.Error(), err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return hash, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	oid, err := service.ParseID(resource, id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, service.StoreError(resource, err)
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, filter model.UserFilter, opts repository.ListOptions) ([]*model.User, int64, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, 0, apperrors.Validation("role must be one of admin, doctor, patient", nil)
	}
	users, total, err := s.repo.List(ctx, filter, opts)
	if err != nil {
		return nil, 0, service.StoreError(resource, err)
	}
	return users, total, nil
}

// Search matches query as a literal, case-insensitive substring of email or name.
// An empty query matches every user.
func (s *Service) Search(ctx context.Context, query string, opts repository.ListOptions) ([]*model.User, int64, error) {
	return s.List(ctx, model.UserFilter{Query: query}, opts)
}

// Update merges the supplied fields. Role is immutable and never read from req.
func (s *Service) Update(ctx context.Context, id string, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, user, req)
}

func (s *Service) apply(ctx context.Context, user *model.User, req *model.UpdateUserRequest) (*model.User, error) {
	if req.Empty() {
		return nil, apperrors.Validation("no fields to update", nil)
	}
	if req.Email != nil {
		user.Email = model.NormalizeEmail(*req.Email)
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Password != nil {
		hash, err := s.hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("email already registered", err)
		}
		return nil, service.StoreError(resource, err)
	}
	return user, nil
}

// Delete removes a doctor or patient identity and cascades to the profile. Admins are never deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == model.RoleAdmin {
		return apperrors.Forbidden("admin accounts cannot be deleted")
	}

	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return service.StoreError(resource, err)
	}

	switch user.Role {
	case model.RolePatient:
		err = s.patients.DeleteByUser(ctx, user.ID)
	case model.RoleDoctor:
		err = s.doctors.DeleteByUser(ctx, user.ID)
	}
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Str("user_id", id).Msg("user deleted")
	return nil
}

func (s *Service) Profile(ctx context.Context, principal *model.Principal) (*model.User, error) {
	return s.Get(ctx, principal.UserID)
}

// UpdateProfile changes the caller's names and password. Email changes go through an admin.
func (s *Service) UpdateProfile(ctx context.Context, principal *model.Principal, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.Get(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	req.Email = nil
	return s.apply(ctx, user, req)
}

func (s *Service) Stats(ctx context.Context) (*model.AdminStats, error) {
	patients, err := s.patients.Count(ctx)
	if err != nil {
		return nil, err
	}
	doctors, err := s.doctors.Count(ctx)
	if err != nil {
		return nil, err
	}
	consultations, err := s.consultations.Count(ctx, model.ConsultationFilter{})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.AdminStats{
		TotalPatients:      patients,
		TotalDoctors:       doctors,
		TotalConsultations: consultations,
	}, nil
}
