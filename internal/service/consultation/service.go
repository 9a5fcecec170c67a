package consultation

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
	"github.com/jwalitptl/cabinet-api/internal/service"
	"github.com/jwalitptl/cabinet-api/internal/service/graphsync"
	apperrors "github.com/jwalitptl/cabinet-api/pkg/errors"
)

const resource = "consultation"

type ConsultationService interface {
	Create(ctx context.Context, principal *model.Principal, req *model.CreateConsultationRequest) (*model.ConsultationView, error)
	Get(ctx context.Context, principal *model.Principal, id string) (*model.ConsultationView, error)
	List(ctx context.Context, principal *model.Principal, status model.ConsultationStatus, opts repository.ListOptions) ([]*model.ConsultationView, int64, error)
	Update(ctx context.Context, principal *model.Principal, id string, req *model.UpdateConsultationRequest) (*model.ConsultationView, error)
	Delete(ctx context.Context, principal *model.Principal, id string) error
	Stats(ctx context.Context) (*model.ConsultationStats, error)
	History(ctx context.Context, principal *model.Principal, patientID string, opts repository.ListOptions) ([]*model.ConsultationView, int64, error)
	Schedule(ctx context.Context, principal *model.Principal, opts repository.ListOptions) ([]*model.ConsultationView, int64, error)
}

type Service struct {
	repo     repository.ConsultationRepository
	patients repository.PatientRepository
	doctors  repository.DoctorRepository
	sync     graphsync.Syncer
	now      func() time.Time
}

func NewService(repo repository.ConsultationRepository, patients repository.PatientRepository,
	doctors repository.DoctorRepository, sync graphsync.Syncer) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		doctors:  doctors,
		sync:     sync,
		now:      time.Now,
	}
}

// scope is the filter a caller is confined to: none for admins, their own profile otherwise.
func (s *Service) scope(ctx context.Context, principal *model.Principal) (model.ConsultationFilter, error) {
	var filter model.ConsultationFilter
	if principal.IsAdmin() {
		return filter, nil
	}

	userID, err := model.ParseID(principal.UserID)
	if err != nil {
		return filter, apperrors.Forbidden("")
	}

	switch principal.Role {
	case model.RoleDoctor:
		doctor, err := s.doctors.GetByUserID(ctx, userID)
		if err != nil {
			return filter, profileError(err, "no doctor profile is linked to this account")
		}
		filter.DoctorID = doctor.ID
	case model.RolePatient:
		patient, err := s.patients.GetByUserID(ctx, userID)
		if err != nil {
			return filter, profileError(err, "no patient profile is linked to this account")
		}
		filter.PatientID = patient.ID
	default:
		return filter, apperrors.Forbidden("")
	}
	return filter, nil
}

func profileError(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.Forbidden(msg)
	}
	return apperrors.Internal(err)
}

func owns(filter model.ConsultationFilter, c *model.Consultation) bool {
	if !filter.PatientID.IsZero() && c.PatientID != filter.PatientID {
		return false
	}
	return filter.DoctorID.IsZero() || c.DoctorID == filter.DoctorID
}

// Create is open to admins and doctors. A doctor always creates under their own profile.
func (s *Service) Create(ctx context.Context, principal *model.Principal, req *model.CreateConsultationRequest) (*model.ConsultationView, error) {
	if principal.Role == model.RolePatient {
		return nil, apperrors.Forbidden("patients cannot create consultations")
	}
	filter, err := s.scope(ctx, principal)
	if err != nil {
		return nil, err
	}

	patientID, err := model.ParseID(req.PatientID)
	if err != nil {
		return nil, apperrors.Validation("patient_id is not a valid identifier", err)
	}

	doctorID := filter.DoctorID
	switch {
	case !doctorID.IsZero():
		if req.DoctorID != "" && req.DoctorID != doctorID.Hex() {
			return nil, apperrors.Forbidden("doctors can only create their own consultations")
		}
	case req.DoctorID == "":
		return nil, apperrors.Validation("doctor_id is required", nil)
	default:
		if doctorID, err = model.ParseID(req.DoctorID); err != nil {
			return nil, apperrors.Validation("doctor_id is not a valid identifier", err)
		}
	}

	status := req.Status
	if status == "" {
		status = model.StatusPending
	}
	if !status.Valid() {
		return nil, apperrors.Validation("status must be one of pending, completed, cancelled", nil)
	}

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, service.StoreError("patient", err)
	}
	doctor, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, service.StoreError("doctor", err)
	}

	date := s.now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	c := &model.Consultation{
		PatientID: patient.ID,
		DoctorID:  doctor.ID,
		Date:      date,
		Motif:     req.Motif,
		Diagnosis: req.Diagnosis,
		Treatment: req.Treatment,
		Notes:     req.Notes,
		Status:    status,
		CreatedBy: principal.UserID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, service.StoreError(resource, err)
	}
	graphsync.Report(ctx, graphsync.OpUpsertEdge, c.ID.Hex(), s.sync.UpsertConsultationEdge(ctx, c, patient, doctor))

	zerolog.Ctx(ctx).Info().
		Str("consultation_id", c.ID.Hex()).
		Str("patient_id", patient.ID.Hex()).
		Str("doctor_id", doctor.ID.Hex()).
		Msg("consultation created")
	return view(c, patient, doctor), nil
}

func (s *Service) load(ctx context.Context, principal *model.Principal, id string) (*model.Consultation, model.ConsultationFilter, error) {
	filter, err := s.scope(ctx, principal)
	if err != nil {
		return nil, filter, err
	}
	oid, err := service.ParseID(resource, id)
	if err != nil {
		return nil, filter, err
	}
	c, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, filter, service.StoreError(resource, err)
	}
	if !owns(filter, c) {
		return nil, filter, apperrors.Forbidden("consultation belongs to another account")
	}
	return c, filter, nil
}

func (s *Service) Get(ctx context.Context, principal *model.Principal, id string) (*model.ConsultationView, error) {
	c, _, err := s.load(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	views := s.views(ctx, []*model.Consultation{c})
	return views[0], nil
}

// List returns the caller's consultations newest first. The status filter is honoured
// for doctors and admins only.
func (s *Service) List(ctx context.Context, principal *model.Principal, status model.ConsultationStatus, opts repository.ListOptions) ([]*model.ConsultationView, int64, error) {
	filter, err := s.scope(ctx, principal)
	if err != nil {
		return nil, 0, err
	}
	if status != "" && principal.Role != model.RolePatient {
		if !status.Valid() {
			return nil, 0, apperrors.Validation("status must be one of pending, completed, cancelled", nil)
		}
		filter.Status = status
	}
	return s.list(ctx, filter, opts)
}

// History lists one patient's consultations with the calling doctor.
func (s *Service) History(ctx context.Context, principal *model.Principal, patientID string, opts repository.ListOptions) ([]*model.ConsultationView, int64, error) {
	if principal.Role != model.RoleDoctor {
		return nil, 0, apperrors.Forbidden("")
	}
	filter, err := s.scope(ctx, principal)
	if err != nil {
		return nil, 0, err
	}
	pid, err := service.ParseID("patient", patientID)
	if err != nil {
		return nil, 0, err
	}
	if _, err := s.patients.Get(ctx, pid); err != nil {
		return nil, 0, service.StoreError("patient", err)
	}
	filter.PatientID = pid
	return s.list(ctx, filter, opts)
}

// Schedule lists the calling doctor's consultations from the start of today (UTC), soonest first.
func (s *Service) Schedule(ctx context.Context, principal *model.Principal, opts repository.ListOptions) ([]*model.ConsultationView, int64, error) {
	if principal.Role != model.RoleDoctor {
		return nil, 0, apperrors.Forbidden("")
	}
	filter, err := s.scope(ctx, principal)
	if err != nil {
		return nil, 0, err
	}
	filter.DateFrom = s.now().UTC().Truncate(24 * time.Hour)
	filter.Ascending = true
	return s.list(ctx, filter, opts)
}

func (s *Service) list(ctx context.Context, filter model.ConsultationFilter, opts repository.ListOptions) ([]*model.ConsultationView, int64, error) {
	items, total, err := s.repo.List(ctx, filter, opts)
	if err != nil {
		return nil, 0, service.StoreError(resource, err)
	}
	return s.views(ctx, items), total, nil
}

// Update is open to admins and to the doctor who owns the consultation.
func (s *Service) Update(ctx context.Context, principal *model.Principal, id string, req *model.UpdateConsultationRequest) (*model.ConsultationView, error) {
	if principal.Role == model.RolePatient {
		return nil, apperrors.Forbidden("patients cannot update consultations")
	}
	c, _, err := s.load(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, apperrors.Validation("status must be one of pending, completed, cancelled", nil)
	}
	if !req.Apply(c) {
		return nil, apperrors.Validation("no fields to update", nil)
	}
	c.UpdatedBy = principal.UserID

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, service.StoreError(resource, err)
	}

	patient, perr := s.patients.Get(ctx, c.PatientID)
	doctor, derr := s.doctors.Get(ctx, c.DoctorID)
	if err := errors.Join(perr, derr); err != nil {
		graphsync.Report(ctx, graphsync.OpUpsertEdge, c.ID.Hex(), err)
	} else {
		graphsync.Report(ctx, graphsync.OpUpsertEdge, c.ID.Hex(), s.sync.UpsertConsultationEdge(ctx, c, patient, doctor))
	}

	zerolog.Ctx(ctx).Info().Str("consultation_id", id).Str("updated_by", principal.UserID).Msg("consultation updated")
	return view(c, patient, doctor), nil
}

// Delete removes the document first, then the edge. A missing edge is only logged.
func (s *Service) Delete(ctx context.Context, principal *model.Principal, id string) error {
	if !principal.IsAdmin() {
		return apperrors.Forbidden("only administrators can delete consultations")
	}
	oid, err := service.ParseID(resource, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return service.StoreError(resource, err)
	}
	graphsync.Report(ctx, graphsync.OpDeleteEdge, id, s.sync.DeleteConsultationEdge(ctx, id))

	zerolog.Ctx(ctx).Info().Str("consultation_id", id).Msg("consultation deleted")
	return nil
}

func (s *Service) Stats(ctx context.Context) (*model.ConsultationStats, error) {
	total, err := s.repo.Count(ctx, model.ConsultationFilter{})
	if err != nil {
		return nil, service.StoreError(resource, err)
	}
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, service.StoreError(resource, err)
	}
	byDoctor, err := s.repo.CountByDoctor(ctx)
	if err != nil {
		return nil, service.StoreError(resource, err)
	}

	for _, st := range model.ConsultationStatuses {
		if _, ok := byStatus[st]; !ok {
			byStatus[st] = 0
		}
	}
	for i := range byDoctor {
		if doctor, err := s.doctors.Get(ctx, byDoctor[i].DoctorID); err == nil {
			byDoctor[i].DoctorName = doctor.Name
		}
	}

	return &model.ConsultationStats{Total: total, ByStatus: byStatus, ByDoctor: byDoctor}, nil
}

// views resolves patient and doctor summaries, looking each profile up once.
func (s *Service) views(ctx context.Context, items []*model.Consultation) []*model.ConsultationView {
	patients := make(map[primitive.ObjectID]*model.Patient)
	doctors := make(map[primitive.ObjectID]*model.Doctor)

	out := make([]*model.ConsultationView, 0, len(items))
	for _, c := range items {
		p, ok := patients[c.PatientID]
		if !ok {
			p, _ = s.patients.Get(ctx, c.PatientID)
			patients[c.PatientID] = p
		}
		d, ok := doctors[c.DoctorID]
		if !ok {
			d, _ = s.doctors.Get(ctx, c.DoctorID)
			doctors[c.DoctorID] = d
		}
		out = append(out, view(c, p, d))
	}
	return out
}

func view(c *model.Consultation, p *model.Patient, d *model.Doctor) *model.ConsultationView {
	v := &model.ConsultationView{Consultation: c}
	if p != nil {
		v.Patient = &model.PartySummary{ID: p.ID, Name: p.Name, Email: p.Email}
	}
	if d != nil {
		v.Doctor = &model.PartySummary{ID: d.ID, Name: d.Name, Email: d.Email}
	}
	return v
}
