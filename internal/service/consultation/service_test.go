package consultation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
	"github.com/jwalitptl/cabinet-api/internal/repository/memory"
	"github.com/jwalitptl/cabinet-api/internal/service/graphsync"
	apperrors "github.com/jwalitptl/cabinet-api/pkg/errors"
)

var admin = &model.Principal{UserID: primitive.NewObjectID().Hex(), Role: model.RoleAdmin}

type fixture struct {
	svc           *Service
	consultations *memory.ConsultationRepository
	patients      *memory.PatientRepository
	doctors       *memory.DoctorRepository
	graph         *memory.GraphRepository

	patient         *model.Patient
	doctor          *model.Doctor
	patientUser     *model.Principal
	doctorUser      *model.Principal
	otherDoctor     *model.Doctor
	otherDoctorUser *model.Principal
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		consultations: memory.NewConsultationRepository(),
		patients:      memory.NewPatientRepository(),
		doctors:       memory.NewDoctorRepository(),
		graph:         memory.NewGraphRepository(),
	}
	f.svc = NewService(f.consultations, f.patients, f.doctors, graphsync.NewBridge(f.graph))

	f.patientUser = &model.Principal{UserID: primitive.NewObjectID().Hex(), Role: model.RolePatient}
	f.doctorUser = &model.Principal{UserID: primitive.NewObjectID().Hex(), Role: model.RoleDoctor}
	f.otherDoctorUser = &model.Principal{UserID: primitive.NewObjectID().Hex(), Role: model.RoleDoctor}

	f.patient = &model.Patient{UserID: mustID(t, f.patientUser.UserID), Name: "Ann Patient", Email: "ann@x.com"}
	f.doctor = &model.Doctor{UserID: mustID(t, f.doctorUser.UserID), Name: "Dr Dee", Email: "d@x.com", Speciality: "Cardiology"}
	f.otherDoctor = &model.Doctor{UserID: mustID(t, f.otherDoctorUser.UserID), Name: "Dr Oz", Speciality: "GP"}
	require.NoError(t, f.patients.Create(ctx, f.patient))
	require.NoError(t, f.doctors.Create(ctx, f.doctor))
	require.NoError(t, f.doctors.Create(ctx, f.otherDoctor))
	return f
}

func mustID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}

func (f *fixture) create(t *testing.T, req *model.CreateConsultationRequest) *model.ConsultationView {
	t.Helper()
	v, err := f.svc.Create(context.Background(), admin, req)
	require.NoError(t, err)
	return v
}

func TestCreateDefaultsAndSyncsEdge(t *testing.T) {
	f := setup(t)
	v := f.create(t, &model.CreateConsultationRequest{
		PatientID: f.patient.ID.Hex(),
		DoctorID:  f.doctor.ID.Hex(),
		Motif:     "chest pain",
	})

	assert.Equal(t, model.StatusPending, v.Status)
	assert.Equal(t, admin.UserID, v.CreatedBy)
	assert.Equal(t, "Ann Patient", v.Patient.Name)
	assert.Equal(t, "Dr Dee", v.Doctor.Name)

	edge, err := f.graph.GetConsultationEdge(context.Background(), v.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "pending", edge.Status)
	assert.Equal(t, f.patient.ID.Hex(), edge.PatientID)
}

func TestStatusScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.create(t, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), DoctorID: f.doctor.ID.Hex(), Motif: "follow-up"})

	completed := model.StatusCompleted
	_, err := f.svc.Update(ctx, f.doctorUser, v.ID.Hex(), &model.UpdateConsultationRequest{Status: &completed})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.patientUser, v.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, f.doctorUser.UserID, got.UpdatedBy)

	edge, err := f.graph.GetConsultationEdge(ctx, v.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "completed", edge.Status)
}

func TestCreateRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.patientUser, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), Motif: "x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	assert.Equal(t, 0, f.consultations.Calls("Create"))

	_, err = f.svc.Create(ctx, f.doctorUser, &model.CreateConsultationRequest{
		PatientID: f.patient.ID.Hex(), DoctorID: f.otherDoctor.ID.Hex(), Motif: "x",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	v, err := f.svc.Create(ctx, f.doctorUser, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), Motif: "x"})
	require.NoError(t, err)
	assert.Equal(t, f.doctor.ID, v.DoctorID)

	_, err = f.svc.Create(ctx, admin, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), Motif: "x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = f.svc.Create(ctx, admin, &model.CreateConsultationRequest{
		PatientID: primitive.NewObjectID().Hex(), DoctorID: f.doctor.ID.Hex(), Motif: "x",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestListPagination(t *testing.T) {
	f := setup(t)
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		date := base.Add(time.Duration(i) * time.Hour)
		f.create(t, &model.CreateConsultationRequest{
			PatientID: f.patient.ID.Hex(), DoctorID: f.doctor.ID.Hex(), Motif: "visit", Date: &date,
		})
	}

	page, total, err := f.svc.List(context.Background(), admin, "", repository.ListOptions{Skip: 10, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 25, total)
	require.Len(t, page, 10)
	// Newest first: records 11-20 are hours 14 down to 5.
	assert.Equal(t, base.Add(14*time.Hour), page[0].Date)
	assert.Equal(t, base.Add(5*time.Hour), page[9].Date)
}

func TestListScoping(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.create(t, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), DoctorID: f.doctor.ID.Hex(), Motif: "a"})
	f.create(t, &model.CreateConsultationRequest{
		PatientID: f.patient.ID.Hex(), DoctorID: f.otherDoctor.ID.Hex(), Motif: "b", Status: model.StatusCancelled,
	})

	_, total, err := f.svc.List(ctx, f.doctorUser, "", repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, total, err = f.svc.List(ctx, f.patientUser, model.StatusCancelled, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total, "patients cannot narrow by status")

	items, total, err := f.svc.List(ctx, admin, model.StatusCancelled, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "b", items[0].Motif)
}

func TestGetOwnership(t *testing.T) {
	f := setup(t)
	v := f.create(t, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), DoctorID: f.doctor.ID.Hex(), Motif: "a"})

	_, err := f.svc.Get(context.Background(), f.otherDoctorUser, v.ID.Hex())
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	_, err = f.svc.Update(context.Background(), f.otherDoctorUser, v.ID.Hex(), &model.UpdateConsultationRequest{})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestUpdateRejectsEmptyChange(t *testing.T) {
	f := setup(t)
	v := f.create(t, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), DoctorID: f.doctor.ID.Hex(), Motif: "a"})

	_, err := f.svc.Update(context.Background(), admin, v.ID.Hex(), &model.UpdateConsultationRequest{
		ImmutableFields: model.ImmutableFields{ID: "ignored"},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, 0, f.consultations.Calls("Update"))
}

func TestSyncFailureIsSwallowed(t *testing.T) {
	f := setup(t)
	f.graph.Fail("CreateConsultationEdge", errors.New("neo4j unavailable"))

	v, err := f.svc.Create(context.Background(), admin, &model.CreateConsultationRequest{
		PatientID: f.patient.ID.Hex(), DoctorID: f.doctor.ID.Hex(), Motif: "a",
	})
	require.NoError(t, err)

	stored, err := f.consultations.Get(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", stored.Motif)

	_, _, edges := f.graph.Counts()
	assert.Equal(t, 0, edges)
}

func TestDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.create(t, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), DoctorID: f.doctor.ID.Hex(), Motif: "a"})

	err := f.svc.Delete(ctx, f.doctorUser, v.ID.Hex())
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	require.NoError(t, f.svc.Delete(ctx, admin, v.ID.Hex()))
	_, err = f.graph.GetConsultationEdge(ctx, v.ID.Hex())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = f.svc.Delete(ctx, admin, v.ID.Hex())
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteWithMissingEdgeSucceeds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v := f.create(t, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), DoctorID: f.doctor.ID.Hex(), Motif: "a"})
	_, err := f.graph.DeleteConsultationEdge(ctx, v.ID.Hex())
	require.NoError(t, err)

	assert.NoError(t, f.svc.Delete(ctx, admin, v.ID.Hex()))
}

func TestStats(t *testing.T) {
	f := setup(t)
	f.create(t, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), DoctorID: f.doctor.ID.Hex(), Motif: "a"})
	f.create(t, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), DoctorID: f.doctor.ID.Hex(), Motif: "b", Status: model.StatusCompleted})
	f.create(t, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), DoctorID: f.otherDoctor.ID.Hex(), Motif: "c"})

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 2, stats.ByStatus[model.StatusPending])
	assert.EqualValues(t, 1, stats.ByStatus[model.StatusCompleted])
	assert.EqualValues(t, 0, stats.ByStatus[model.StatusCancelled])
	require.Len(t, stats.ByDoctor, 2)
	assert.Equal(t, "Dr Dee", stats.ByDoctor[0].DoctorName)
	assert.EqualValues(t, 2, stats.ByDoctor[0].Count)
}

func TestHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.create(t, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), DoctorID: f.doctor.ID.Hex(), Motif: "mine"})
	f.create(t, &model.CreateConsultationRequest{PatientID: f.patient.ID.Hex(), DoctorID: f.otherDoctor.ID.Hex(), Motif: "theirs"})

	items, total, err := f.svc.History(ctx, f.doctorUser, f.patient.ID.Hex(), repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "mine", items[0].Motif)

	_, _, err = f.svc.History(ctx, f.patientUser, f.patient.ID.Hex(), repository.ListOptions{Limit: 10})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestSchedule(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.svc.now = func() time.Time { return time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC) }

	at := func(day, hour int) *time.Time {
		d := time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
		return &d
	}
	for _, req := range []*model.CreateConsultationRequest{
		{Motif: "yesterday", Date: at(9, 10)},
		{Motif: "next week", Date: at(17, 9)},
		{Motif: "this morning", Date: at(10, 8)},
		{Motif: "tomorrow", Date: at(11, 14)},
	} {
		req.PatientID, req.DoctorID = f.patient.ID.Hex(), f.doctor.ID.Hex()
		f.create(t, req)
	}
	f.create(t, &model.CreateConsultationRequest{
		PatientID: f.patient.ID.Hex(), DoctorID: f.otherDoctor.ID.Hex(), Motif: "other doctor", Date: at(12, 9),
	})

	items, total, err := f.svc.Schedule(ctx, f.doctorUser, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 3)
	assert.Equal(t, "this morning", items[0].Motif)
	assert.Equal(t, "tomorrow", items[1].Motif)
	assert.Equal(t, "next week", items[2].Motif)
	require.NotNil(t, items[0].Patient)
	assert.Equal(t, "Ann Patient", items[0].Patient.Name)
	assert.Equal(t, "ann@x.com", items[0].Patient.Email)

	page, _, err := f.svc.Schedule(ctx, f.doctorUser, repository.ListOptions{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "tomorrow", page[0].Motif)

	_, _, err = f.svc.Schedule(ctx, f.patientUser, repository.ListOptions{Limit: 10})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	_, _, err = f.svc.Schedule(ctx, admin, repository.ListOptions{Limit: 10})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}
