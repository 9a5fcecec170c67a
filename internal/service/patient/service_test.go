package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository/memory"
	"github.com/jwalitptl/cabinet-api/internal/service/graphsync"
	apperrors "github.com/jwalitptl/cabinet-api/pkg/errors"
)

func newService() (*Service, *memory.PatientRepository, *memory.ConsultationRepository, *memory.GraphRepository) {
	patients := memory.NewPatientRepository()
	consultations := memory.NewConsultationRepository()
	graph := memory.NewGraphRepository()
	return NewService(patients, consultations, graphsync.NewBridge(graph)), patients, consultations, graph
}

func TestCreateRoundTrip(t *testing.T) {
	svc, _, _, graph := newService()
	ctx := context.Background()
	req := &model.CreatePatientRequest{Name: "Ann", Email: "ANN@x.com", Phone: "555", BirthDate: "1990-01-02"}

	created, err := svc.Create(ctx, req.Patient())
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, "ann@x.com", got.Email)
	assert.Equal(t, "1990-01-02", got.BirthDate)

	node, ok := graph.PatientNode(created.ID.Hex())
	require.True(t, ok)
	assert.Equal(t, "555", node.Phone)
}

func TestCreateSurvivesGraphOutage(t *testing.T) {
	svc, patients, _, graph := newService()
	graph.Fail("MergePatientNode", errors.New("down"))

	created, err := svc.Create(context.Background(), &model.Patient{Name: "Ann"})
	require.NoError(t, err)
	_, err = patients.Get(context.Background(), created.ID)
	assert.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	svc, _, _, graph := newService()
	ctx := context.Background()
	created, err := svc.Create(ctx, &model.Patient{Name: "Ann"})
	require.NoError(t, err)

	name := "Anna"
	updated, err := svc.Update(ctx, created.ID.Hex(), &model.UpdatePatientRequest{
		ImmutableFields: model.ImmutableFields{ID: "ffffffffffffffffffffffff"},
		Name:            &name,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	node, _ := graph.PatientNode(created.ID.Hex())
	assert.Equal(t, "Anna", node.Name)

	_, err = svc.Update(ctx, created.ID.Hex(), &model.UpdatePatientRequest{})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = svc.Update(ctx, "bogus", &model.UpdatePatientRequest{Name: &name})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteRemovesNode(t *testing.T) {
	svc, _, _, graph := newService()
	ctx := context.Background()
	created, err := svc.Create(ctx, &model.Patient{Name: "Ann"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID.Hex()))
	_, ok := graph.PatientNode(created.ID.Hex())
	assert.False(t, ok)

	err = svc.Delete(ctx, created.ID.Hex())
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestOverview(t *testing.T) {
	svc, _, consultations, _ := newService()
	ctx := context.Background()
	userID := primitive.NewObjectID()
	p, err := svc.Create(ctx, &model.Patient{UserID: userID, Name: "Ann"})
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, consultations.Create(ctx, &model.Consultation{
			PatientID: p.ID, Date: base.AddDate(0, 0, i), Motif: "m", Status: model.StatusPending,
		}))
	}

	overview, err := svc.Overview(ctx, &model.Principal{UserID: userID.Hex(), Role: model.RolePatient})
	require.NoError(t, err)
	assert.EqualValues(t, 3, overview.TotalConsultations)
	require.NotNil(t, overview.LastConsultation)
	assert.Equal(t, base.AddDate(0, 0, 2), overview.LastConsultation.Date)
}

func TestUpdateOwnKeepsEmail(t *testing.T) {
	svc, _, _, graph := newService()
	ctx := context.Background()
	userID := primitive.NewObjectID()
	p, err := svc.Create(ctx, &model.Patient{UserID: userID, Name: "Ann", Email: "ann@x.com"})
	require.NoError(t, err)
	principal := &model.Principal{UserID: userID.Hex(), Role: model.RolePatient}

	email, phone := "other@x.com", "555"
	updated, err := svc.UpdateOwn(ctx, principal, &model.UpdatePatientRequest{Email: &email, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", updated.Email)
	assert.Equal(t, "555", updated.Phone)
	node, _ := graph.PatientNode(p.ID.Hex())
	assert.Equal(t, "ann@x.com", node.Email)

	_, err = svc.UpdateOwn(ctx, principal, &model.UpdatePatientRequest{Email: &email})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	// Admin updates still change the profile email.
	updated, err = svc.Update(ctx, p.ID.Hex(), &model.UpdatePatientRequest{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "other@x.com", updated.Email)
}
