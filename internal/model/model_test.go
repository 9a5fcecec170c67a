package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func strptr(s string) *string { return &s }

func TestConsultationStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, ConsultationStatus("archived").Valid())
	assert.False(t, ConsultationStatus("").Valid())
}

func TestUpdateConsultationApply(t *testing.T) {
	c := &Consultation{Motif: "checkup", Notes: "first", Status: StatusPending}
	completed := StatusCompleted

	req := &UpdateConsultationRequest{Status: &completed, Notes: strptr("")}
	assert.True(t, req.Apply(c))
	assert.Equal(t, StatusCompleted, c.Status)
	assert.Equal(t, "checkup", c.Motif)
	assert.Equal(t, "", c.Notes)

	assert.False(t, (&UpdateConsultationRequest{}).Apply(c))
}

func TestUpdateRequestDropsIdentityFields(t *testing.T) {
	var req UpdatePatientRequest
	body := `{"id":"abc","user_id":"def","role":"admin","phone":"0600"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	p := &Patient{Base: Base{ID: primitive.NewObjectID()}, Name: "Ana"}
	id := p.ID
	assert.True(t, req.Apply(p))
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "0600", p.Phone)
	assert.Equal(t, "Ana", p.Name)
}

func TestConsultationEdgeChanged(t *testing.T) {
	c := &Consultation{
		Base:      Base{ID: primitive.NewObjectID()},
		PatientID: primitive.NewObjectID(),
		DoctorID:  primitive.NewObjectID(),
		Date:      time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Motif:     "fever",
		Status:    StatusPending,
	}
	before := NewConsultationEdge(c)
	assert.Equal(t, "2024-03-01T09:30:00Z", before.Date)

	c.Status = StatusCompleted
	after := NewConsultationEdge(c)

	assert.Equal(t, map[string]interface{}{EdgeStatus: "completed"}, before.Changed(after))
	assert.Empty(t, after.Changed(after))
}

func TestRegisterDisplayName(t *testing.T) {
	r := &RegisterRequest{FirstName: "Amina", LastName: "Diallo"}
	assert.Equal(t, "Amina Diallo", r.DisplayName())
	r.Name = "Dr. Diallo"
	assert.Equal(t, "Dr. Diallo", r.DisplayName())
	assert.Equal(t, "bob@x.com", NormalizeEmail("  Bob@X.com "))
}

func TestParseID(t *testing.T) {
	id := primitive.NewObjectID()
	parsed, err := ParseID(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID("nope")
	assert.ErrorIs(t, err, ErrInvalidID)
}
