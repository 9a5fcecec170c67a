package mongodb

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
)

func TestConsultationQuery(t *testing.T) {
	assert.Equal(t, bson.M{}, consultationQuery(model.ConsultationFilter{}))

	doctorID := primitive.NewObjectID()
	got := consultationQuery(model.ConsultationFilter{DoctorID: doctorID, Status: model.StatusCompleted})
	assert.Equal(t, bson.M{"doctor_id": doctorID, "status": model.StatusCompleted}, got)

	from := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	got = consultationQuery(model.ConsultationFilter{DoctorID: doctorID, DateFrom: from, Ascending: true})
	assert.Equal(t, bson.M{"doctor_id": doctorID, "date": bson.M{"$gte": from}}, got)
}

func TestUserQuery(t *testing.T) {
	assert.Equal(t, bson.M{}, userQuery(model.UserFilter{Query: "  "}))

	got := userQuery(model.UserFilter{Role: model.RoleDoctor, Query: " a.b+ "})
	pattern := primitive.Regex{Pattern: `a\.b\+`, Options: "i"}
	assert.Equal(t, bson.M{
		"role": model.RoleDoctor,
		"$or": bson.A{
			bson.M{"email": pattern},
			bson.M{"first_name": pattern},
			bson.M{"last_name": pattern},
		},
	}, got)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(mongo.ErrNoDocuments), repository.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, mapError(dup), repository.ErrDuplicate)

	other := errors.New("socket closed")
	assert.Equal(t, other, mapError(other))
}

func TestUserDocumentShape(t *testing.T) {
	u := model.User{
		Base:         model.Base{ID: primitive.NewObjectID()},
		Email:        "a@b.c",
		PasswordHash: "pbkdf2:sha256:1$s$h",
		Role:         model.RoleDoctor,
	}

	raw, err := bson.Marshal(u)
	assert.NoError(t, err)

	var doc bson.M
	assert.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, u.ID, doc["_id"])
	assert.Equal(t, "pbkdf2:sha256:1$s$h", doc["password_hash"])
	assert.Equal(t, "doctor", doc["role"])
	assert.NotContains(t, doc, "last_login")
}
