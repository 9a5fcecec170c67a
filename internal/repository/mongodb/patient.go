package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
)

type patientRepository struct {
	coll *mongo.Collection
}

func NewPatientRepository(db *DB) repository.PatientRepository {
	return &patientRepository{coll: db.collection(patientsCollection)}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	now := time.Now().UTC()
	if patient.ID.IsZero() {
		patient.ID = primitive.NewObjectID()
	}
	patient.CreatedAt = now
	patient.UpdatedAt = now
	return insert(ctx, r.coll, "patients.create", patient)
}

func (r *patientRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.Patient, error) {
	return findOne[model.Patient](ctx, r.coll, "patients.get", bson.M{"_id": id})
}

func (r *patientRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*model.Patient, error) {
	return findOne[model.Patient](ctx, r.coll, "patients.get_by_user", bson.M{"user_id": userID})
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	patient.UpdatedAt = time.Now().UTC()
	return replaceByID(ctx, r.coll, "patients.update", patient.ID, patient)
}

func (r *patientRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, "patients.delete", id)
}

func (r *patientRepository) List(ctx context.Context, opts repository.ListOptions) ([]*model.Patient, int64, error) {
	return findPage[model.Patient](ctx, r.coll, "patients.list", bson.M{}, bson.D{{Key: "name", Value: 1}}, opts)
}

func (r *patientRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.coll, "patients.count", bson.M{})
}
