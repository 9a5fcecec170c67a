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

type doctorRepository struct {
	coll *mongo.Collection
}

func NewDoctorRepository(db *DB) repository.DoctorRepository {
	return &doctorRepository{coll: db.collection(doctorsCollection)}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	now := time.Now().UTC()
	if doctor.ID.IsZero() {
		doctor.ID = primitive.NewObjectID()
	}
	doctor.CreatedAt = now
	doctor.UpdatedAt = now
	return insert(ctx, r.coll, "doctors.create", doctor)
}

func (r *doctorRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.Doctor, error) {
	return findOne[model.Doctor](ctx, r.coll, "doctors.get", bson.M{"_id": id})
}

func (r *doctorRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*model.Doctor, error) {
	return findOne[model.Doctor](ctx, r.coll, "doctors.get_by_user", bson.M{"user_id": userID})
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	doctor.UpdatedAt = time.Now().UTC()
	return replaceByID(ctx, r.coll, "doctors.update", doctor.ID, doctor)
}

func (r *doctorRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, "doctors.delete", id)
}

func (r *doctorRepository) List(ctx context.Context, opts repository.ListOptions) ([]*model.Doctor, int64, error) {
	return findPage[model.Doctor](ctx, r.coll, "doctors.list", bson.M{}, bson.D{{Key: "name", Value: 1}}, opts)
}

func (r *doctorRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.coll, "doctors.count", bson.M{})
}
