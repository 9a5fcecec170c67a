package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
)

type consultationRepository struct {
	coll *mongo.Collection
}

func NewConsultationRepository(db *DB) repository.ConsultationRepository {
	return &consultationRepository{coll: db.collection(consultationsCollection)}
}

func (r *consultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	now := time.Now().UTC()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return insert(ctx, r.coll, "consultations.create", c)
}

func (r *consultationRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.Consultation, error) {
	return findOne[model.Consultation](ctx, r.coll, "consultations.get", bson.M{"_id": id})
}

func (r *consultationRepository) Update(ctx context.Context, c *model.Consultation) error {
	c.UpdatedAt = time.Now().UTC()
	return replaceByID(ctx, r.coll, "consultations.update", c.ID, c)
}

func (r *consultationRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, "consultations.delete", id)
}

func (r *consultationRepository) List(ctx context.Context, filter model.ConsultationFilter, opts repository.ListOptions) ([]*model.Consultation, int64, error) {
	order := -1
	if filter.Ascending {
		order = 1
	}
	sort := bson.D{{Key: "date", Value: order}, {Key: "_id", Value: order}}
	return findPage[model.Consultation](ctx, r.coll, "consultations.list", consultationQuery(filter), sort, opts)
}

func (r *consultationRepository) Count(ctx context.Context, filter model.ConsultationFilter) (int64, error) {
	return count(ctx, r.coll, "consultations.count", consultationQuery(filter))
}

func (r *consultationRepository) CountByStatus(ctx context.Context) (map[model.ConsultationStatus]int64, error) {
	start := time.Now()
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	var rows []struct {
		Status model.ConsultationStatus `bson:"_id"`
		Count  int64                    `bson:"count"`
	}
	err := r.aggregate(ctx, pipeline, &rows)
	observe("consultations.count_by_status", start, err)
	if err != nil {
		return nil, err
	}

	counts := make(map[model.ConsultationStatus]int64, len(model.ConsultationStatuses))
	for _, s := range model.ConsultationStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *consultationRepository) CountByDoctor(ctx context.Context) ([]model.DoctorConsultationCount, error) {
	start := time.Now()
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$doctor_id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	rows := make([]model.DoctorConsultationCount, 0)
	err := r.aggregate(ctx, pipeline, &rows)
	observe("consultations.count_by_doctor", start, err)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *consultationRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("failed to aggregate consultations: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode aggregation: %w", err)
	}
	return nil
}

func consultationQuery(filter model.ConsultationFilter) bson.M {
	query := bson.M{}
	if !filter.PatientID.IsZero() {
		query["patient_id"] = filter.PatientID
	}
	if !filter.DoctorID.IsZero() {
		query["doctor_id"] = filter.DoctorID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if !filter.DateFrom.IsZero() {
		query["date"] = bson.M{"$gte": filter.DateFrom}
	}
	return query
}
