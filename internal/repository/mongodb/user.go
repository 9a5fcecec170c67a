package mongodb

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
)

type userRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{coll: db.collection(usersCollection)}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = model.NormalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	return insert(ctx, r.coll, "users.create", user)
}

func (r *userRepository) Get(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return findOne[model.User](ctx, r.coll, "users.get", bson.M{"_id": id})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, r.coll, "users.get_by_email", bson.M{"email": model.NormalizeEmail(email)})
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	user.Email = model.NormalizeEmail(user.Email)
	user.UpdatedAt = time.Now().UTC()
	return replaceByID(ctx, r.coll, "users.update", user.ID, user)
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	start := time.Now()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login": at.UTC()}})
	err = mapError(err)
	if err == nil && res.MatchedCount == 0 {
		err = repository.ErrNotFound
	}
	observe("users.update_last_login", start, err)
	return err
}

func (r *userRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, "users.delete", id)
}

func (r *userRepository) List(ctx context.Context, filter model.UserFilter, opts repository.ListOptions) ([]*model.User, int64, error) {
	return findPage[model.User](ctx, r.coll, "users.list", userQuery(filter), bson.D{{Key: "created_at", Value: -1}}, opts)
}

// userQuery treats Query as literal text, never as a client-supplied pattern.
func userQuery(filter model.UserFilter) bson.M {
	query := bson.M{}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"email": pattern},
			bson.M{"first_name": pattern},
			bson.M{"last_name": pattern},
		}
	}
	return query
}
