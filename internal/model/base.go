package model

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidID = errors.New("invalid identifier")

// Base contains common fields for all documents
type Base struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// ParseID decodes a hex document identifier.
func ParseID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

// ImmutableFields absorbs identity fields clients sometimes echo back in update payloads.
// They are accepted by the decoder and never applied.
type ImmutableFields struct {
	ID        interface{} `json:"id,omitempty"`
	UserID    interface{} `json:"user_id,omitempty"`
	Role      interface{} `json:"role,omitempty"`
	CreatedAt interface{} `json:"created_at,omitempty"`
	UpdatedAt interface{} `json:"updated_at,omitempty"`
}
