// Package service holds helpers shared by the entity services.
package service

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
	apperrors "github.com/jwalitptl/cabinet-api/pkg/errors"
)

// ParseID decodes an identifier taken from a path. A malformed id names no record,
// so it is reported as NotFound.
func ParseID(resource, id string) (primitive.ObjectID, error) {
	oid, err := model.ParseID(id)
	if err != nil {
		return primitive.NilObjectID, apperrors.NotFound(resource, err)
	}
	return oid, nil
}

// StoreError maps repository failures onto application errors.
func StoreError(resource string, err error) error {
	var appErr *apperrors.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(resource, err)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.Conflict(resource+" already exists", err)
	default:
		return apperrors.Internal(err)
	}
}
