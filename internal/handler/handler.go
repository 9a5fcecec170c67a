// Package handler holds the helpers shared by the HTTP handlers.
package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cabinet-api/internal/middleware"
	"github.com/jwalitptl/cabinet-api/internal/model"
	"github.com/jwalitptl/cabinet-api/internal/repository"
	"github.com/jwalitptl/cabinet-api/pkg/errors"
	"github.com/jwalitptl/cabinet-api/pkg/httputil"
)

// Bind decodes a JSON body into obj. Unknown fields, malformed JSON and failed
// binding rules all come back as validation errors.
func Bind(c *gin.Context, obj interface{}) error {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}

	if msg, ok := middleware.ValidationMessage(err); ok {
		return errors.Validation(msg, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.Is(err, io.EOF):
		return errors.Validation("request body is required", err)
	case stderrors.As(err, &syntaxErr):
		return errors.Validation("request body is not valid JSON", err)
	case stderrors.As(err, &typeErr):
		return errors.Validation(typeErr.Field+" has the wrong type", err)
	default:
		return errors.Validation(err.Error(), err)
	}
}

// ListOptions converts a page request into store pagination.
func ListOptions(p httputil.Page) repository.ListOptions {
	return repository.ListOptions{Skip: p.Skip(), Limit: int64(p.PerPage)}
}

// Principal returns the authenticated caller. Routes using it sit behind middleware.Require.
func Principal(c *gin.Context) *model.Principal {
	return middleware.GetPrincipal(c)
}
