package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/cabinet-api/internal/model"
)

// RegisterValidators installs the domain tags on gin's validator and reports fields
// by their json names.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	custom := map[string]validator.Func{
		"consultation_status": func(fl validator.FieldLevel) bool {
			return model.ConsultationStatus(fl.Field().String()).Valid()
		},
		"role": func(fl validator.FieldLevel) bool {
			return model.Role(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

var validationMessages = map[string]string{
	"required":            "is required",
	"email":               "must be a valid email address",
	"min":                 "is too short",
	"consultation_status": "must be one of pending, completed, cancelled",
	"role":                "must be one of admin, doctor, patient",
}

// ValidationMessage renders validator errors as "field message" pairs.
func ValidationMessage(err error) (string, bool) {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		msg, ok := validationMessages[e.Tag()]
		if !ok {
			msg = "is invalid"
		}
		parts = append(parts, e.Field()+" "+msg)
	}
	return strings.Join(parts, "; "), true
}
