package middleware

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/factorline/backend/internal/interfaces/http/dto"
)

// identityHexLength is the encoded length of identities and addresses
const identityHexLength = 64

// SetupValidator registers custom validators and JSON tag names on gin's
// binding validator. Call once at startup.
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine type %T", binding.Validator.Engine())
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("uri"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	return v.RegisterValidation("identity", validateIdentity)
}

// validateIdentity accepts 64-character lowercase hex strings, the wire
// form of identities, addresses and mints.
func validateIdentity(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != identityHexLength {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// FormatValidationErrors converts validator errors into field-level details
func FormatValidationErrors(err error) []dto.ValidationDetail {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []dto.ValidationDetail{{Field: "request", Message: err.Error()}}
	}

	details := make([]dto.ValidationDetail, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, dto.ValidationDetail{
			Field:   fieldErr.Field(),
			Message: validationMessage(fieldErr),
		})
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "identity":
		return fmt.Sprintf("%s must be a 64-character lowercase hex string", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
