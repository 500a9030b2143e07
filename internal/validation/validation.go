package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"kawourelay/internal/errors"
	"kawourelay/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// contactNamePattern allows letters (including accented), spaces,
// apostrophes and hyphens.
var contactNamePattern = regexp.MustCompile(`^[a-zA-ZÀ-ÿ\s'-]+$`)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report wire field names, not Go field names, in validation details.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Errors here can only come from registering a blank tag name.
	if err := validate.RegisterValidation("contactname", func(fl validator.FieldLevel) bool {
		return contactNamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// FieldError describes one failed validation constraint, returned to the
// caller in the 400 response details.
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
}

// ValidateEnvelope checks a received envelope against the wire contract,
// including the type/media invariant. Returns the field-level details for
// the 400 response body.
func ValidateEnvelope(env *models.Envelope) ([]FieldError, error) {
	if err := validate.Struct(env); err != nil {
		return fieldErrors(err), errors.New(errors.ErrCodeValidationFailed, "envelope failed validation")
	}

	if (env.Type == models.EnvelopeTypeMedia) != (env.Media != nil) {
		details := []FieldError{{Field: "media", Constraint: "type_media_mismatch"}}
		return details, errors.New(errors.ErrCodeValidationFailed,
			fmt.Sprintf("envelope type %q does not match media presence", env.Type))
	}

	return nil, nil
}

// ValidateContactRequest checks a contact-form submission.
func ValidateContactRequest(req *models.ContactRequest) ([]FieldError, error) {
	if err := validate.Struct(req); err != nil {
		return fieldErrors(err), errors.New(errors.ErrCodeValidationFailed, "contact request failed validation")
	}
	return nil, nil
}

func fieldErrors(err error) []FieldError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "body", Constraint: "invalid"}}
	}

	details := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		// Strip the struct name prefix, keep the nested path.
		field := fe.Namespace()
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		details = append(details, FieldError{Field: field, Constraint: fe.Tag()})
	}
	return details
}
