package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"portfolio-backend/internal/domain"

	"github.com/go-playground/validator/v10"
)

// FieldMessages maps a json field name and a failed tag to the message shown next to the form input
var FieldMessages = map[string]map[string]string{
	domain.FieldName: {
		"min": "Name must be at least 2 characters",
		"max": "Name too long",
	},
	domain.FieldEmail: {
		"required":      "Invalid email address",
		"email":         "Invalid email address",
		"contact_email": "Invalid email address",
	},
	domain.FieldSubject: {
		"min": "Subject must be at least 5 characters",
		"max": "Subject too long",
	},
	domain.FieldMessage: {
		"min": "Message must be at least 10 characters",
		"max": "Message too long",
	},
	domain.FieldChallengeToken: {
		"required": "Captcha verification required",
	},
}

// ContactValidator validates contact form submissions with go-playground/validator
type ContactValidator struct {
	validate *validator.Validate
}

// NewContactValidator builds a validator that reports fields by their json names
func NewContactValidator(v *validator.Validate) *ContactValidator {
	if v == nil {
		v = validator.New()
	}
	RegisterValidators(v)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &ContactValidator{validate: v}
}

// Validate checks the trimmed values of req and returns every violated field, in form order.
// req itself is not modified.
func (cv *ContactValidator) Validate(req *domain.ContactRequest) []domain.FieldError {
	trimmed := Normalize(req)
	err := cv.validate.Struct(trimmed)
	if err == nil {
		return nil
	}
	return FormatValidationErrors(err)
}

// Normalize returns a copy of req with surrounding whitespace removed and the
// widget's token alias folded into ChallengeToken.
func Normalize(req *domain.ContactRequest) *domain.ContactRequest {
	out := &domain.ContactRequest{
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		Subject:        strings.TrimSpace(req.Subject),
		Message:        strings.TrimSpace(req.Message),
		ChallengeToken: strings.TrimSpace(req.ChallengeToken),
	}
	if out.ChallengeToken == "" {
		out.ChallengeToken = strings.TrimSpace(req.TurnstileToken)
	}
	return out
}

// FormatValidationErrors converts validator.ValidationErrors to field errors
func FormatValidationErrors(err error) []domain.FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		// Not a validation error, return generic message
		return []domain.FieldError{{Field: domain.FieldBody, Message: err.Error()}}
	}

	fieldErrors := make([]domain.FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fieldErrors = append(fieldErrors, domain.FieldError{
			Field:   e.Field(),
			Message: formatSingleError(e),
		})
	}
	return fieldErrors
}

// formatSingleError formats a single validation error to a user-friendly message
func formatSingleError(e validator.FieldError) string {
	if msgs, ok := FieldMessages[e.Field()]; ok {
		if msg, ok := msgs[e.Tag()]; ok {
			return msg
		}
	}

	label := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, e.Param())
	case "email", "contact_email":
		return fmt.Sprintf("%s must be a valid email address", label)
	default:
		// Fallback for unknown tags
		return fmt.Sprintf("%s failed validation (%s)", label, e.Tag())
	}
}
