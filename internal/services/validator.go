package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"videotube/internal/auth"
	"videotube/internal/utils"
)

// Validator wraps the validator instance
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	// Register custom validation for email addresses
	_ = v.RegisterValidation("mailbox", validateMailbox)
	// bcrypt counts bytes, max= counts runes
	_ = v.RegisterValidation("pwbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= auth.MaxPasswordBytes
	})

	return &Validator{validate: v}
}

// Struct validates s and converts the first failure into an INVALID_INPUT error.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return utils.NewAppError(utils.ErrInvalidInput, "Invalid request format", err)
	}

	e := validationErrors[0]
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return utils.NewValidationError("All fields are required")
	case "mailbox":
		return utils.NewValidationError("Email is not valid")
	case "pwbytes":
		return utils.NewValidationError(auth.PasswordTooLongMessage)
	case "max":
		return utils.NewValidationError(fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
	case "min":
		return utils.NewValidationError(fmt.Sprintf("%s must be at least %s characters", field, e.Param()))
	default:
		return utils.NewValidationError("Invalid value for " + field)
	}
}

// validateMailbox wants exactly one '@' with something on both sides.
func validateMailbox(fl validator.FieldLevel) bool {
	email := fl.Field().String()
	if email == "" {
		return true
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" || domain == "" {
		return false
	}
	return !strings.Contains(domain, "@")
}
