package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the struct validator used for request DTOs and exposes the
// business rules for embedded question sets.
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a validator with business rules registered.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	return &Validator{
		validate: validate,
		business: NewBusinessValidator(validate),
	}
}

// Validate runs struct tag validation and flattens failures into one error.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	msgs := make([]string, len(fieldErrors))
	for i, fe := range fieldErrors {
		msgs[i] = fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// Business returns the business rule validator.
func (v *Validator) Business() *BusinessValidator {
	return v.business
}
