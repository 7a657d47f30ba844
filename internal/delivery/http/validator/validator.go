// Package validator adapts go-playground/validator to echo's Validator hook.
package validator

import (
	validatorlib "github.com/go-playground/validator/v10"

	domainerrors "sitewatch/internal/domain/errors"
)

type echoValidator struct {
	validate *validatorlib.Validate
}

// New creates the validator used for request payload structs.
func New() *echoValidator {
	return &echoValidator{validate: validatorlib.New()}
}

// Validate implements echo.Validator.
func (v *echoValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	return nil
}
