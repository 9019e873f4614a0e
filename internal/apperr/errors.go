// Package apperr defines the application error taxonomy.
package apperr

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// IsValidation reports whether err is a per-field validation failure that a
// form should re-render, as opposed to an infrastructure fault.
func IsValidation(err error) bool {
	var verr validation.Errors
	return errors.As(err, &verr)
}

// FieldErrors flattens a validation error into field name → message.
// Returns nil for non-validation errors.
func FieldErrors(err error) map[string]string {
	var verr validation.Errors
	if !errors.As(err, &verr) {
		return nil
	}
	out := make(map[string]string, len(verr))
	for field, ferr := range verr {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}
	return out
}
