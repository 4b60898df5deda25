package service

import (
	"errors"
	"fmt"

	"storefront-api/internal/domain"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	ErrAccountDeactivated = fmt.Errorf("%w: account is deactivated", domain.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("%w: token has expired", domain.ErrUnauthorized)
	ErrPasswordMismatch   = fmt.Errorf("%w: passwords do not match", domain.ErrValidation)
)

// internalError marks err as a storage or infrastructure failure unless it
// already carries one of the client-facing domain errors.
func internalError(op string, err error) error {
	for _, known := range []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrInsufficientStock,
		domain.ErrUnauthorized,
		domain.ErrForbidden,
		domain.ErrConflict,
		domain.ErrInternal,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrInternal, op, err)
}

// FieldError reports an invalid input field. It matches domain.ErrValidation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *FieldError) Is(target error) bool {
	return target == domain.ErrValidation
}
