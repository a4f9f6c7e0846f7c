// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidState      = errors.New("invalid state")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrUnavailable       = errors.New("service unavailable")
)

type serviceError struct {
	kind error
	msg  string
}

func (e *serviceError) Error() string { return e.msg }
func (e *serviceError) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...interface{}) error {
	return &serviceError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// StockError names the item that could not be covered and what is left of it.
type StockError struct {
	ResourceID uint
	Item       string
	Available  int
	Requested  int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.Item, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// storeError maps gorm errors onto the service taxonomy.
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return newError(ErrNotFound, "%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return newError(ErrConflict, "%s already exists", what)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return newError(ErrValidation, "%s violates a constraint", what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// invalid wraps a validator error so handlers can still report field details.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
