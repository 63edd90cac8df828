package service

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/validation"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrNotInRelation      = errors.New("relation does not exist")
	ErrForbidden          = errors.New("you do not have permission to perform this action")
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// ValidationError carries field-level messages for a rejected input.
type ValidationError struct {
	Fields validation.FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.Error()
}

// NewValidationError returns a ValidationError with a single message.
func NewValidationError(field, message string) *ValidationError {
	fe := validation.FieldErrors{}
	fe.Add(field, message)
	return &ValidationError{Fields: fe}
}

// validate runs struct validation and returns a *ValidationError or nil.
func validate(v interface{}) error {
	if fe := validation.ValidateStruct(v); len(fe) > 0 {
		return &ValidationError{Fields: fe}
	}
	return nil
}

// userError is a sentinel kind with a message meant for the client.
type userError struct {
	kind error
	msg  string
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.kind }

func conflictError(msg string) error {
	return &userError{kind: ErrConflict, msg: msg}
}

func notInRelationError(msg string) error {
	return &userError{kind: ErrNotInRelation, msg: msg}
}

// isUniqueViolation reports whether err came from a unique index.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
