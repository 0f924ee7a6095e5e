package hosting

import (
	"errors"
	"fmt"
)

const (
	repositoryExistsMessageConstant   = "repository already exists"
	repositoryNotFoundMessageConstant = "repository doesn't exist"
	userNotFoundMessageConstant       = "user doesn't exist"
	entityErrorTemplateConstant       = "%s: %w"
)

// Sentinel errors for existence checks. Wrapped with the entity name at call sites.
var (
	ErrRepositoryExists   = errors.New(repositoryExistsMessageConstant)
	ErrRepositoryNotFound = errors.New(repositoryNotFoundMessageConstant)
	ErrUserNotFound       = errors.New(userNotFoundMessageConstant)
)

// ValidationError reports rejected input before any external store was touched.
type ValidationError struct {
	Message string
}

// Error describes the validation failure.
func (validationError ValidationError) Error() string {
	return validationError.Message
}

// NewValidationError builds a ValidationError from a message.
func NewValidationError(message string) ValidationError {
	return ValidationError{Message: message}
}

// EntityError annotates a sentinel error with the entity it concerns.
func EntityError(sentinel error, entityName string) error {
	return fmt.Errorf(entityErrorTemplateConstant, entityName, sentinel)
}
