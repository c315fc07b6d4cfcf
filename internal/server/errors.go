// Package server serves the Resumind pages and JSON API.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/resumind/internal/analysis"
	"github.com/jonathan/resumind/internal/docstore"
	"github.com/jonathan/resumind/internal/pdf"
	"github.com/jonathan/resumind/internal/resumes"
	"github.com/jonathan/resumind/internal/schemas"
	"github.com/jonathan/resumind/internal/storage"
	"github.com/jonathan/resumind/internal/users"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		emailExists   *users.ErrEmailAlreadyExists
		invalidCreds  *users.ErrInvalidCredentials
		mismatch      *users.ErrPasswordMismatch
		userNotFound  *users.ErrUserNotFound
		validation    *ErrValidation
		schemaInvalid *schemas.ValidationError
		stepErr       *analysis.StepError
	)

	switch {
	case errors.As(err, &emailExists):
		return http.StatusConflict
	case errors.As(err, &invalidCreds), errors.As(err, &mismatch):
		return http.StatusUnauthorized
	case errors.As(err, &userNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &schemaInvalid):
		return http.StatusBadRequest
	case errors.Is(err, docstore.ErrInvalidInput), errors.Is(err, storage.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, resumes.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, resumes.ErrNotDeleted):
		return http.StatusConflict
	case errors.Is(err, pdf.ErrNotPDF):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &stepErr):
		if stepErr.Step == analysis.StepAnalyze {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the error text safe to show to a client. Internal failures get a
// generic message; their detail only goes to the log.
func PublicMessage(err error) string {
	var stepErr *analysis.StepError
	if errors.As(err, &stepErr) {
		return stepErr.Message
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}
