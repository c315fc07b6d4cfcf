package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/resumind/internal/analysis"
	"github.com/jonathan/resumind/internal/docstore"
	"github.com/jonathan/resumind/internal/pdf"
	"github.com/jonathan/resumind/internal/resumes"
	"github.com/jonathan/resumind/internal/schemas"
	"github.com/jonathan/resumind/internal/storage"
	"github.com/jonathan/resumind/internal/users"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"email exists", &users.ErrEmailAlreadyExists{Email: "a@b.co"}, http.StatusConflict},
		{"invalid credentials", &users.ErrInvalidCredentials{}, http.StatusUnauthorized},
		{"password mismatch", &users.ErrPasswordMismatch{}, http.StatusUnauthorized},
		{"user not found", &users.ErrUserNotFound{UserID: uuid.New()}, http.StatusNotFound},
		{"validation", &ErrValidation{Field: "email", Message: "is invalid"}, http.StatusBadRequest},
		{"schema", &schemas.ValidationError{}, http.StatusBadRequest},
		{"invalid document", fmt.Errorf("%w: missing resumeId", docstore.ErrInvalidInput), http.StatusBadRequest},
		{"invalid path", storage.ErrInvalidPath, http.StatusBadRequest},
		{"resume not found", fmt.Errorf("get: %w", resumes.ErrNotFound), http.StatusNotFound},
		{"file not found", storage.ErrNotFound, http.StatusNotFound},
		{"not deleted", resumes.ErrNotDeleted, http.StatusConflict},
		{"not pdf", &analysis.StepError{Step: analysis.StepUpload, Message: analysis.MsgUploadFailed, Cause: pdf.ErrNotPDF}, http.StatusUnsupportedMediaType},
		{"analyze step", &analysis.StepError{Step: analysis.StepAnalyze, Message: analysis.MsgAnalyzeFailed}, http.StatusBadGateway},
		{"convert step", &analysis.StepError{Step: analysis.StepConvert, Message: analysis.MsgNoImage}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("dial tcp: connection refused")))
	assert.Equal(t, analysis.MsgNoImage, PublicMessage(&analysis.StepError{
		Step: analysis.StepConvert, Message: analysis.MsgNoImage, Cause: errors.New("pdftoppm exited 1"),
	}))
	assert.Equal(t, "user not found: "+uuid.Nil.String(), PublicMessage(&users.ErrUserNotFound{UserID: uuid.Nil}))
}
