package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resumind/internal/analysis"
	"github.com/jonathan/resumind/internal/pdf"
	"github.com/jonathan/resumind/internal/server/middleware"
	"github.com/jonathan/resumind/internal/storage"
)

// multipartOverhead is the room left for form fields next to the file itself.
const multipartOverhead = 1 << 20

// Upload form field names.
const (
	fieldFile           = "file"
	fieldCompanyName    = "company-name"
	fieldJobTitle       = "job-title"
	fieldJobDescription = "job-description"
)

// errTooLarge is returned for uploads over the configured limit.
var errTooLarge = errors.New("file is too large")

// owner returns the storage scope of the authenticated user.
func owner(r *http.Request) (uuid.UUID, string, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		return uuid.Nil, "", false
	}
	return userID, userID.String(), true
}

// readUpload parses the upload form into an analysis input. The file must be a PDF.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (analysis.Input, error) {
	var in analysis.Input
	limit := s.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return in, errTooLarge
		}
		return in, &ErrValidation{Field: fieldFile, Message: "invalid multipart form"}
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile(fieldFile)
	if err != nil {
		return in, &ErrValidation{Field: fieldFile, Message: "is required"}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return in, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return in, errTooLarge
	}
	if len(data) == 0 {
		return in, &ErrValidation{Field: fieldFile, Message: "is empty"}
	}
	if mime := mimetype.Detect(data); !mime.Is(pdf.MIMEType) {
		return in, fmt.Errorf("%w: detected %s", pdf.ErrNotPDF, mime.String())
	}

	savedBy := userID.String()
	return analysis.Input{
		CompanyName:    strings.TrimSpace(r.FormValue(fieldCompanyName)),
		JobTitle:       strings.TrimSpace(r.FormValue(fieldJobTitle)),
		JobDescription: strings.TrimSpace(r.FormValue(fieldJobDescription)),
		FileName:       header.Filename,
		Data:           data,
		SavedBy:        &savedBy,
	}, nil
}

// uploadStatus maps a readUpload error to its status code and message.
func uploadStatus(err error) (int, string) {
	if errors.Is(err, errTooLarge) {
		return http.StatusRequestEntityTooLarge, errTooLarge.Error()
	}
	if errors.Is(err, pdf.ErrNotPDF) {
		return http.StatusUnsupportedMediaType, analysis.MsgUploadFailed
	}
	return HTTPStatus(err), PublicMessage(err)
}

// analyze runs the upload flow with the configured timeout.
func (s *Server) analyze(ctx context.Context, ownerID string, in analysis.Input, progress analysis.ProgressCallback) (*analysis.Result, error) {
	if s.cfg.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AnalyzeTimeout)
		defer cancel()
	}
	return s.analyzer.Run(ctx, ownerID, in, progress)
}

// handleCreateResume runs an analysis. With "Accept: text/event-stream" the progress is
// streamed as SSE events; otherwise the result is returned as JSON when the run ends.
func (s *Server) handleCreateResume(w http.ResponseWriter, r *http.Request) {
	userID, ownerID, ok := owner(r)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	in, err := s.readUpload(w, r, userID)
	if err != nil {
		status, msg := uploadStatus(err)
		errorResponse(w, status, msg)
		return
	}

	if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		result, err := s.analyze(r.Context(), ownerID, in, nil)
		if err != nil {
			s.logFailure(r, err)
			errorResponse(w, HTTPStatus(err), PublicMessage(err))
			return
		}
		jsonResponse(w, http.StatusCreated, result)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	progress := func(event analysis.ProgressEvent) {
		if event.Failed {
			return
		}
		sse.WriteEvent("progress", map[string]any{ //nolint:errcheck
			"step":    event.Step,
			"message": event.Message,
		})
	}
	result, err := s.analyze(r.Context(), ownerID, in, progress)
	if err != nil {
		s.logFailure(r, err)
		sse.WriteError(PublicMessage(err))
		return
	}
	sse.WriteComplete(result.Resume.ID, result.Redirect, result.Status)
}

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	_, ownerID, ok := owner(r)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	list, err := s.resumes.List(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	_, ownerID, ok := owner(r)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	resume, err := s.resumes.Get(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, resume)
}

func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	_, ownerID, ok := owner(r)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := s.resumes.Delete(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	_, ownerID, ok := owner(r)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	items, err := s.resumes.Files(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// handleWipe deletes every file and key of the caller. Partial failures answer 500 with
// the deletion counts so the client can retry.
func (s *Server) handleWipe(w http.ResponseWriter, r *http.Request) {
	_, ownerID, ok := owner(r)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	result, err := s.resumes.Wipe(r.Context(), ownerID)
	if err != nil {
		s.logFailure(r, err)
		if result == nil {
			errorResponse(w, HTTPStatus(err), PublicMessage(err))
			return
		}
		jsonResponse(w, http.StatusInternalServerError, map[string]any{
			"error":        "Failed to wipe all files",
			"filesDeleted": result.FilesDeleted,
			"failed":       result.Failed,
		})
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// handleFile serves a stored file to its owner. Other users get 404.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	_, ownerID, ok := owner(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	p := chi.URLParam(r, "*")
	if storage.Owner(p) != ownerID {
		http.NotFound(w, r)
		return
	}

	f, err := s.files.Open(p)
	if err != nil {
		if HTTPStatus(err) == http.StatusInternalServerError {
			s.logFailure(r, err)
		}
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// fail writes err as a JSON error, logging internal failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logFailure(r, err)
	}
	errorResponse(w, status, PublicMessage(err))
}

func (s *Server) logFailure(r *http.Request, err error) {
	s.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
}
