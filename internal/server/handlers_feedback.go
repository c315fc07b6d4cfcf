package server

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/jonathan/resumind/internal/docstore"
	"github.com/jonathan/resumind/internal/schemas"
	"github.com/jonathan/resumind/internal/types"
)

// maxDocumentBytes bounds feedback and review bodies.
const maxDocumentBytes = 1 << 20

// handleAddFeedback stores a feedback document. userId defaults to the caller.
func (s *Server) handleAddFeedback(w http.ResponseWriter, r *http.Request) {
	s.addDocument(w, r, func(ctx context.Context, in types.ResumeFeedbackInput) (string, error) {
		return s.docs.AddResumeFeedback(ctx, in)
	})
}

// handleAddReview stores a human review document.
func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request) {
	s.addDocument(w, r, func(ctx context.Context, in types.ResumeFeedbackInput) (string, error) {
		if in.Source == "" {
			in.Source = types.SourceHuman
		}
		return s.docs.AddResumeReview(ctx, in)
	})
}

func (s *Server) addDocument(w http.ResponseWriter, r *http.Request, add func(context.Context, types.ResumeFeedbackInput) (string, error)) {
	_, ownerID, ok := owner(r)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.docs == nil {
		errorResponse(w, http.StatusServiceUnavailable, "Document store is not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if gjson.GetBytes(body, "userId").String() == "" {
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			errorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		fields["userId"] = ownerID
		if body, err = json.Marshal(fields); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	if err := schemas.Validate(schemas.ResumeFeedbackInput, string(body)); err != nil {
		s.fail(w, r, err)
		return
	}

	var in types.ResumeFeedbackInput
	if err := json.Unmarshal(body, &in); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Metadata == nil {
		in.Metadata = &types.Metadata{}
	}
	if in.Metadata.IP == "" {
		in.Metadata.IP = extractClientID(r)
	}
	if in.Metadata.UserAgent == "" {
		in.Metadata.UserAgent = r.UserAgent()
	}
	if in.ParserVersion == "" {
		in.ParserVersion = s.cfg.ParserVersion
	}

	id, err := add(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{"id": id})
}

// handleListFeedback returns the caller's feedback documents, newest first.
func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	_, ownerID, ok := owner(r)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.docs == nil {
		errorResponse(w, http.StatusServiceUnavailable, "Document store is not configured")
		return
	}
	docs, err := s.docs.ListByUser(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, docs)
}

// handleTopMatches returns feedback documents whose matchScore is at least ?min
// (default 70). Documents of other users come without metadata or reviewer feedback.
func (s *Server) handleTopMatches(w http.ResponseWriter, r *http.Request) {
	_, ownerID, ok := owner(r)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.docs == nil {
		errorResponse(w, http.StatusServiceUnavailable, "Document store is not configured")
		return
	}
	min := docstore.DefaultMinMatchScore
	if v := r.URL.Query().Get("min"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(parsed) {
			errorResponse(w, http.StatusBadRequest, "min must be a number")
			return
		}
		min = parsed
	}
	docs, err := s.docs.TopMatches(r.Context(), min)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	for i := range docs {
		if docs[i].UserID != ownerID {
			redact(&docs[i])
		}
	}
	jsonResponse(w, http.StatusOK, docs)
}

// redact drops the fields that identify who wrote or reviewed a document.
func redact(doc *types.ResumeFeedbackDocument) {
	doc.Metadata = types.Metadata{}
	doc.ReviewerFeedback = []types.ReviewerFeedback{}
}

// handleListAnalyses returns the analysis records the caller saved.
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	_, ownerID, ok := owner(r)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.docs == nil {
		errorResponse(w, http.StatusServiceUnavailable, "Document store is not configured")
		return
	}
	records, err := s.docs.ListAnalyses(r.Context(), ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, records)
}
