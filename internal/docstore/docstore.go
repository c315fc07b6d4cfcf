// Package docstore saves resume feedback, reviews and analysis records to a document database.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resumind/internal/feedback"
	"github.com/jonathan/resumind/internal/scoring"
	"github.com/jonathan/resumind/internal/types"
)

// Collection names. They are shared with other tools reading the same database and must not change.
const (
	CollectionFeedback = "resume feedback"
	CollectionReview   = "resume review"
	CollectionAnalysis = "resumeFeedback"
)

// DefaultMinMatchScore is the threshold used by TopMatches when none is given.
const DefaultMinMatchScore = 70.0

// Document field names that backends index or set themselves.
const (
	FieldUserID            = "userId"
	FieldMatchScore        = "matchScore"
	FieldAnalysisTimestamp = "analysisTimestamp"
)

// ErrInvalidInput is returned when a document misses required fields.
var ErrInvalidInput = errors.New("invalid feedback document")

// Snapshot is a stored document as returned by a Backend.
type Snapshot struct {
	ID   string
	Data map[string]any
}

// Backend is a document database. Insert sets FieldAnalysisTimestamp to the server time
// and returns the generated id.
type Backend interface {
	Insert(ctx context.Context, collection string, fields map[string]any) (string, error)
	ListByUser(ctx context.Context, collection, userID string) ([]Snapshot, error)
	ListByMinMatchScore(ctx context.Context, collection string, min float64) ([]Snapshot, error)
	Close() error
}

// Store shapes documents and writes them through a Backend.
type Store struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Store. A nil logger disables logging.
func New(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend: backend,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// AddResumeFeedback stores a feedback document in the "resume feedback" collection.
func (s *Store) AddResumeFeedback(ctx context.Context, in types.ResumeFeedbackInput) (string, error) {
	return s.add(ctx, CollectionFeedback, in)
}

// AddResumeReview stores a review document in the "resume review" collection.
func (s *Store) AddResumeReview(ctx context.Context, in types.ResumeFeedbackInput) (string, error) {
	return s.add(ctx, CollectionReview, in)
}

func (s *Store) add(ctx context.Context, collection string, in types.ResumeFeedbackInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	doc := s.Shape(in)
	id, err := s.backend.Insert(ctx, collection, documentFields(doc))
	if err != nil {
		return "", fmt.Errorf("failed to add document to %q: %w", collection, err)
	}
	s.logger.Debug("stored feedback document",
		zap.String("collection", collection),
		zap.String("id", id),
		zap.String("resume_id", doc.ResumeID))
	return id, nil
}

// SaveAnalysis stores the resume record produced by the upload flow in the
// "resumeFeedback" collection. savedBy is nil when the uploader is unknown.
func (s *Store) SaveAnalysis(ctx context.Context, owner string, resume types.Resume, savedBy *string) (string, error) {
	fields, err := toMap(resume)
	if err != nil {
		return "", fmt.Errorf("failed to encode resume record: %w", err)
	}
	if savedBy != nil {
		fields["savedBy"] = *savedBy
	} else {
		fields["savedBy"] = nil
	}
	fields[FieldUserID] = owner
	fields["overallScore"] = analysisScore(resume.Feedback)
	fields["automatedFeedback"] = automatedFields(analysisFindings(resume.Feedback))

	id, err := s.backend.Insert(ctx, CollectionAnalysis, fields)
	if err != nil {
		return "", fmt.Errorf("failed to save analysis: %w", err)
	}
	return id, nil
}

// analysisScore is the clamped overall score of fb. Answers kept as raw text are read
// leniently so a score sent as a string still counts.
func analysisScore(fb *types.Feedback) float64 {
	switch {
	case fb == nil:
		return 0
	case fb.Unparsed():
		return scoring.Clamp(feedback.Summarize(fb.Raw).OverallScore)
	default:
		return scoring.Clamp(fb.OverallScore)
	}
}

// analysisFindings lists the improvement tips of fb as automated feedback entries.
func analysisFindings(fb *types.Feedback) []types.AutomatedFeedback {
	switch {
	case fb == nil:
		return []types.AutomatedFeedback{}
	case fb.Unparsed():
		return feedback.AutomatedFindings(fb.Raw)
	}
	raw, err := json.Marshal(fb)
	if err != nil {
		return []types.AutomatedFeedback{}
	}
	return feedback.AutomatedFindings(string(raw))
}

// ListByUser returns the user's feedback documents, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]types.ResumeFeedbackDocument, error) {
	snaps, err := s.backend.ListByUser(ctx, CollectionFeedback, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback for user: %w", err)
	}
	return decodeAll(snaps)
}

// TopMatches returns feedback documents with matchScore >= min, best match first and newest
// first among equal scores. Callers without a threshold pass DefaultMinMatchScore.
func (s *Store) TopMatches(ctx context.Context, min float64) ([]types.ResumeFeedbackDocument, error) {
	snaps, err := s.backend.ListByMinMatchScore(ctx, CollectionFeedback, min)
	if err != nil {
		return nil, fmt.Errorf("failed to list top matches: %w", err)
	}
	return decodeAll(snaps)
}

// ListAnalyses returns the analysis records saved by owner, newest first.
func (s *Store) ListAnalyses(ctx context.Context, owner string) ([]types.AnalysisRecord, error) {
	snaps, err := s.backend.ListByUser(ctx, CollectionAnalysis, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	records := make([]types.AnalysisRecord, 0, len(snaps))
	for _, snap := range snaps {
		var rec types.AnalysisRecord
		if err := decode(snap.Data, &rec.Resume); err != nil {
			return nil, fmt.Errorf("failed to decode analysis %s: %w", snap.ID, err)
		}
		rec.ID = snap.ID
		if by, ok := snap.Data["savedBy"].(string); ok {
			rec.SavedBy = &by
		}
		if ts, ok := snap.Data[FieldAnalysisTimestamp].(time.Time); ok {
			rec.AnalysisTimestamp = ts
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func decodeAll(snaps []Snapshot) ([]types.ResumeFeedbackDocument, error) {
	docs := make([]types.ResumeFeedbackDocument, 0, len(snaps))
	for _, snap := range snaps {
		var doc types.ResumeFeedbackDocument
		if err := decode(snap.Data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", snap.ID, err)
		}
		doc.ID = snap.ID
		docs = append(docs, doc)
	}
	return docs, nil
}

// decode converts loosely typed document data into dst through JSON.
func decode(data map[string]any, dst any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
