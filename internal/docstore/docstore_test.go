package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resumind/internal/types"
)

// steppingMemory returns a Memory backend whose clock advances one second per insert.
func steppingMemory() *Memory {
	m := NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	m.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	return m
}

func TestAddResumeFeedback_RequiresIDs(t *testing.T) {
	s := New(NewMemory(), nil)

	_, err := s.AddResumeFeedback(context.Background(), types.ResumeFeedbackInput{ResumeID: "res_1"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.AddResumeReview(context.Background(), types.ResumeFeedbackInput{UserID: "user_1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddResumeFeedback_ListByUser(t *testing.T) {
	ctx := context.Background()
	s := New(steppingMemory(), nil)

	first, err := s.AddResumeFeedback(ctx, types.ResumeFeedbackInput{ResumeID: "res_1", UserID: "user_1", MatchScore: 150})
	require.NoError(t, err)
	second, err := s.AddResumeFeedback(ctx, types.ResumeFeedbackInput{ResumeID: "res_2", UserID: "user_1"})
	require.NoError(t, err)
	_, err = s.AddResumeFeedback(ctx, types.ResumeFeedbackInput{ResumeID: "res_3", UserID: "user_2"})
	require.NoError(t, err)

	docs, err := s.ListByUser(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, second, docs[0].ID, "newest first")
	assert.Equal(t, first, docs[1].ID)
	assert.Equal(t, 100.0, docs[1].MatchScore)
	assert.False(t, docs[0].AnalysisTimestamp.IsZero())
	assert.True(t, docs[0].AnalysisTimestamp.After(docs[1].AnalysisTimestamp))
}

func TestAddResumeReview_UsesReviewCollection(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	s := New(mem, nil)

	_, err := s.AddResumeReview(ctx, types.ResumeFeedbackInput{ResumeID: "res_1", UserID: "user_1"})
	require.NoError(t, err)

	reviews, err := mem.ListByUser(ctx, CollectionReview, "user_1")
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	feedback, err := s.ListByUser(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, feedback)
}

func TestTopMatches(t *testing.T) {
	ctx := context.Background()
	s := New(steppingMemory(), nil)

	add := func(resumeID string, score float64) string {
		id, err := s.AddResumeFeedback(ctx, types.ResumeFeedbackInput{ResumeID: resumeID, UserID: "u", MatchScore: score})
		require.NoError(t, err)
		return id
	}
	low := add("low", 69.9)
	olderTie := add("tie-old", 80)
	best := add("best", 95)
	newerTie := add("tie-new", 80)
	edge := add("edge", 70)

	docs, err := s.TopMatches(ctx, DefaultMinMatchScore)
	require.NoError(t, err)

	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{best, newerTie, olderTie, edge}, ids)

	docs, err = s.TopMatches(ctx, 90)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "best", docs[0].ResumeID)

	docs, err = s.TopMatches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, docs, 5)
	assert.Equal(t, low, docs[4].ID)
}

func TestAddResumeFeedback_KeepsUnknownMetadataKeys(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory(), nil)

	var in types.ResumeFeedbackInput
	require.NoError(t, json.Unmarshal([]byte(`{
		"resumeId": "res_1",
		"userId": "user_1",
		"metadata": {"campaign": "spring", "ip": "1.2.3.4", "tags": ["a", "b"]}
	}`), &in))

	_, err := s.AddResumeFeedback(ctx, in)
	require.NoError(t, err)

	docs, err := s.ListByUser(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	meta := docs[0].Metadata
	assert.Equal(t, "1.2.3.4", meta.IP)
	assert.Equal(t, "spring", meta.Extra["campaign"])
	assert.Equal(t, []any{"a", "b"}, meta.Extra["tags"])
	assert.NotContains(t, meta.Extra, "ip")

	out, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.JSONEq(t, `{"campaign":"spring","ip":"1.2.3.4","tags":["a","b"]}`, string(out))
}

func TestSaveAnalysis_ListAnalyses(t *testing.T) {
	ctx := context.Background()
	s := New(steppingMemory(), nil)
	who := "user_1"

	resume := types.Resume{
		ID:          "abc",
		ResumePath:  "user_1/abc.pdf",
		ImagePath:   "user_1/abc.png",
		CompanyName: "Acme",
		JobTitle:    "SRE",
		Feedback:    &types.Feedback{OverallScore: 77, ATS: types.Category{Score: 64}},
	}

	id, err := s.SaveAnalysis(ctx, who, resume, &who)
	require.NoError(t, err)
	_, err = s.SaveAnalysis(ctx, who, types.Resume{ID: "def"}, nil)
	require.NoError(t, err)

	records, err := s.ListAnalyses(ctx, who)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "def", records[0].Resume.ID)
	assert.Nil(t, records[0].SavedBy)
	assert.Nil(t, records[0].Resume.Feedback)

	rec := records[1]
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "Acme", rec.Resume.CompanyName)
	require.NotNil(t, rec.SavedBy)
	assert.Equal(t, who, *rec.SavedBy)
	require.NotNil(t, rec.Resume.Feedback)
	assert.Equal(t, 64.0, rec.Resume.Feedback.ATS.Score)
	assert.False(t, rec.AnalysisTimestamp.IsZero())
}

func TestSaveAnalysis_OverallScore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	s := New(mem, nil)

	_, err := s.SaveAnalysis(ctx, "u", types.Resume{ID: "a", Feedback: &types.Feedback{OverallScore: 130}}, nil)
	require.NoError(t, err)
	_, err = s.SaveAnalysis(ctx, "u", types.Resume{ID: "b", Feedback: &types.Feedback{Raw: `{"overallScore":"72"}`}}, nil)
	require.NoError(t, err)
	_, err = s.SaveAnalysis(ctx, "u", types.Resume{ID: "c"}, nil)
	require.NoError(t, err)

	snaps, err := mem.ListByUser(ctx, CollectionAnalysis, "u")
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	scores := map[string]any{}
	for _, snap := range snaps {
		scores[snap.Data["id"].(string)] = snap.Data["overallScore"]
	}
	assert.Equal(t, 100.0, scores["a"])
	assert.Equal(t, 72.0, scores["b"])
	assert.Equal(t, 0.0, scores["c"])
}

func TestSaveAnalysis_AutomatedFeedback(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	s := New(mem, nil)

	fb := &types.Feedback{
		OverallScore: 60,
		ATS: types.Category{Score: 50, Tips: []types.Tip{
			{Type: "good", Tip: "Clear headings"},
			{Type: "improve", Tip: "Add keywords"},
		}},
		Skills: types.Category{Score: 40, Tips: []types.Tip{
			{Type: "improve", Tip: "List Go", Explanation: "The job asks for Go."},
		}},
	}
	_, err := s.SaveAnalysis(ctx, "u", types.Resume{ID: "a", Feedback: fb}, nil)
	require.NoError(t, err)
	_, err = s.SaveAnalysis(ctx, "u", types.Resume{ID: "b"}, nil)
	require.NoError(t, err)

	snaps, err := mem.ListByUser(ctx, CollectionAnalysis, "u")
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	found := map[string]any{}
	for _, snap := range snaps {
		found[snap.Data["id"].(string)] = snap.Data["automatedFeedback"]
	}
	assert.Equal(t, []any{
		map[string]any{"type": "ATS", "message": "Add keywords"},
		map[string]any{"type": "skills", "message": "List Go: The job asks for Go."},
	}, found["a"])
	assert.Equal(t, []any{}, found["b"])
}

type failingBackend struct{ *Memory }

func (failingBackend) Insert(context.Context, string, map[string]any) (string, error) {
	return "", errors.New("permission denied")
}

func TestSaveAnalysis_BackendError(t *testing.T) {
	s := New(&failingBackend{Memory: NewMemory()}, nil)

	_, err := s.SaveAnalysis(context.Background(), "u", types.Resume{ID: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
