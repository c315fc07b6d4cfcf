package docstore

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resumind/internal/types"
)

func fixedStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	s := New(NewMemory(), nil)
	s.now = func() time.Time { return now }
	return s
}

func TestShape_Defaults(t *testing.T) {
	s := fixedStore(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	doc := s.Shape(types.ResumeFeedbackInput{ResumeID: "res_1", UserID: "user_1"})

	assert.Equal(t, "res_1", doc.ResumeID)
	assert.Equal(t, "user_1", doc.UserID)
	assert.NotNil(t, doc.ParsedSections)
	assert.Empty(t, doc.ParsedSections)
	assert.Equal(t, []string{}, doc.ExtractedSkills)
	assert.Equal(t, []string{}, doc.Suggestions)
	assert.Equal(t, []string{}, doc.ActionsTaken)
	assert.Equal(t, []types.AutomatedFeedback{}, doc.AutomatedFeedback)
	assert.Equal(t, []types.ReviewerFeedback{}, doc.ReviewerFeedback)
	assert.Nil(t, doc.MatchedJobID)
	assert.Equal(t, types.SourceAuto, doc.Source)
	assert.Equal(t, types.Metadata{}, doc.Metadata)
	assert.True(t, doc.AnalysisTimestamp.IsZero(), "backend assigns the analysis timestamp")
}

func TestShape_ClampsScores(t *testing.T) {
	s := fixedStore(t, time.Now())

	tests := []struct {
		name     string
		in       float64
		expected float64
	}{
		{"below range", -12, 0},
		{"above range", 140, 100},
		{"in range", 82.5, 82.5},
		{"nan", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := s.Shape(types.ResumeFeedbackInput{MatchScore: tt.in, OverallScore: tt.in})
			assert.Equal(t, tt.expected, doc.MatchScore)
			assert.Equal(t, tt.expected, doc.OverallScore)
		})
	}
}

func TestShape_Source(t *testing.T) {
	s := fixedStore(t, time.Now())

	assert.Equal(t, types.SourceHuman, s.Shape(types.ResumeFeedbackInput{Source: "human"}).Source)
	assert.Equal(t, types.SourceAuto, s.Shape(types.ResumeFeedbackInput{Source: "auto"}).Source)
	assert.Equal(t, types.SourceAuto, s.Shape(types.ResumeFeedbackInput{Source: "HUMAN"}).Source)
	assert.Equal(t, types.SourceAuto, s.Shape(types.ResumeFeedbackInput{Source: "robot"}).Source)
}

func TestShape_ReviewerFeedback(t *testing.T) {
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	s := fixedStore(t, now)
	rating := 4.0
	old := now.Add(-48 * time.Hour)

	doc := s.Shape(types.ResumeFeedbackInput{
		ReviewerFeedback: []types.ReviewerFeedback{
			{ReviewerID: "rev_1", Comment: "Solid", Rating: &rating, Timestamp: &old},
			{ReviewerID: "rev_2", Comment: "Needs metrics"},
		},
	})

	require.Len(t, doc.ReviewerFeedback, 2)
	first := doc.ReviewerFeedback[0]
	assert.Equal(t, "rev_1", first.ReviewerID)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 4.0, *first.Rating)
	require.NotNil(t, first.Timestamp)
	assert.Equal(t, now, *first.Timestamp, "caller timestamps are replaced")

	second := doc.ReviewerFeedback[1]
	assert.Nil(t, second.Rating)
	require.NotNil(t, second.Timestamp)
	assert.Equal(t, now, *second.Timestamp)
}

func TestDocumentFields(t *testing.T) {
	s := fixedStore(t, time.Now())
	job := "job_555"
	confidence := 0.92

	doc := s.Shape(types.ResumeFeedbackInput{
		ResumeID:          "res_1",
		UserID:            "user_1",
		MatchedJobID:      &job,
		MatchScore:        82,
		AutomatedFeedback: []types.AutomatedFeedback{{Type: "keyword", Message: "Strong", Confidence: &confidence}, {Type: "formatting", Message: "Condense"}},
		Metadata: &types.Metadata{
			ToolVersion: "web-0.9.0",
			ACL:         &types.ACL{Users: []string{"user_1"}},
			Extra:       map[string]any{"campaign": "spring"},
		},
	})
	fields := documentFields(doc)

	assert.Equal(t, "job_555", fields["matchedJobId"])
	assert.Equal(t, 82.0, fields[FieldMatchScore])
	assert.NotContains(t, fields, FieldAnalysisTimestamp)

	automated := fields["automatedFeedback"].([]any)
	require.Len(t, automated, 2)
	assert.Equal(t, 0.92, automated[0].(map[string]any)["confidence"])
	assert.NotContains(t, automated[1].(map[string]any), "confidence")

	meta := fields["metadata"].(map[string]any)
	assert.Equal(t, "web-0.9.0", meta["toolVersion"])
	assert.Equal(t, "spring", meta["campaign"])
	assert.Equal(t, []string{"user_1"}, meta["acl"].(map[string]any)["users"])
	assert.NotContains(t, meta, "ip")

	empty := documentFields(s.Shape(types.ResumeFeedbackInput{}))
	assert.Nil(t, empty["matchedJobId"])
	assert.Equal(t, map[string]any{}, empty["metadata"])
}
