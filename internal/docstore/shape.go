package docstore

import (
	"github.com/jonathan/resumind/internal/scoring"
	"github.com/jonathan/resumind/internal/types"
)

// Shape normalizes an input into the stored document. Missing collections become empty,
// scores are clamped to [0, 100] and reviewer timestamps are set to the current time.
// AnalysisTimestamp is left zero; the backend assigns it on insert.
func (s *Store) Shape(in types.ResumeFeedbackInput) types.ResumeFeedbackDocument {
	doc := types.ResumeFeedbackDocument{
		ResumeID:          in.ResumeID,
		CandidateName:     in.CandidateName,
		UserID:            in.UserID,
		ResumeFileURL:     in.ResumeFileURL,
		ParsedSections:    in.ParsedSections,
		ExtractedSkills:   nonNil(in.ExtractedSkills),
		MatchedJobID:      in.MatchedJobID,
		MatchScore:        scoring.Clamp(in.MatchScore),
		OverallScore:      scoring.Clamp(in.OverallScore),
		AutomatedFeedback: in.AutomatedFeedback,
		ReviewerFeedback:  make([]types.ReviewerFeedback, 0, len(in.ReviewerFeedback)),
		Suggestions:       nonNil(in.Suggestions),
		ActionsTaken:      nonNil(in.ActionsTaken),
		ParserVersion:     in.ParserVersion,
		Source:            types.SourceAuto,
	}

	if doc.ParsedSections == nil {
		doc.ParsedSections = types.ParsedSections{}
	}
	if doc.AutomatedFeedback == nil {
		doc.AutomatedFeedback = []types.AutomatedFeedback{}
	}
	if in.Source == types.SourceHuman {
		doc.Source = types.SourceHuman
	}
	if in.Metadata != nil {
		doc.Metadata = *in.Metadata
	}

	now := s.now()
	for _, r := range in.ReviewerFeedback {
		ts := now
		doc.ReviewerFeedback = append(doc.ReviewerFeedback, types.ReviewerFeedback{
			ReviewerID: r.ReviewerID,
			Comment:    r.Comment,
			Rating:     r.Rating,
			Timestamp:  &ts,
		})
	}
	return doc
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// documentFields lays out a shaped document with the stored field names.
func documentFields(doc types.ResumeFeedbackDocument) map[string]any {
	var matchedJobID any
	if doc.MatchedJobID != nil {
		matchedJobID = *doc.MatchedJobID
	}

	reviewers := make([]any, 0, len(doc.ReviewerFeedback))
	for _, r := range doc.ReviewerFeedback {
		m := map[string]any{"reviewerId": r.ReviewerID, "comment": r.Comment}
		if r.Rating != nil {
			m["rating"] = *r.Rating
		}
		if r.Timestamp != nil {
			m["timestamp"] = *r.Timestamp
		}
		reviewers = append(reviewers, m)
	}

	return map[string]any{
		"resumeId":          doc.ResumeID,
		"candidateName":     doc.CandidateName,
		FieldUserID:         doc.UserID,
		"resumeFileUrl":     doc.ResumeFileURL,
		"parsedSections":    map[string]any(doc.ParsedSections),
		"extractedSkills":   doc.ExtractedSkills,
		"matchedJobId":      matchedJobID,
		FieldMatchScore:     doc.MatchScore,
		"overallScore":      doc.OverallScore,
		"automatedFeedback": automatedFields(doc.AutomatedFeedback),
		"reviewerFeedback":  reviewers,
		"suggestions":       doc.Suggestions,
		"actionsTaken":      doc.ActionsTaken,
		"parserVersion":     doc.ParserVersion,
		"source":            doc.Source,
		"metadata":          metadataFields(doc.Metadata),
	}
}

func automatedFields(findings []types.AutomatedFeedback) []any {
	out := make([]any, 0, len(findings))
	for _, a := range findings {
		m := map[string]any{"type": a.Type, "message": a.Message}
		if a.Confidence != nil {
			m["confidence"] = *a.Confidence
		}
		out = append(out, m)
	}
	return out
}

func metadataFields(m types.Metadata) map[string]any {
	out := map[string]any{}
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.IP != "" {
		out["ip"] = m.IP
	}
	if m.UserAgent != "" {
		out["userAgent"] = m.UserAgent
	}
	if m.Location != "" {
		out["location"] = m.Location
	}
	if m.ToolVersion != "" {
		out["toolVersion"] = m.ToolVersion
	}
	if m.ACL != nil {
		acl := map[string]any{}
		if len(m.ACL.Users) > 0 {
			acl["users"] = m.ACL.Users
		}
		if len(m.ACL.Roles) > 0 {
			acl["roles"] = m.ACL.Roles
		}
		out["acl"] = acl
	}
	return out
}
