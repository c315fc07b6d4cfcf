package types

import (
	"encoding/json"
	"time"
)

// Feedback sources.
const (
	SourceAuto  = "auto"
	SourceHuman = "human"
)

// ReviewerFeedback is a human reviewer's comment on a resume.
type ReviewerFeedback struct {
	ReviewerID string     `json:"reviewerId"`
	Comment    string     `json:"comment"`
	Rating     *float64   `json:"rating,omitempty"` // 1-5
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// AutomatedFeedback is one machine-generated finding, e.g. a keyword or formatting issue.
type AutomatedFeedback struct {
	Type       string   `json:"type"`
	Message    string   `json:"message"`
	Confidence *float64 `json:"confidence,omitempty"` // 0-1
}

// ParsedSections holds the sections extracted from a resume. Extra keys are kept as-is.
type ParsedSections map[string]any

// ACL restricts who may read a feedback document.
type ACL struct {
	Users []string `json:"users,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Metadata describes where a feedback document came from.
type Metadata struct {
	IP          string         `json:"ip,omitempty"`
	UserAgent   string         `json:"userAgent,omitempty"`
	Location    string         `json:"location,omitempty"`
	ToolVersion string         `json:"toolVersion,omitempty"`
	ACL         *ACL           `json:"acl,omitempty"`
	// Extra holds every other key, stored alongside the known ones.
	Extra map[string]any `json:"-"`
}

// metadataKeys are the keys decoded into Metadata's named fields.
var metadataKeys = map[string]bool{"ip": true, "userAgent": true, "location": true, "toolVersion": true, "acl": true}

// metadataKnown mirrors Metadata without its JSON methods.
type metadataKnown struct {
	IP          string `json:"ip,omitempty"`
	UserAgent   string `json:"userAgent,omitempty"`
	Location    string `json:"location,omitempty"`
	ToolVersion string `json:"toolVersion,omitempty"`
	ACL         *ACL   `json:"acl,omitempty"`
}

// UnmarshalJSON decodes the known keys and collects the rest into Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var known metadataKnown
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*m = Metadata{
		IP:          known.IP,
		UserAgent:   known.UserAgent,
		Location:    known.Location,
		ToolVersion: known.ToolVersion,
		ACL:         known.ACL,
	}
	for k, v := range all {
		if metadataKeys[k] {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[k] = v
	}
	return nil
}

// MarshalJSON writes Extra's keys next to the known ones. Known fields win on conflict.
func (m Metadata) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(metadataKnown{
		IP:          m.IP,
		UserAgent:   m.UserAgent,
		Location:    m.Location,
		ToolVersion: m.ToolVersion,
		ACL:         m.ACL,
	})
	if err != nil || len(m.Extra) == 0 {
		return known, err
	}

	out := make(map[string]any, len(m.Extra)+len(metadataKeys))
	for k, v := range m.Extra {
		if !metadataKeys[k] {
			out[k] = v
		}
	}
	var fields map[string]any
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// ResumeFeedbackInput is the caller-supplied data for a feedback or review document.
type ResumeFeedbackInput struct {
	ResumeID          string              `json:"resumeId" validate:"required"`
	CandidateName     string              `json:"candidateName"`
	UserID            string              `json:"userId" validate:"required"`
	ResumeFileURL     string              `json:"resumeFileUrl"`
	ParsedSections    ParsedSections      `json:"parsedSections"`
	ExtractedSkills   []string            `json:"extractedSkills"`
	MatchedJobID      *string             `json:"matchedJobId"`
	MatchScore        float64             `json:"matchScore"`
	OverallScore      float64             `json:"overallScore"`
	AutomatedFeedback []AutomatedFeedback `json:"automatedFeedback"`
	ReviewerFeedback  []ReviewerFeedback  `json:"reviewerFeedback"`
	Suggestions       []string            `json:"suggestions"`
	ActionsTaken      []string            `json:"actionsTaken"`
	ParserVersion     string              `json:"parserVersion"`
	Source            string              `json:"source"`
	Metadata          *Metadata           `json:"metadata"`
}

// ResumeFeedbackDocument is the stored, normalized form of a ResumeFeedbackInput.
type ResumeFeedbackDocument struct {
	ID                string              `json:"id,omitempty"`
	ResumeID          string              `json:"resumeId"`
	CandidateName     string              `json:"candidateName"`
	UserID            string              `json:"userId"`
	ResumeFileURL     string              `json:"resumeFileUrl"`
	ParsedSections    ParsedSections      `json:"parsedSections"`
	ExtractedSkills   []string            `json:"extractedSkills"`
	MatchedJobID      *string             `json:"matchedJobId"`
	MatchScore        float64             `json:"matchScore"`
	OverallScore      float64             `json:"overallScore"`
	AutomatedFeedback []AutomatedFeedback `json:"automatedFeedback"`
	ReviewerFeedback  []ReviewerFeedback  `json:"reviewerFeedback"`
	Suggestions       []string            `json:"suggestions"`
	ActionsTaken      []string            `json:"actionsTaken"`
	AnalysisTimestamp time.Time           `json:"analysisTimestamp"`
	ParserVersion     string              `json:"parserVersion"`
	Source            string              `json:"source"`
	Metadata          Metadata            `json:"metadata"`
}

// AnalysisRecord is the resume record saved to the document store after an upload.
type AnalysisRecord struct {
	ID                string    `json:"id,omitempty"`
	Resume            Resume    `json:"resume"`
	SavedBy           *string   `json:"savedBy"`
	AnalysisTimestamp time.Time `json:"analysisTimestamp"`
}

// Validate checks the required identifiers.
func (in *ResumeFeedbackInput) Validate() error {
	return validate.Struct(in)
}
