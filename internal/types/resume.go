package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// Tip is a single piece of advice inside a feedback category.
type Tip struct {
	Type        string `json:"type"` // "good" or "improve"
	Tip         string `json:"tip"`
	Explanation string `json:"explanation,omitempty"`
}

// Good reports whether the tip praises the resume rather than asking for a change.
func (t Tip) Good() bool {
	return t.Type == "good"
}

// Category is a scored feedback section such as ATS or tone and style.
type Category struct {
	Score float64 `json:"score"`
	Tips  []Tip   `json:"tips"`
}

// Feedback is the structured analysis returned by the AI service.
// Raw is set instead of the scored fields when the response was not valid JSON.
type Feedback struct {
	OverallScore float64  `json:"overallScore"`
	ATS          Category `json:"ATS"`
	ToneAndStyle Category `json:"toneAndStyle"`
	Content      Category `json:"content"`
	Structure    Category `json:"structure"`
	Skills       Category `json:"skills"`
	Raw          string   `json:"raw,omitempty"`
}

// Unparsed reports whether the feedback only carries the raw AI text.
func (f *Feedback) Unparsed() bool {
	return f != nil && f.Raw != ""
}

// NamedCategory pairs a category with its display title.
type NamedCategory struct {
	Title string
	Category
}

// Categories returns the detail sections in display order.
func (f *Feedback) Categories() []NamedCategory {
	if f == nil {
		return nil
	}
	return []NamedCategory{
		{Title: "Tone & Style", Category: f.ToneAndStyle},
		{Title: "Content", Category: f.Content},
		{Title: "Structure", Category: f.Structure},
		{Title: "Skills", Category: f.Skills},
	}
}

// Resume is the record kept in the key-value store under "resume:<id>".
// Feedback is nil until the analysis finished.
type Resume struct {
	ID             string    `json:"id"`
	ResumePath     string    `json:"resumePath"`
	ImagePath      string    `json:"imagePath"`
	CompanyName    string    `json:"companyName"`
	JobTitle       string    `json:"jobTitle"`
	JobDescription string    `json:"jobDescription"`
	Feedback       *Feedback `json:"feedback"`
	CreatedAt      time.Time `json:"createdAt,omitzero"`
}

// KVKey returns the key-value store key for a resume id.
func KVKey(id string) string {
	return "resume:" + id
}

// OverallScore returns the overall score, or 0 while feedback is pending or unparsed.
func (r *Resume) OverallScore() float64 {
	if r.Feedback == nil {
		return 0
	}
	return r.Feedback.OverallScore
}

// UnmarshalJSON accepts records whose feedback is still the empty string
// written before the analysis completed.
func (r *Resume) UnmarshalJSON(data []byte) error {
	type alias Resume
	aux := struct {
		*alias
		Feedback json.RawMessage `json:"feedback"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.Feedback = nil
	raw := bytes.TrimSpace(aux.Feedback)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}

	var fb Feedback
	if err := json.Unmarshal(raw, &fb); err != nil {
		return err
	}
	r.Feedback = &fb
	return nil
}
