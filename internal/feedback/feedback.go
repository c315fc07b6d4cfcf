// Package feedback decodes and inspects the review returned by the AI service.
package feedback

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jonathan/resumind/internal/schemas"
	"github.com/jonathan/resumind/internal/types"
)

// Parse decodes the AI answer. Answers that are not a JSON object are kept verbatim in Raw
// so the resume page can still show them; Parse never fails.
func Parse(text string) *types.Feedback {
	trimmed := strings.TrimSpace(text)
	if !gjson.Valid(trimmed) || !gjson.Parse(trimmed).IsObject() {
		return &types.Feedback{Raw: text}
	}

	var fb types.Feedback
	if err := json.Unmarshal([]byte(trimmed), &fb); err != nil {
		// Valid JSON with mismatched types, e.g. a score sent as a string.
		return &types.Feedback{Raw: text}
	}
	return &fb
}

// Validate checks the answer against the feedback schema. The returned error is a
// *schemas.ValidationError listing every problem.
func Validate(text string) error {
	return schemas.Validate(schemas.Feedback, strings.TrimSpace(text))
}

// categoryPaths are the JSON keys of the scored sections, in display order.
var categoryPaths = []string{"ATS", "toneAndStyle", "content", "structure", "skills"}

// Summary is the gist of a review, read leniently from the raw answer.
type Summary struct {
	OverallScore float64
	ATSScore     float64
	Strengths    []string
	Improvements []string
	// Scores holds each category score keyed by its JSON name.
	Scores map[string]float64
}

// Summarize extracts scores and tips from raw JSON without requiring it to match the
// schema. Scores given as strings ("72") are accepted; missing values read as zero.
func Summarize(raw string) Summary {
	doc := gjson.Parse(raw)
	s := Summary{
		OverallScore: doc.Get("overallScore").Float(),
		ATSScore:     doc.Get("ATS.score").Float(),
		Strengths:    []string{},
		Improvements: []string{},
		Scores:       make(map[string]float64, len(categoryPaths)),
	}

	for _, path := range categoryPaths {
		cat := doc.Get(path)
		if !cat.Exists() {
			continue
		}
		s.Scores[path] = cat.Get("score").Float()
		cat.Get("tips").ForEach(func(_, tip gjson.Result) bool {
			text := strings.TrimSpace(tip.Get("tip").String())
			if text == "" {
				return true
			}
			if tip.Get("type").String() == "good" {
				s.Strengths = append(s.Strengths, text)
			} else {
				s.Improvements = append(s.Improvements, text)
			}
			return true
		})
	}
	return s
}

// AutomatedFindings turns the improvement tips of a raw answer into document findings,
// one per tip, typed by category.
func AutomatedFindings(raw string) []types.AutomatedFeedback {
	doc := gjson.Parse(raw)
	findings := []types.AutomatedFeedback{}
	for _, path := range categoryPaths {
		doc.Get(path + ".tips").ForEach(func(_, tip gjson.Result) bool {
			if tip.Get("type").String() == "good" {
				return true
			}
			msg := strings.TrimSpace(tip.Get("tip").String())
			if msg == "" {
				return true
			}
			if expl := tip.Get("explanation").String(); expl != "" {
				msg += ": " + expl
			}
			findings = append(findings, types.AutomatedFeedback{Type: path, Message: msg})
			return true
		})
	}
	return findings
}
