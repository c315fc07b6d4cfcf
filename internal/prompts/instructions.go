package prompts

import "strings"

const feedbackFile = "feedback.json"

// ResponseFormat returns the description of the JSON the AI service must answer with.
func ResponseFormat() string {
	return MustGet(feedbackFile, "response-format")
}

// PrepareInstructions renders the review instructions for a job application.
// Empty job fields are sent as empty strings.
func PrepareInstructions(jobTitle, jobDescription string) string {
	return Format(MustGet(feedbackFile, "instructions"), map[string]string{
		"JobTitle":       strings.TrimSpace(jobTitle),
		"JobDescription": strings.TrimSpace(jobDescription),
		"ResponseFormat": ResponseFormat(),
	})
}
