package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resumind/internal/types"
)

// Seed kinds.
const (
	seedFeedback = "feedback"
	seedReview   = "review"
	seedAll      = "all"
)

var (
	seedKind string
	seedUser string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample feedback and review documents",
	Long:  "Creates one sample document in the \"resume feedback\" and/or \"resume review\" collections so they exist and can be queried.",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedKind, "kind", seedAll, "Which collection to seed: feedback, review or all")
	seedCmd.Flags().StringVar(&seedUser, "user", "seed_user_001", "userId of the seeded documents")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	switch seedKind {
	case seedFeedback, seedReview, seedAll:
	default:
		return fmt.Errorf("unknown seed kind %q (want feedback, review or all)", seedKind)
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	out := cmd.OutOrStdout()
	if seedKind == seedFeedback || seedKind == seedAll {
		id, err := a.Docs.AddResumeFeedback(ctx, sampleFeedback(seedUser))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Seeded resume feedback with id: %s\n", id) //nolint:errcheck
	}
	if seedKind == seedReview || seedKind == seedAll {
		id, err := a.Docs.AddResumeReview(ctx, sampleReview(seedUser))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Seeded resume review with id: %s\n", id) //nolint:errcheck
	}
	return nil
}

func sampleFeedback(userID string) types.ResumeFeedbackInput {
	confidence := 0.9
	rating := 4.0
	return types.ResumeFeedbackInput{
		ResumeID:      "res_seed_001",
		CandidateName: "Seed Candidate",
		UserID:        userID,
		ResumeFileURL: "https://example.com/resumes/res_seed_001.pdf",
		ParsedSections: types.ParsedSections{
			"summary": "Seeded resume for collection creation test.",
			"experience": []any{
				map[string]any{"company": "DemoCorp", "role": "Engineer", "start": "2023-01", "bullets": []any{"Did demo work"}},
			},
			"skills": []any{"Go", "PostgreSQL", "Firestore"},
		},
		ExtractedSkills: []string{"Go", "PostgreSQL", "Firestore"},
		MatchScore:      75,
		OverallScore:    80,
		AutomatedFeedback: []types.AutomatedFeedback{
			{Type: "keyword", Message: "Good keyword match", Confidence: &confidence},
		},
		ReviewerFeedback: []types.ReviewerFeedback{
			{ReviewerID: "rev_seed", Comment: "Auto-seeded review", Rating: &rating},
		},
		Suggestions:   []string{"Tighten bullet points"},
		ActionsTaken:  []string{"seeded"},
		ParserVersion: "v1.0.0",
		Source:        types.SourceAuto,
		Metadata:      &types.Metadata{ToolVersion: "seed-0.1.0"},
	}
}

func sampleReview(userID string) types.ResumeFeedbackInput {
	in := sampleFeedback(userID)
	in.ResumeID = "res_seed_002"
	in.ResumeFileURL = "https://example.com/resumes/res_seed_002.pdf"
	in.Source = types.SourceHuman
	in.AutomatedFeedback = nil
	in.ActionsTaken = []string{"seeded", "reviewed"}
	rating := 5.0
	in.ReviewerFeedback = []types.ReviewerFeedback{
		{ReviewerID: "rev_seed_human", Comment: "Clear impact statements", Rating: &rating},
	}
	return in
}
