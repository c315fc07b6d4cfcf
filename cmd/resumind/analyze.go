package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/resumind/internal/analysis"
	"github.com/jonathan/resumind/internal/llm"
	"github.com/jonathan/resumind/internal/observability"
)

var (
	analyzeCompany     string
	analyzeJobTitle    string
	analyzeDescription string
	analyzeDescFile    string
	analyzeUser        string
	analyzeTier        string
	analyzeJSON        bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <resume.pdf>",
	Short: "Analyse a resume from the command line",
	Long:  "Runs the upload flow for a local PDF and prints the feedback. The result is stored like a web upload.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCompany, "company", "", "Company name")
	analyzeCmd.Flags().StringVar(&analyzeJobTitle, "job-title", "", "Job title")
	analyzeCmd.Flags().StringVar(&analyzeDescription, "job-description", "", "Job description text")
	analyzeCmd.Flags().StringVar(&analyzeDescFile, "job-description-file", "", "Read the job description from a file")
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "cli", "Owner the result is stored under")
	analyzeCmd.Flags().StringVar(&analyzeTier, "tier", string(llm.TierStandard), "Model tier: lite, standard or advanced")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the result as JSON")
	analyzeCmd.MarkFlagsMutuallyExclusive("job-description", "job-description-file")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read resume: %w", err)
	}
	description := analyzeDescription
	if analyzeDescFile != "" {
		content, err := os.ReadFile(analyzeDescFile)
		if err != nil {
			return fmt.Errorf("failed to read job description: %w", err)
		}
		description = string(content)
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := a.EnableAnalysis(ctx, llm.ModelTier(analyzeTier)); err != nil {
		return err
	}
	if a.Config.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Config.AnalyzeTimeout)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(cmd.ErrOrStderr())
	savedBy := analyzeUser
	result, err := a.Analyzer.Run(ctx, analyzeUser, analysis.Input{
		CompanyName:    analyzeCompany,
		JobTitle:       analyzeJobTitle,
		JobDescription: description,
		FileName:       filepath.Base(args[0]),
		Data:           data,
		SavedBy:        &savedBy,
	}, func(e analysis.ProgressEvent) {
		printer.PrintProgress(e.Message, e.Failed)
	})
	if err != nil {
		return err
	}

	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	observability.NewPrinter(out).PrintFeedback(&result.Resume)
	return nil
}
