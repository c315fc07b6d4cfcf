package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jonathan/resumind/internal/observability"
	"github.com/jonathan/resumind/internal/users"
)

var (
	wipeUser   string
	wipeDryRun bool
)

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete every stored file and record of a user",
	RunE:  runWipe,
}

func init() {
	wipeCmd.Flags().StringVar(&wipeUser, "user", "", "User ID whose data is wiped (required)")
	wipeCmd.Flags().BoolVar(&wipeDryRun, "dry-run", false, "Only list the files that would be deleted")
	if err := wipeCmd.MarkFlagRequired("user"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(wipeCmd)
}

func runWipe(cmd *cobra.Command, _ []string) error {
	if wipeUser == users.SystemOwner {
		return errors.New("refusing to wipe the account store")
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	printer := observability.NewPrinter(cmd.OutOrStdout())
	files, err := a.Resumes.Files(ctx, wipeUser)
	if err != nil {
		return err
	}
	printer.PrintFiles(wipeUser, files)
	if wipeDryRun {
		return nil
	}

	result, err := a.Resumes.Wipe(ctx, wipeUser)
	if result != nil {
		printer.PrintWipe(wipeUser, result.FilesDeleted, result.Failed)
	}
	if err != nil {
		return errors.Join(errors.New("wipe incomplete"), err)
	}
	return nil
}
