package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the PostgreSQL tables",
	Long:  "Applies the embedded schema. It is idempotent and also runs on every start.",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if a.DB == nil {
		return errors.New("no backend uses PostgreSQL; set kv_backend or docstore_backend to postgres")
	}
	if err := a.DB.Migrate(ctx); err != nil {
		return err
	}
	a.Logger.Info("schema applied", zap.String("kv_backend", a.Config.KVBackend), zap.String("docstore_backend", a.Config.DocstoreBackend))
	return nil
}
