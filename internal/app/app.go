// Package app opens the stores and services selected by the configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/resumind/internal/analysis"
	"github.com/jonathan/resumind/internal/config"
	"github.com/jonathan/resumind/internal/db"
	"github.com/jonathan/resumind/internal/docstore"
	"github.com/jonathan/resumind/internal/kv"
	"github.com/jonathan/resumind/internal/llm"
	"github.com/jonathan/resumind/internal/pdf"
	"github.com/jonathan/resumind/internal/resumes"
	"github.com/jonathan/resumind/internal/storage"
	"github.com/jonathan/resumind/internal/users"
)

// App holds the opened backends. Close releases them.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB      *db.DB // nil unless a backend uses PostgreSQL
	KV      kv.Store
	Docs    *docstore.Store
	Files   *storage.Local
	Users   *users.Service
	Resumes *resumes.Service

	// Set by EnableAnalysis.
	LLM      llm.Client
	Analyzer *analysis.Analyzer
}

// Open connects the storage backends of cfg. It does not contact the AI service.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close() //nolint:errcheck
		}
	}()

	if cfg.NeedsPostgres() {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.DB = database
		if err := database.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	store, err := openKV(ctx, cfg, a.DB)
	if err != nil {
		return nil, err
	}
	a.KV = store

	backend, err := openDocstore(ctx, cfg, a.DB)
	if err != nil {
		return nil, err
	}
	a.Docs = docstore.New(backend, logger.Named("docstore"))

	files, err := storage.NewLocal(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	a.Files = files

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	a.Users = users.NewService(users.NewRepository(store), passwordConfig)
	a.Resumes = resumes.NewService(store, files, logger.Named("resumes"))

	logger.Info("storage ready",
		zap.String("kv_backend", cfg.KVBackend),
		zap.String("docstore_backend", cfg.DocstoreBackend),
		zap.String("data_dir", files.Root()))
	ok = true
	return a, nil
}

func openKV(ctx context.Context, cfg *config.Config, database *db.DB) (kv.Store, error) {
	switch cfg.KVBackend {
	case config.BackendPostgres:
		return database.KV(), nil
	case config.BackendSQLite:
		return kv.OpenSQLite(ctx, cfg.SQLitePath)
	case config.BackendMemory:
		return kv.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown kv backend %q", cfg.KVBackend)
	}
}

func openDocstore(ctx context.Context, cfg *config.Config, database *db.DB) (docstore.Backend, error) {
	switch cfg.DocstoreBackend {
	case config.BackendFirestore:
		return docstore.NewFirestore(ctx, cfg.FirestoreProjectID, cfg.CredentialsFile)
	case config.BackendPostgres:
		return database.Documents(), nil
	case config.BackendMemory:
		return docstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown docstore backend %q", cfg.DocstoreBackend)
	}
}

// EnableAnalysis creates the AI client and the upload flow. tier selects the model.
func (a *App) EnableAnalysis(ctx context.Context, tier llm.ModelTier) error {
	if err := a.Config.Validate(); err != nil {
		return err
	}
	llmConfig, err := llm.ConfigFor(a.Config.LLMProvider)
	if err != nil {
		return err
	}
	if a.Config.OpenAIBaseURL != "" {
		llmConfig.BaseURL = a.Config.OpenAIBaseURL
	}
	client, err := llm.NewClient(ctx, llmConfig, a.Config.APIKey())
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	return a.UseLLM(client, pdf.NewConverter(a.Config.PdftoppmPath), tier)
}

// UseLLM wires the upload flow to client and converter.
func (a *App) UseLLM(client llm.Client, converter analysis.Converter, tier llm.ModelTier) error {
	if client == nil || converter == nil {
		return errors.New("llm client and converter are required")
	}
	a.LLM = client
	a.Analyzer = analysis.New(a.Files, converter, a.KV, client, a.Docs, a.Logger.Named("analysis"))
	if tier != "" {
		a.Analyzer.WithTier(tier)
	}
	return nil
}

// Ping checks the database when one is used.
func (a *App) Ping(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Ping(ctx)
}

// Close releases every opened backend.
func (a *App) Close() error {
	var errs []error
	if a.LLM != nil {
		errs = append(errs, a.LLM.Close())
	}
	if a.Docs != nil {
		errs = append(errs, a.Docs.Close())
	}
	if a.KV != nil {
		errs = append(errs, a.KV.Close())
	}
	if a.DB != nil {
		a.DB.Close()
	}
	return errors.Join(errs...)
}
