package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resumind/internal/config"
	"github.com/jonathan/resumind/internal/kv"
	"github.com/jonathan/resumind/internal/llm"
)

type stubConverter struct{}

func (stubConverter) Convert(context.Context, []byte) ([]byte, error) { return []byte("png"), nil }

type stubLLM struct{ closed bool }

func (s *stubLLM) GenerateFeedback(context.Context, llm.FeedbackRequest) (string, error) {
	return `{"overallScore":50}`, nil
}
func (s *stubLLM) GetModel(llm.ModelTier) string { return "stub" }
func (s *stubLLM) Close() error                  { s.closed = true; return nil }

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.KVBackend = config.BackendMemory
	cfg.DocstoreBackend = config.BackendMemory
	cfg.DataDir = t.TempDir()
	return &cfg
}

func TestOpen_Memory(t *testing.T) {
	a, err := Open(context.Background(), memoryConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.IsType(t, &kv.Memory{}, a.KV)
	assert.NotNil(t, a.Users)
	assert.NotNil(t, a.Resumes)
	assert.Nil(t, a.Analyzer)
	assert.NoError(t, a.Ping(context.Background()))
}

func TestOpen_SQLite(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.KVBackend = config.BackendSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "kv.db")

	a, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &kv.SQLite{}, a.KV)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.KVBackend = "redis"
	_, err := Open(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestUseLLM(t *testing.T) {
	a, err := Open(context.Background(), memoryConfig(t), nil)
	require.NoError(t, err)

	client := &stubLLM{}
	require.NoError(t, a.UseLLM(client, stubConverter{}, llm.TierStandard))
	assert.NotNil(t, a.Analyzer)

	require.NoError(t, a.Close())
	assert.True(t, client.closed)

	assert.Error(t, a.UseLLM(nil, stubConverter{}, ""))
}

func TestEnableAnalysis_RequiresKey(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.GeminiAPIKey = ""
	a, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.ErrorContains(t, a.EnableAnalysis(context.Background(), ""), "GEMINI_API_KEY")
}
