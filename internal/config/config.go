// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
)

// Config represents the application configuration.
// Values come from an optional YAML file, then environment variables override them.
type Config struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`

	// Storage
	DatabaseURL        string `yaml:"database_url"`        // PostgreSQL connection URL
	KVBackend          string `yaml:"kv_backend"`          // postgres, sqlite or memory
	SQLitePath         string `yaml:"sqlite_path"`         // SQLite file for the sqlite KV backend
	DocstoreBackend    string `yaml:"docstore_backend"`    // firestore, postgres or memory
	FirestoreProjectID string `yaml:"firestore_project_id"`
	CredentialsFile    string `yaml:"credentials_file"`    // Service account JSON for Firestore
	DataDir            string `yaml:"data_dir"`            // Root directory for uploaded files

	// Analysis
	LLMProvider    string        `yaml:"llm_provider"` // gemini or openai
	GeminiAPIKey   string        `yaml:"gemini_api_key"`
	OpenAIAPIKey   string        `yaml:"openai_api_key"`
	OpenAIBaseURL  string        `yaml:"openai_base_url"`
	PdftoppmPath   string        `yaml:"pdftoppm_path"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	AnalyzeTimeout time.Duration `yaml:"analyze_timeout"`
	ParserVersion  string        `yaml:"parser_version"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:            8080,
		KVBackend:       BackendPostgres,
		SQLitePath:      "resumind.db",
		DocstoreBackend: BackendPostgres,
		DataDir:         "data",
		LLMProvider:     "gemini",
		PdftoppmPath:    "pdftoppm",
		MaxUploadBytes:  20 * 1024 * 1024,
		AnalyzeTimeout:  3 * time.Minute,
		ParserVersion:   "v1.0.0",
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load reads the YAML file at path (skipped when path is empty) on top of the defaults
// and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides fields from environment variables that are set.
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"BASE_URL":                       &c.BaseURL,
		"DATABASE_URL":                   &c.DatabaseURL,
		"KV_BACKEND":                     &c.KVBackend,
		"SQLITE_PATH":                    &c.SQLitePath,
		"DOCSTORE_BACKEND":               &c.DocstoreBackend,
		"FIRESTORE_PROJECT_ID":           &c.FirestoreProjectID,
		"GOOGLE_APPLICATION_CREDENTIALS": &c.CredentialsFile,
		"DATA_DIR":                       &c.DataDir,
		"LLM_PROVIDER":                   &c.LLMProvider,
		"GEMINI_API_KEY":                 &c.GeminiAPIKey,
		"OPENAI_API_KEY":                 &c.OpenAIAPIKey,
		"OPENAI_BASE_URL":                &c.OpenAIBaseURL,
		"PDFTOPPM_PATH":                  &c.PdftoppmPath,
		"PARSER_VERSION":                 &c.ParserVersion,
		"LOG_LEVEL":                      &c.LogLevel,
		"LOG_FORMAT":                     &c.LogFormat,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %v", err)
		}
		c.Port = port
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_BYTES: %v", err)
		}
		c.MaxUploadBytes = n
	}
	if v := os.Getenv("ANALYZE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ANALYZE_TIMEOUT: %v", err)
		}
		c.AnalyzeTimeout = d
	}
	return nil
}

// Validate checks that the configuration is usable for serving and analysis.
func (c *Config) Validate() error {
	if err := c.ValidateStorage(); err != nil {
		return err
	}

	switch strings.ToLower(c.LLMProvider) {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("config error: GEMINI_API_KEY is required for the gemini provider")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("config error: OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("config error: unknown llm_provider %q", c.LLMProvider)
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config error: max_upload_bytes must be positive")
	}
	return nil
}

// ValidateStorage checks only the storage settings. Commands that never call the AI
// service use it so they run without an API key.
func (c *Config) ValidateStorage() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: port out of range: %d", c.Port)
	}

	switch c.KVBackend {
	case BackendPostgres, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("config error: unknown kv_backend %q", c.KVBackend)
	}
	switch c.DocstoreBackend {
	case BackendPostgres, BackendFirestore, BackendMemory:
	default:
		return fmt.Errorf("config error: unknown docstore_backend %q", c.DocstoreBackend)
	}

	if c.NeedsPostgres() && c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required for the postgres backend")
	}
	if c.KVBackend == BackendSQLite && c.SQLitePath == "" {
		return fmt.Errorf("config error: sqlite_path is required for the sqlite backend")
	}
	if c.DocstoreBackend == BackendFirestore && c.FirestoreProjectID == "" {
		return fmt.Errorf("config error: FIRESTORE_PROJECT_ID is required for the firestore backend")
	}

	if c.DataDir == "" {
		return fmt.Errorf("config error: data_dir is required")
	}
	return nil
}

// NeedsPostgres reports whether any backend uses PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return c.KVBackend == BackendPostgres || c.DocstoreBackend == BackendPostgres
}

// APIKey returns the key of the configured LLM provider.
func (c *Config) APIKey() string {
	if strings.EqualFold(c.LLMProvider, "openai") {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}
