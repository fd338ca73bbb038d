package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// DocsDir is scanned for .txt and .md documents when no knowledge file is available.
	// DocsDir/manuals is scanned as well.
	DocsDir string `json:"docs_dir"`

	// KnowledgeFile is the JSON interchange file the document store is loaded from and saved to.
	KnowledgeFile string `json:"knowledge_file"`

	// CatalogPath is an optional SQLite document catalog. Empty disables it.
	CatalogPath string `json:"catalog_path,omitempty"`

	// SystemPromptPath is the system prompt sent with every completion request.
	SystemPromptPath string `json:"system_prompt_path"`

	// SearchTopK is the number of documents returned by a search when the caller gives none.
	SearchTopK int `json:"search_top_k"`

	LLMURL            string `json:"llm_url"`
	LLMModel          string `json:"llm_model"`
	LLMTimeoutSeconds int    `json:"llm_timeout_seconds"`

	CRMURL            string `json:"crm_url"`
	CRMTimeoutSeconds int    `json:"crm_timeout_seconds"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// WatchDocs appends new files dropped into DocsDir to the running store.
	WatchDocs bool `json:"watch_docs,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// Secrets. Only populated from the environment, never from config files.
	LLMAPIKey string `json:"-"`
	CRMAPIKey string `json:"-"`
}

// Environment variables read by ApplyEnv.
const (
	EnvLLMKey   = "OPENROUTER_API_KEY"
	EnvCRMKey   = "PILOT_API_KEY"
	EnvCRMURL   = "PILOT_API_URL"
	EnvLogLevel = "ASESOR_LOG_LEVEL"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DocsDir:           "docs",
		KnowledgeFile:     filepath.Join("docs", "rag_documents.json"),
		SystemPromptPath:  filepath.Join("prompts", "system_prompt.md"),
		SearchTopK:        5,
		LLMURL:            "https://openrouter.ai/api/v1/chat/completions",
		LLMModel:          "xiaomi/mimo-v2-flash:free",
		LLMTimeoutSeconds: 30,
		CRMURL:            "https://api.pilot.com/v1",
		CRMTimeoutSeconds: 10,
		LogLevel:          "info",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.asesor.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.asesor) and repo (.asesor) directories.
// Repo config is found by walking upward from startDir to find the nearest .asesor/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .asesor/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".asesor", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv loads envFile (if it exists) into the process environment and copies
// secrets and overrides into cfg. Variables already set in the environment win over the file.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvLLMKey)); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCRMKey)); v != "" {
		cfg.CRMAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCRMURL)); v != "" {
		cfg.CRMURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.DocsDir = pickString(overlay.DocsDir, base.DocsDir)
	result.KnowledgeFile = pickString(overlay.KnowledgeFile, base.KnowledgeFile)
	result.CatalogPath = pickString(overlay.CatalogPath, base.CatalogPath)
	result.SystemPromptPath = pickString(overlay.SystemPromptPath, base.SystemPromptPath)
	result.LLMURL = pickString(overlay.LLMURL, base.LLMURL)
	result.LLMModel = pickString(overlay.LLMModel, base.LLMModel)
	result.CRMURL = pickString(overlay.CRMURL, base.CRMURL)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.LLMAPIKey = pickString(overlay.LLMAPIKey, base.LLMAPIKey)
	result.CRMAPIKey = pickString(overlay.CRMAPIKey, base.CRMAPIKey)

	result.SearchTopK = pickInt(overlay.SearchTopK, base.SearchTopK)
	result.LLMTimeoutSeconds = pickInt(overlay.LLMTimeoutSeconds, base.LLMTimeoutSeconds)
	result.CRMTimeoutSeconds = pickInt(overlay.CRMTimeoutSeconds, base.CRMTimeoutSeconds)

	// Booleans: overlay wins if true, else base
	result.WatchDocs = base.WatchDocs || overlay.WatchDocs

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
