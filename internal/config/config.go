package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

type LLMConfig struct {
	BaseURL         string `yaml:"base_url"`
	Key             string `yaml:"key"`
	Model           string `yaml:"model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// ToolsConfig describes the external MCP tool provider used for OCR and for
// formats the local extractors do not cover.
type ToolsConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Command     string   `yaml:"command"`
	Args        []string `yaml:"args"`
	ExtractTool string   `yaml:"extract_tool"`
}

type IngestConfig struct {
	UploadFolder  string `yaml:"upload_folder"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	MaxFileSizeMB int    `yaml:"max_file_size_mb"`
}

// ContextConfig bounds the context assembled for one query.
type ContextConfig struct {
	BudgetChars     int `yaml:"budget_chars"`
	MinExcerptChars int `yaml:"min_excerpt_chars"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Tools    ToolsConfig    `yaml:"tools"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Context  ContextConfig  `yaml:"context"`
}

const (
	defaultBudgetChars     = 60000
	defaultMinExcerptChars = 200
	defaultMaxConcurrent   = 4
	defaultMaxFileSizeMB   = 16
	defaultTimeoutSeconds  = 120
	defaultMaxOutputTokens = 4096
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "file:docuchat.db?cache=shared&_pragma=busy_timeout(5000)"
	}
	if c.Ingest.UploadFolder == "" {
		c.Ingest.UploadFolder = "./uploads"
	}
	if c.Ingest.MaxConcurrent <= 0 {
		c.Ingest.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Ingest.MaxFileSizeMB <= 0 {
		c.Ingest.MaxFileSizeMB = defaultMaxFileSizeMB
	}
	if c.Context.BudgetChars <= 0 {
		c.Context.BudgetChars = defaultBudgetChars
	}
	if c.Context.MinExcerptChars <= 0 {
		c.Context.MinExcerptChars = defaultMinExcerptChars
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.LLM.MaxOutputTokens <= 0 {
		c.LLM.MaxOutputTokens = defaultMaxOutputTokens
	}
	if c.Tools.ExtractTool == "" {
		c.Tools.ExtractTool = "extract"
	}
}
