package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Generator     Generator     `mapstructure:"generator"`
	Outline       Outline       `mapstructure:"outline"`
	Storage       Storage       `mapstructure:"storage"`
	Index         Index         `mapstructure:"index"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Embeddings    Embeddings    `mapstructure:"embeddings"`
	Watch         Watch         `mapstructure:"watch"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Generator selects and configures the text-generation backend.
type Generator struct {
	Provider   string        `mapstructure:"provider"` // openai, gemini or dmr
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`    // openai only
	SocketPath string        `mapstructure:"socket_path"` // dmr only
	MaxTokens  int           `mapstructure:"max_tokens"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"` // per section, 0 disables
}

// Outline holds document naming rules.
type Outline struct {
	Extension       string `mapstructure:"extension"`
	OutputExtension string `mapstructure:"output_extension"`
}

// Storage holds document store configuration.
type Storage struct {
	Backend         string `mapstructure:"backend"` // fs or s3
	Root            string `mapstructure:"root"`    // fs only
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Prefix          string `mapstructure:"prefix"`
}

// Index toggles the generated-section search index.
type Index struct {
	Enabled bool `mapstructure:"enabled"`
}

// Elasticsearch holds ES connection configuration.
type Elasticsearch struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// Embeddings holds embeddings generation configuration.
type Embeddings struct {
	Enabled    bool   `mapstructure:"enabled"`
	SocketPath string `mapstructure:"socket_path"`
	Model      string `mapstructure:"model"`
}

// Watch holds the scheduler configuration for the watch command.
type Watch struct {
	Schedule string `mapstructure:"schedule"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Generator: Generator{
			Provider:   "openai",
			Model:      "gpt-4o",
			MaxRetries: 3,
			Timeout:    2 * time.Minute,
		},
		Outline: Outline{
			Extension:       ".outline",
			OutputExtension: ".md",
		},
		Storage: Storage{
			Backend:         "fs",
			Root:            ".",
			Endpoint:        "localhost:9002",
			Bucket:          "outliner",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		Index: Index{
			Enabled: false, // Requires Elasticsearch
		},
		Elasticsearch: Elasticsearch{
			Addresses: []string{"http://localhost:9200"},
			Index:     "outliner-sections",
		},
		Embeddings: Embeddings{
			Enabled:    false, // Disabled by default, requires DMR setup
			SocketPath: "",    // User must provide their Docker socket path
			Model:      "ai/embeddinggemma",
		},
		Watch: Watch{
			Schedule: "@every 5m",
		},
		MCP: MCP{
			Name:    "outliner",
			Version: "1.0.0",
		},
	}
}

// Validate checks values that have no usable fallback.
func (c Config) Validate() error {
	switch c.Generator.Provider {
	case "openai", "gemini", "dmr":
	default:
		return fmt.Errorf("unknown generator provider %q", c.Generator.Provider)
	}

	switch c.Storage.Backend {
	case "fs", "s3":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if !strings.HasPrefix(c.Outline.Extension, ".") || !strings.HasPrefix(c.Outline.OutputExtension, ".") {
		return fmt.Errorf("outline extensions must start with a dot")
	}
	if c.Outline.Extension == c.Outline.OutputExtension {
		return fmt.Errorf("outline and output extensions must differ")
	}
	return nil
}
