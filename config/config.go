// Package config loads indexpilot settings.
//
// Precedence, lowest first: built-in defaults, the config file (YAML or
// TOML), .env and .env.local, then the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i2y/indexpilot/algolia"
	"github.com/i2y/indexpilot/chat"
	"github.com/i2y/indexpilot/llm"
	"github.com/i2y/indexpilot/mcp"
	"github.com/i2y/indexpilot/openai"
	"github.com/i2y/indexpilot/prompt"
	"github.com/i2y/indexpilot/provider"
	"github.com/i2y/indexpilot/record"
)

const (
	DefaultConfigFile  = "indexpilot.yaml"
	DefaultProvider    = "azure"
	DefaultModel       = "gpt-4o"
	DefaultLogLevel    = "info"
	DefaultToolTimeout = 30 * time.Second
)

type Config struct {
	Algolia    AlgoliaConfig `yaml:"algolia" toml:"algolia"`
	MCP        MCPConfig     `yaml:"mcp" toml:"mcp"`
	LLM        LLMConfig     `yaml:"llm" toml:"llm"`
	Upload     UploadConfig  `yaml:"upload" toml:"upload"`
	PromptFile string        `yaml:"prompt_file" toml:"prompt_file"`
	History    string        `yaml:"history" toml:"history"`
	LogLevel   string        `yaml:"log_level" toml:"log_level"`
}

type AlgoliaConfig struct {
	AppID   string `yaml:"app_id" toml:"app_id"`
	APIKey  string `yaml:"api_key" toml:"api_key"`
	BaseURL string `yaml:"base_url" toml:"base_url"`
}

type MCPConfig struct {
	Command  string        `yaml:"command" toml:"command"`
	Args     []string      `yaml:"args" toml:"args"`
	NodePath string        `yaml:"node_path" toml:"node_path"`
	Timeout  time.Duration `yaml:"timeout" toml:"timeout"`
}

type LLMConfig struct {
	Provider         string  `yaml:"provider" toml:"provider"`
	Model            string  `yaml:"model" toml:"model"`
	Endpoint         string  `yaml:"endpoint" toml:"endpoint"`
	APIKey           string  `yaml:"api_key" toml:"api_key"`
	APIVersion       string  `yaml:"api_version" toml:"api_version"`
	Deployment       string  `yaml:"deployment" toml:"deployment"`
	Temperature      float64 `yaml:"temperature" toml:"temperature"`
	FinalTemperature float64 `yaml:"final_temperature" toml:"final_temperature"`
	// MaxTokens, TopP and Seed are sent only when set.
	MaxTokens int     `yaml:"max_tokens" toml:"max_tokens"`
	TopP      float64 `yaml:"top_p" toml:"top_p"`
	Seed      *int    `yaml:"seed" toml:"seed"`
}

type UploadConfig struct {
	BatchSize   int           `yaml:"batch_size" toml:"batch_size"`
	Pause       time.Duration `yaml:"pause" toml:"pause"`
	ClearWait   time.Duration `yaml:"clear_wait" toml:"clear_wait"`
	RecordLimit int           `yaml:"record_limit" toml:"record_limit"`
	DataDir     string        `yaml:"data_dir" toml:"data_dir"`
}

func Default() Config {
	return Config{
		MCP: MCPConfig{
			Command:  mcp.DefaultCommand,
			Args:     append([]string(nil), mcp.DefaultArgs...),
			NodePath: mcp.DefaultNodePath,
			Timeout:  DefaultToolTimeout,
		},
		LLM: LLMConfig{
			Provider:         DefaultProvider,
			Model:            DefaultModel,
			APIVersion:       openai.DefaultAzureAPIVersion,
			Temperature:      chat.DefaultTemperature,
			FinalTemperature: chat.DefaultFinalTemperature,
		},
		Upload: UploadConfig{
			BatchSize:   algolia.DefaultBatchSize,
			Pause:       algolia.DefaultPause,
			ClearWait:   algolia.DefaultClearWait,
			RecordLimit: record.DefaultLimit,
			DataDir:     ".",
		},
		PromptFile: prompt.DefaultFile,
		LogLevel:   DefaultLogLevel,
	}
}

// Options for Load.
type Options struct {
	// ConfigPath is the config file. When empty, DefaultConfigFile is used
	// if it exists.
	ConfigPath string
	// Dir is where the default config file and the dotenv files are
	// looked up. Empty means the working directory.
	Dir string
	// SkipValidate disables Validate, e.g. for commands that only need
	// part of the settings.
	SkipValidate bool
}

// Load builds the configuration.
func Load(opts Options) (*Config, error) {
	if err := loadDotEnv(opts.Dir); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := mergeFile(&cfg, opts); err != nil {
		return nil, err
	}
	mergeEnv(&cfg)

	if !opts.SkipValidate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// loadDotEnv sets variables from .env and .env.local that are not already
// in the environment. .env wins over .env.local.
func loadDotEnv(dir string) error {
	for _, name := range []string{".env", ".env.local"} {
		values, err := godotenv.Read(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		for k, v := range values {
			if _, exists := os.LookupEnv(k); !exists {
				if err := os.Setenv(k, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func mergeFile(cfg *Config, opts Options) error {
	path := opts.ConfigPath
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if !filepath.IsAbs(path) && opts.Dir != "" {
		path = filepath.Join(opts.Dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("malformed TOML in %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("malformed YAML in %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config file %s: unsupported extension (want .yaml, .yml or .toml)", path)
	}
	return nil
}

func mergeEnv(cfg *Config) {
	if v := env("ALGOLIA_APP_ID"); v != "" {
		cfg.Algolia.AppID = v
	}
	if v := env("ALGOLIA_API_KEY"); v != "" {
		cfg.Algolia.APIKey = v
	}
	if v := env("MCP_NODE_PATH"); v != "" {
		cfg.MCP.NodePath = v
	}
	if v := env("INDEXPILOT_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := env("INDEXPILOT_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := env("INDEXPILOT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := env("INDEXPILOT_HISTORY"); v != "" {
		cfg.History = v
	}
	if v := env("INDEXPILOT_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Upload.BatchSize = n
		}
	}

	switch cfg.LLM.Provider {
	case "azure":
		if v := env("AZURE_OPENAI_API_BASE"); v != "" {
			cfg.LLM.Endpoint = v
		}
		if v := env("AZURE_OPENAI_API_KEY"); v != "" {
			cfg.LLM.APIKey = v
		}
		if v := env("AZURE_OPENAI_API_VERSION"); v != "" {
			cfg.LLM.APIVersion = v
		}
	case "openai":
		if v := env("OPENAI_API_KEY"); v != "" {
			cfg.LLM.APIKey = v
		}
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// MCPServer returns the launch description of the Algolia MCP server.
func (c *Config) MCPServer() mcp.Server {
	s := mcp.AlgoliaServer(c.MCP.NodePath, c.Algolia.AppID, c.Algolia.APIKey)
	if c.MCP.Command != "" {
		s.Command = c.MCP.Command
	}
	if len(c.MCP.Args) > 0 {
		s.Args = append([]string(nil), c.MCP.Args...)
	}
	return s
}

// ProviderSettings returns the chat provider settings.
func (c *Config) ProviderSettings() provider.Settings {
	return provider.Settings{
		APIKey:     c.LLM.APIKey,
		Endpoint:   c.LLM.Endpoint,
		APIVersion: c.LLM.APIVersion,
		Deployment: c.LLM.Deployment,
	}
}

// CallOptions returns the sampling options applied to every model call.
func (c *Config) CallOptions() []llm.Option {
	var opts []llm.Option
	if c.LLM.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(c.LLM.MaxTokens))
	}
	if c.LLM.TopP > 0 {
		opts = append(opts, llm.WithTopP(c.LLM.TopP))
	}
	if c.LLM.Seed != nil {
		opts = append(opts, llm.WithSeed(*c.LLM.Seed))
	}
	return opts
}

// UploadOptions returns uploader options for the configured upload settings.
func (c *Config) UploadOptions() []algolia.UploadOption {
	return []algolia.UploadOption{
		algolia.WithBatchSize(c.Upload.BatchSize),
		algolia.WithPause(c.Upload.Pause),
		algolia.WithClearWait(c.Upload.ClearWait),
		algolia.WithLimit(c.Upload.RecordLimit),
	}
}

// AlgoliaClient creates a REST client for the configured application.
func (c *Config) AlgoliaClient() (*algolia.Client, error) {
	var opts []algolia.Option
	if c.Algolia.BaseURL != "" {
		opts = append(opts, algolia.WithBaseURL(c.Algolia.BaseURL))
	}
	return algolia.NewClient(c.Algolia.AppID, c.Algolia.APIKey, opts...)
}
