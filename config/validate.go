package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/i2y/indexpilot/provider"
)

// Error reports an invalid or missing setting.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.Algolia.AppID == "" {
		return &Error{Field: "algolia.app_id", Reason: "missing (set ALGOLIA_APP_ID)"}
	}
	if c.Algolia.APIKey == "" {
		return &Error{Field: "algolia.api_key", Reason: "missing (set ALGOLIA_API_KEY)"}
	}
	if c.Upload.BatchSize <= 0 {
		return &Error{Field: "upload.batch_size", Reason: "must be positive"}
	}
	if c.Upload.RecordLimit <= 0 {
		return &Error{Field: "upload.record_limit", Reason: "must be positive"}
	}
	if c.Upload.Pause < 0 || c.Upload.ClearWait < 0 {
		return &Error{Field: "upload", Reason: "pause and clear_wait must not be negative"}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return &Error{Field: "log_level", Reason: err.Error()}
	}
	return nil
}

// ValidateChat checks the settings of the chat model on top of Validate.
func (c *Config) ValidateChat() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.LLM.Model == "" {
		return &Error{Field: "llm.model", Reason: "missing"}
	}
	if !provider.IsRegistered(c.LLM.Provider) {
		return &Error{Field: "llm.provider", Reason: fmt.Sprintf("unknown provider %q (available: %v)", c.LLM.Provider, provider.Available())}
	}
	if c.LLM.APIKey == "" {
		return &Error{Field: "llm.api_key", Reason: "missing (set AZURE_OPENAI_API_KEY or OPENAI_API_KEY)"}
	}
	if c.LLM.Provider == "azure" && c.LLM.Endpoint == "" {
		return &Error{Field: "llm.endpoint", Reason: "missing (set AZURE_OPENAI_API_BASE)"}
	}
	if c.LLM.MaxTokens < 0 {
		return &Error{Field: "llm.max_tokens", Reason: "must not be negative"}
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		return &Error{Field: "llm.top_p", Reason: "must be between 0 and 1"}
	}
	return nil
}
