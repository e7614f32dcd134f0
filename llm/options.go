package llm

import (
	"github.com/i2y/indexpilot/provider"
	"github.com/i2y/indexpilot/toolspec"
)

// Option configures an LLM call.
type Option func(*callConfig)

// callConfig holds all configuration for a call.
type callConfig struct {
	providerName  string
	settings      provider.Settings
	client        provider.Provider
	model         string
	temperature   *float64
	maxTokens     *int
	topP          *float64
	seed          *int
	systemMessage string
	tools         []Tool
	toolChoice    provider.ToolChoice
}

func newCallConfig() *callConfig {
	return &callConfig{}
}

func (c *callConfig) apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithProvider sets the registered provider by name (e.g., "azure", "openai").
func WithProvider(name string) Option {
	return func(c *callConfig) {
		c.providerName = name
	}
}

// WithSettings sets the connection settings passed to the provider factory.
func WithSettings(s provider.Settings) Option {
	return func(c *callConfig) {
		c.settings = s
	}
}

// WithClient uses p directly instead of looking a provider up by name.
func WithClient(p provider.Provider) Option {
	return func(c *callConfig) {
		c.client = p
	}
}

// WithModel sets the model to use (e.g., "gpt-4o").
func WithModel(name string) Option {
	return func(c *callConfig) {
		c.model = name
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *callConfig) {
		c.temperature = &t
	}
}

// WithMaxTokens sets the maximum tokens in the response.
func WithMaxTokens(n int) Option {
	return func(c *callConfig) {
		c.maxTokens = &n
	}
}

// WithTopP sets the nucleus sampling parameter (0.0 to 1.0).
func WithTopP(p float64) Option {
	return func(c *callConfig) {
		c.topP = &p
	}
}

// WithSeed sets a random seed for reproducibility.
func WithSeed(seed int) Option {
	return func(c *callConfig) {
		c.seed = &seed
	}
}

// WithSystemMessage sets a system message.
func WithSystemMessage(msg string) Option {
	return func(c *callConfig) {
		c.systemMessage = msg
	}
}

// WithTools adds tools the model can use.
func WithTools(tools ...Tool) Option {
	return func(c *callConfig) {
		c.tools = append(c.tools, tools...)
	}
}

// WithoutTools drops every tool added so far.
func WithoutTools() Option {
	return func(c *callConfig) {
		c.tools = nil
	}
}

// WithToolChoice sets whether the model may propose tool calls.
func WithToolChoice(choice provider.ToolChoice) Option {
	return func(c *callConfig) {
		c.toolChoice = choice
	}
}

// buildRequest creates a provider.Request from the config and prompt.
func (c *callConfig) buildRequest(prompt string) (*provider.Request, error) {
	var messages []Message

	if c.systemMessage != "" {
		messages = append(messages, SystemMessage(c.systemMessage))
	}
	if prompt != "" {
		messages = append(messages, UserMessage(prompt))
	}

	return c.buildRequestFromMessages(messages)
}

// buildRequestFromMessages creates a provider.Request from messages.
// Tool schemas are adapted to the function-calling format.
func (c *callConfig) buildRequestFromMessages(messages []Message) (*provider.Request, error) {
	req := &provider.Request{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		TopP:        c.topP,
		Seed:        c.seed,
		Messages:    messages,
	}

	for _, tool := range c.tools {
		def, err := ToolDef(tool)
		if err != nil {
			return nil, err
		}
		req.Tools = append(req.Tools, def)
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = c.toolChoice
		if req.ToolChoice == "" {
			req.ToolChoice = provider.ToolChoiceAuto
		}
	}

	return req, nil
}

// ToolDef adapts a tool's parameter schema to the function-calling format.
func ToolDef(t Tool) (provider.ToolDef, error) {
	return toolspec.ConvertRaw(t.Name(), t.Description(), t.Parameters()).ToolDef()
}
