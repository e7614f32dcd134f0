// Package openai provides chat-completion providers for the OpenAI API and
// for Azure OpenAI deployments.
package openai

import (
	"context"
	"net/http"
	"os"

	"github.com/i2y/indexpilot/provider"
)

// DefaultAzureAPIVersion is the Azure OpenAI API version used when none is set.
const DefaultAzureAPIVersion = "2025-02-01-preview"

func init() {
	provider.Register("openai", func(s provider.Settings) (provider.Provider, error) {
		return New(fromSettings(s)...)
	})
	provider.Register("azure", func(s provider.Settings) (provider.Provider, error) {
		return NewAzure(fromSettings(s)...)
	})
}

func fromSettings(s provider.Settings) []Option {
	var opts []Option
	if s.APIKey != "" {
		opts = append(opts, WithAPIKey(s.APIKey))
	}
	if s.Endpoint != "" {
		opts = append(opts, WithBaseURL(s.Endpoint))
	}
	if s.APIVersion != "" {
		opts = append(opts, WithAPIVersion(s.APIVersion))
	}
	if s.Deployment != "" {
		opts = append(opts, WithDeployment(s.Deployment))
	}
	return opts
}

// Provider implements the chat completions API.
type Provider struct {
	name   string
	client *client
}

// Option configures the provider.
type Option func(*providerConfig)

type providerConfig struct {
	apiKey     string
	baseURL    string
	apiVersion string
	deployment string
	httpClient *http.Client
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *providerConfig) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom base URL. For Azure this is the resource
// endpoint, e.g. https://my-resource.openai.azure.com.
func WithBaseURL(url string) Option {
	return func(c *providerConfig) {
		c.baseURL = url
	}
}

// WithAPIVersion sets the Azure api-version query parameter.
func WithAPIVersion(version string) Option {
	return func(c *providerConfig) {
		c.apiVersion = version
	}
}

// WithDeployment sets the Azure deployment name. By default the request
// model name is used as the deployment.
func WithDeployment(name string) Option {
	return func(c *providerConfig) {
		c.deployment = name
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *providerConfig) {
		c.httpClient = client
	}
}

func buildConfig(opts []Option) *providerConfig {
	cfg := &providerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = http.DefaultClient
	}
	return cfg
}

// New creates a provider for api.openai.com.
func New(opts ...Option) (*Provider, error) {
	cfg := buildConfig(opts)

	// Fall back to environment variable
	if cfg.apiKey == "" {
		cfg.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.apiKey == "" {
		return nil, &APIError{
			Message: "OpenAI API key required: set OPENAI_API_KEY or use WithAPIKey",
		}
	}
	if cfg.baseURL == "" {
		cfg.baseURL = defaultBaseURL
	}

	return &Provider{
		name: "openai",
		client: &client{
			apiKey:     cfg.apiKey,
			baseURL:    cfg.baseURL,
			httpClient: cfg.httpClient,
		},
	}, nil
}

// NewAzure creates a provider for an Azure OpenAI resource.
// Unset options fall back to AZURE_OPENAI_API_KEY, AZURE_OPENAI_API_BASE
// and AZURE_OPENAI_API_VERSION.
func NewAzure(opts ...Option) (*Provider, error) {
	cfg := buildConfig(opts)

	if cfg.apiKey == "" {
		cfg.apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
	}
	if cfg.baseURL == "" {
		cfg.baseURL = os.Getenv("AZURE_OPENAI_API_BASE")
	}
	if cfg.apiVersion == "" {
		cfg.apiVersion = os.Getenv("AZURE_OPENAI_API_VERSION")
	}
	if cfg.apiVersion == "" {
		cfg.apiVersion = DefaultAzureAPIVersion
	}

	if cfg.apiKey == "" {
		return nil, &APIError{Message: "Azure OpenAI API key required: set AZURE_OPENAI_API_KEY or use WithAPIKey"}
	}
	if cfg.baseURL == "" {
		return nil, &APIError{Message: "Azure OpenAI endpoint required: set AZURE_OPENAI_API_BASE or use WithBaseURL"}
	}

	return &Provider{
		name: "azure",
		client: &client{
			apiKey:     cfg.apiKey,
			baseURL:    cfg.baseURL,
			azure:      true,
			apiVersion: cfg.apiVersion,
			deployment: cfg.deployment,
			httpClient: cfg.httpClient,
		},
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Call implements provider.Provider.
func (p *Provider) Call(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	apiResp, err := p.client.chatCompletion(ctx, buildRequest(req))
	if err != nil {
		return nil, err
	}
	return convertResponse(apiResp), nil
}

// buildRequest converts a provider.Request to an API request.
func buildRequest(req *provider.Request) *chatCompletionRequest {
	apiReq := &chatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]message, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Seed:        req.Seed,
	}

	for _, msg := range req.Messages {
		content := msg.Content
		apiMsg := message{
			Role:    string(msg.Role),
			Content: &content,
		}

		if msg.Role == provider.RoleTool {
			apiMsg.ToolCallID = msg.ToolID
			apiMsg.Name = msg.Name
		}

		if len(msg.ToolCalls) > 0 {
			// An assistant turn that only proposes calls carries null content.
			if msg.Content == "" {
				apiMsg.Content = nil
			}
			apiMsg.ToolCalls = make([]toolCall, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				apiMsg.ToolCalls[i] = toolCall{
					ID:   tc.ID,
					Type: "function",
					Function: functionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
		}

		apiReq.Messages = append(apiReq.Messages, apiMsg)
	}

	for _, tool := range req.Tools {
		def := toolDef{Type: "function"}
		def.Function.Name = tool.Name
		def.Function.Description = tool.Description
		def.Function.Parameters = tool.Parameters
		apiReq.Tools = append(apiReq.Tools, def)
	}
	if len(apiReq.Tools) > 0 {
		apiReq.ToolChoice = string(req.ToolChoice)
	}

	return apiReq
}

// convertResponse converts an API response to a provider.Response.
func convertResponse(resp *chatCompletionResponse) *provider.Response {
	if len(resp.Choices) == 0 {
		return &provider.Response{}
	}

	choice := resp.Choices[0]
	result := &provider.Response{
		FinishReason: convertFinishReason(choice.FinishReason),
		Usage:        resp.Usage.toProvider(),
	}
	if choice.Message.Content != nil {
		result.Content = *choice.Message.Content
	}

	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return result
}

// convertFinishReason converts an API finish reason to a provider.FinishReason.
func convertFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "tool_calls":
		return provider.FinishReasonToolCalls
	case "length":
		return provider.FinishReasonLength
	default:
		return provider.FinishReasonStop
	}
}
