package llm

import "context"

// Model represents a configured model with default options.
// It provides a convenient way to reuse common configuration.
//
// Example:
//
//	model := llm.NewModel("azure", "gpt-4o",
//	    llm.WithSettings(provider.Settings{Endpoint: endpoint, APIKey: key}),
//	)
//
//	resp, err := model.CallMessages(ctx, history, llm.WithTemperature(0.3))
type Model struct {
	providerName string
	modelName    string
	baseOpts     []Option
}

// NewModel creates a new Model with the given provider and model name.
// Additional options can be provided as default configuration.
func NewModel(providerName, modelName string, opts ...Option) *Model {
	return &Model{
		providerName: providerName,
		modelName:    modelName,
		baseOpts:     opts,
	}
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.modelName
}

// Call makes a call using this model's configuration.
// Per-call options override the model's base options.
func (m *Model) Call(ctx context.Context, prompt string, opts ...Option) (Response, error) {
	return Call(ctx, prompt, m.mergeOptions(opts)...)
}

// CallMessages makes a call with message history using this model.
func (m *Model) CallMessages(ctx context.Context, messages []Message, opts ...Option) (Response, error) {
	return CallMessages(ctx, messages, m.mergeOptions(opts)...)
}

// mergeOptions combines base options with per-call options.
func (m *Model) mergeOptions(opts []Option) []Option {
	allOpts := make([]Option, 0, len(m.baseOpts)+len(opts)+2)
	allOpts = append(allOpts, WithProvider(m.providerName), WithModel(m.modelName))
	allOpts = append(allOpts, m.baseOpts...)
	allOpts = append(allOpts, opts...) // Per-call opts override base opts
	return allOpts
}
