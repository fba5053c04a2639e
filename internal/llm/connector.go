package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Config contains the configuration for a connector.
type Config struct {
	Token     string
	Model     string
	BaseURL   string
	MaxTokens int
}

// Connector is a connection to an OpenAI-compatible model endpoint.
type Connector struct {
	llm    llms.Model
	config Config
}

// NewConnector creates a connector for the configured model.
func NewConnector(config Config) (*Connector, error) {
	log.Debug().
		Str("model", config.Model).
		Str("base_url", config.BaseURL).
		Msg("Creating new connector")

	opts := []openai.Option{
		openai.WithModel(config.Model),
		openai.WithToken(config.Token),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create model %s: %w", config.Model, err)
	}

	return &Connector{llm: model, config: config}, nil
}

// Generate calls the model with the given prompt and returns the response.
// Options passed by the caller take precedence over the connector defaults.
func (c *Connector) Generate(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	var callOptions []llms.CallOption
	if c.config.MaxTokens > 0 {
		callOptions = append(callOptions, llms.WithMaxTokens(c.config.MaxTokens))
	}
	callOptions = append(callOptions, options...)

	return llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, callOptions...)
}

// Model returns the model name from the config.
func (c *Connector) Model() string {
	return c.config.Model
}
