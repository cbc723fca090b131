package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend calls the Messages API.
type AnthropicBackend struct {
	client anthropic.Client
}

func NewAnthropicBackend(apiKey, baseURL string, maxRetries int) (*AnthropicBackend, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key missing; set generation.anthropicKey or ANTHROPIC_API_KEY")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(maxRetries)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicBackend{client: anthropic.NewClient(opts...)}, nil
}

func (a *AnthropicBackend) Name() string { return "anthropic" }

func (a *AnthropicBackend) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	maxTokens := int64(cfg.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(cfg.Model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(cfg.Temperature),
		System:      []anthropic.TextBlockParam{{Text: systemInstruction}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", wrapError(a.Name(), apiErr.StatusCode, err)
		}
		return "", wrapError(a.Name(), 0, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &BackendError{Provider: a.Name(), Message: "no text content in response"}
	}
	return sb.String(), nil
}
