package llm

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend calls the chat completions API through the official SDK.
type OpenAIBackend struct {
	client openai.Client
}

func NewOpenAIBackend(apiKey, baseURL string, maxRetries int) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing; set generation.openaiKey or OPENAI_API_KEY")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(maxRetries)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIBackend{client: openai.NewClient(opts...)}, nil
}

func (o *OpenAIBackend) Name() string { return "openai" }

func (o *OpenAIBackend) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(cfg.Temperature),
	}
	if cfg.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(cfg.MaxOutputTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", wrapError(o.Name(), apiErr.StatusCode, err)
		}
		return "", wrapError(o.Name(), 0, err)
	}
	if len(resp.Choices) == 0 {
		return "", &BackendError{Provider: o.Name(), Message: "empty choices"}
	}
	return resp.Choices[0].Message.Content, nil
}
