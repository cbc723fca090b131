package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// GeminiBackend calls Gemini through the genai SDK.
type GeminiBackend struct {
	client *genai.Client
}

func NewGeminiBackend(ctx context.Context, apiKey string) (*GeminiBackend, error) {
	config := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		config.APIKey = apiKey
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, err
	}
	return &GeminiBackend{client: client}, nil
}

func (g *GeminiBackend) Name() string { return "gemini" }

func (g *GeminiBackend) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(float32(cfg.Temperature)),
	}
	if cfg.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, cfg.Model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", wrapError(g.Name(), geminiStatus(err), err)
	}
	text := resp.Text()
	if text == "" {
		return "", &BackendError{Provider: g.Name(), Message: "empty response"}
	}
	return text, nil
}

func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}
