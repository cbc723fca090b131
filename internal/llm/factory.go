package llm

import (
	"context"
	"fmt"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/config"
)

const systemInstruction = "Você é um corretor especialista em redações do ENEM. Responda apenas com JSON válido, sem texto adicional."

// New builds the backend selected by the configuration.
func New(ctx context.Context, cfg config.GenerationConfig) (Backend, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIBackend(cfg.OpenAIKey, cfg.BaseURL, cfg.TransportRetries)
	case config.ProviderAnthropic:
		return NewAnthropicBackend(cfg.AnthropicKey, cfg.BaseURL, cfg.TransportRetries)
	case config.ProviderGemini:
		return NewGeminiBackend(ctx, cfg.GeminiKey)
	case config.ProviderMock:
		return MockBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

// ConfigFrom extracts the per-call generation settings.
func ConfigFrom(cfg config.GenerationConfig) GenerateConfig {
	temperature := config.DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	return GenerateConfig{
		Model:           cfg.Model,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     temperature,
	}
}
