package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"urlsum/internal/config"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// Summarizer turns a composed prompt into generated text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Factory builds a fresh Summarizer bound to one credential.
type Factory func(ctx context.Context, credential string) (Summarizer, error)

// NewFactory picks the provider implementation from cfg.
func NewFactory(cfg config.LLM, httpClient *http.Client) (Factory, error) {
	switch cfg.Provider {
	case config.ProviderGroq, config.ProviderOpenAI:
		return func(_ context.Context, credential string) (Summarizer, error) {
			return NewOpenAI(OpenAIConfig{
				APIKey:     credential,
				Model:      cfg.Model,
				BaseURL:    cfg.BaseURL,
				Timeout:    cfg.Timeout,
				HTTPClient: httpClient,
			})
		}, nil
	case config.ProviderGemini:
		return func(ctx context.Context, credential string) (Summarizer, error) {
			return NewGemini(ctx, GeminiConfig{
				APIKey:     credential,
				Model:      cfg.Model,
				BaseURL:    cfg.BaseURL,
				Timeout:    cfg.Timeout,
				HTTPClient: httpClient,
			})
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", cfg.Provider)
	}
}

// StatusCode returns the HTTP status of a provider API error, or 0.
func StatusCode(err error) int {
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode
	}

	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code
	}

	var geminiErrPtr *genai.APIError
	if errors.As(err, &geminiErrPtr) {
		return geminiErrPtr.Code
	}

	return 0
}
