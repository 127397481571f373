package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-oracle/internal/config"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// New builds the chat model for the configured provider. Groq is reached
// through its OpenAI-compatible endpoint.
func New(llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("provider", llmConfig.Provider).Str("model", llmConfig.Model).Str("base_url", llmConfig.BaseURL).Msg("Creating LLM client")

	switch llmConfig.Provider {
	case "openai", "groq":
		if llmConfig.Key == "" {
			return nil, fmt.Errorf("missing API key for %s: set %s", llmConfig.Provider, llmConfig.KeyEnv)
		}
		baseURL := llmConfig.BaseURL
		if baseURL == "" && llmConfig.Provider == "groq" {
			baseURL = groqBaseURL
		}
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", llmConfig.Provider)
	}
}

// GenerateContent calls the model, handing each streamed fragment to
// onToken in emission order when it is not nil.
func GenerateContent(ctx context.Context, llm llms.Model, messages []llms.MessageContent, onToken func(string)) (*llms.ContentResponse, error) {
	var opts []llms.CallOption
	if onToken != nil {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			onToken(string(chunk))
			return nil
		}))
	}
	return llm.GenerateContent(ctx, messages, opts...)
}
