package llm

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Provider identifies an LLM back-end.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

// Config holds LLM client configuration.
type Config struct {
	Provider Provider
	APIKey   string // Required for openai/anthropic; ignored by ollama
	BaseURL  string // Optional: custom API endpoint. Ollama defaults to the local daemon.
	Model    string // Model name (e.g., "gpt-4o-mini", "claude-3-5-haiku-latest", "llama3.1")
}

// Request is a single text-generation call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Usage reports token accounting when the provider supplies it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Response is the provider-neutral result of one generation call.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Client is a minimal text-generation client backed by one provider.
// Implementations are safe for concurrent use.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Model() string
	Provider() Provider
}

// New creates a Client for the configured provider.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	case ProviderOllama:
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// GenerateSchemaFrom generates a JSON schema from an instance value. The
// schema is embedded in prompts so providers without native structured
// output still see the expected response shape.
func GenerateSchemaFrom(v any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}
