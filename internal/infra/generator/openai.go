package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"agency-site/internal/usecase/copywriting"
)

// ProviderOpenAI is the provider label for the OpenAI backend.
const ProviderOpenAI = "openai"

// OpenAI implements copywriting.Generator using the Chat Completions API.
type OpenAI struct {
	client   *openai.Client
	pipeline *pipeline
}

// NewOpenAI creates an OpenAI generator. A BaseURL override is the server
// root; the "/v1" API prefix is appended here.
func NewOpenAI(apiKey string, cfg Config) *OpenAI {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL + "/v1"
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	slog.Info("Initialized OpenAI generator",
		slog.String("model", cfg.Model),
		slog.Int("max_tokens", cfg.MaxTokens))

	return &OpenAI{
		client:   openai.NewClientWithConfig(clientCfg),
		pipeline: newPipeline(ProviderOpenAI, cfg),
	}
}

// Name implements copywriting.Generator.
func (o *OpenAI) Name() string { return ProviderOpenAI }

// CircuitState returns the state of the provider circuit breaker.
func (o *OpenAI) CircuitState() gobreaker.State { return o.pipeline.circuitState() }

// Generate implements copywriting.Generator.
func (o *OpenAI) Generate(ctx context.Context, req copywriting.Request) (string, error) {
	return o.pipeline.run(ctx, req, o.doGenerate)
}

// doGenerate performs one API call without retry or circuit breaker.
func (o *OpenAI) doGenerate(ctx context.Context, req copywriting.Request) (completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.pipeline.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return completion{}, fmt.Errorf("openai api error: %w", classifyOpenAIError(err))
	}

	// Safety check to prevent panic on array access
	if len(resp.Choices) == 0 {
		return completion{}, fmt.Errorf("openai api returned no choices")
	}

	return completion{
		text:         resp.Choices[0].Message.Content,
		inputTokens:  int64(resp.Usage.PromptTokens),
		outputTokens: int64(resp.Usage.CompletionTokens),
	}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return httpError(apiErr.HTTPStatusCode, apiErr.Message, nil)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return httpError(reqErr.HTTPStatusCode, http.StatusText(reqErr.HTTPStatusCode), nil)
	}
	return err
}
