package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"agency-site/internal/usecase/copywriting"
)

// ProviderClaude is the provider label for the Anthropic backend.
const ProviderClaude = "claude"

// Claude implements copywriting.Generator using Anthropic's Messages API.
type Claude struct {
	client   anthropic.Client
	pipeline *pipeline
}

// NewClaude creates a Claude generator. SDK-level retries are disabled
// because the pipeline retries with its own policy.
func NewClaude(apiKey string, cfg Config) *Claude {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}

	slog.Info("Initialized Claude generator",
		slog.String("model", cfg.Model),
		slog.Int("max_tokens", cfg.MaxTokens))

	return &Claude{
		client:   anthropic.NewClient(opts...),
		pipeline: newPipeline(ProviderClaude, cfg),
	}
}

// Name implements copywriting.Generator.
func (c *Claude) Name() string { return ProviderClaude }

// CircuitState returns the state of the provider circuit breaker.
func (c *Claude) CircuitState() gobreaker.State { return c.pipeline.circuitState() }

// Generate implements copywriting.Generator.
func (c *Claude) Generate(ctx context.Context, req copywriting.Request) (string, error) {
	return c.pipeline.run(ctx, req, c.doGenerate)
}

// doGenerate performs one API call without retry or circuit breaker.
func (c *Claude) doGenerate(ctx context.Context, req copywriting.Request) (completion, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.pipeline.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(req.Prompt),
			),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return completion{}, fmt.Errorf("claude api error: %w", classifyClaudeError(err))
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	if sb.Len() == 0 {
		return completion{}, fmt.Errorf("claude api returned no text content")
	}

	return completion{
		text:         sb.String(),
		inputTokens:  message.Usage.InputTokens,
		outputTokens: message.Usage.OutputTokens,
	}, nil
}

func classifyClaudeError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	var header http.Header
	if apiErr.Response != nil {
		header = apiErr.Response.Header
	}
	return httpError(apiErr.StatusCode, http.StatusText(apiErr.StatusCode), header)
}
