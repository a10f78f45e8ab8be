package copywriting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agency-site/internal/utils/text"
)

// Service generates marketing copy from briefs.
// It validates input, renders prompts from presets and delegates to a Generator.
type Service struct {
	generator Generator
	presets   Presets
}

// NewService creates a new copywriting service.
func NewService(generator Generator, presets Presets) *Service {
	return &Service{
		generator: generator,
		presets:   presets,
	}
}

// ValidateAd normalizes and validates an ad brief without generating anything.
// Callers use it to reject bad input before spending quota.
func (s *Service) ValidateAd(b *AdBrief) error {
	b.Normalize()
	return b.Validate()
}

// ValidateEmail normalizes and validates an email brief.
func (s *Service) ValidateEmail(b *EmailBrief) error {
	b.Normalize()
	return b.Validate()
}

// GenerateAd writes advertisement copy for the brief.
//
// Returns ErrInvalidBrief (wrapped) for bad input, ErrEmptyCompletion when the
// backend answers with whitespace only, or the backend error.
func (s *Service) GenerateAd(ctx context.Context, b AdBrief) (string, error) {
	if err := s.ValidateAd(&b); err != nil {
		return "", err
	}
	return s.generate(ctx, KindAd, buildAdPrompt(b))
}

// GenerateEmail writes a marketing email for the brief.
func (s *Service) GenerateEmail(ctx context.Context, b EmailBrief) (string, error) {
	if err := s.ValidateEmail(&b); err != nil {
		return "", err
	}
	return s.generate(ctx, KindEmail, buildEmailPrompt(b))
}

func (s *Service) generate(ctx context.Context, kind Kind, prompt string) (string, error) {
	preset := s.presets.For(kind)
	start := time.Now()

	out, err := s.generator.Generate(ctx, Request{
		Prompt:       prompt,
		SystemPrompt: preset.SystemPrompt,
		MaxTokens:    preset.MaxTokens,
		Temperature:  preset.Temperature,
	})
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, ErrGeneratorUnavailable) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "copy generation failed",
			slog.String("kind", string(kind)),
			slog.String("generator", s.generator.Name()),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		return "", fmt.Errorf("generate %s copy: %w", kind, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("generate %s copy: %w", kind, ErrEmptyCompletion)
	}

	slog.InfoContext(ctx, "copy generated",
		slog.String("kind", string(kind)),
		slog.String("generator", s.generator.Name()),
		slog.Int("length", text.CountRunes(out)),
		slog.Duration("duration", time.Since(start)))

	return out, nil
}
