package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"

	"github.com/phrazzld/mjqueue/internal/config"
)

const defaultModel = "gemini-2.0-flash"

const systemInstruction = "Translate the user's image generation prompt into English. " +
	"Keep parameters such as --ar or --v and any URLs unchanged. " +
	"Reply with the translated prompt only."

// contentGenerator is the subset of *genai.Models used by the translator.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		cfg *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Translator translates prompts to English with Gemini.
type Translator struct {
	models     contentGenerator
	model      string
	maxRetries uint64
	logger     *slog.Logger
}

// NewTranslator creates a Translator from LLM settings.
func NewTranslator(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Translator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return newTranslator(client.Models, cfg.ModelName, logger), nil
}

func newTranslator(models contentGenerator, model string, logger *slog.Logger) *Translator {
	if model == "" {
		model = defaultModel
	}
	return &Translator{
		models:     models,
		model:      model,
		maxRetries: 2,
		logger:     logger.With("component", "gemini_translator"),
	}
}

// Translate returns prompt in English. Prompts without CJK characters are
// returned as is.
func (t *Translator) Translate(ctx context.Context, prompt string) (string, error) {
	if !ContainsCJK(prompt) {
		return prompt, nil
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}

	var out string
	backoff := retry.WithMaxRetries(t.maxRetries, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := t.models.GenerateContent(ctx, t.model, genai.Text(prompt), cfg)
		if err != nil {
			t.logger.WarnContext(ctx, "gemini call failed", "error", err)
			return retry.RetryableError(err)
		}
		out = strings.TrimSpace(resp.Text())
		if out == "" {
			return errors.New("empty translation")
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}

	t.logger.DebugContext(ctx, "prompt translated",
		"prompt_length", len(prompt),
		"translated_length", len(out))
	return out, nil
}

// ContainsCJK reports whether s contains Han characters.
func ContainsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// Passthrough returns prompts unchanged. It is used when no API key is configured.
type Passthrough struct{}

// Translate implements the translator contract.
func (Passthrough) Translate(_ context.Context, prompt string) (string, error) {
	return prompt, nil
}
