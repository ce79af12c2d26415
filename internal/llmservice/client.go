package llmservice

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"tutor-rag/internal/config"
	"tutor-rag/internal/models"
	"tutor-rag/internal/prompt"
)

// Result is one completed generation.
type Result struct {
	Content  string
	Usage    models.TokenUsage
	Latency  time.Duration
	Attempts int
}

// Generator sends an assembled prompt to a text-generation backend.
type Generator interface {
	Generate(ctx context.Context, req prompt.Request) (*Result, error)
}

// Client calls the configured chat model, retrying transient backend
// failures with exponential backoff and failing fast on auth, quota
// and malformed-request errors.
type Client struct {
	model llms.Model
	cfg   *config.LLMConfig
}

func NewClient(cfg *config.LLMConfig) (*Client, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "ollama":
		model, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		model, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	}
	if err != nil {
		return nil, err
	}
	return &Client{model: model, cfg: cfg}, nil
}

// NewClientWithModel wires an existing model in; the tests use this
// with fakes.
func NewClientWithModel(model llms.Model, cfg *config.LLMConfig) *Client {
	return &Client{model: model, cfg: cfg}
}

func (c *Client) Generate(ctx context.Context, req prompt.Request) (*Result, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.User),
	}

	start := time.Now()
	attempts := 0

	var resp *llms.ContentResponse
	operation := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
		defer cancel()

		var err error
		resp, err = c.model.GenerateContent(attemptCtx, messages,
			llms.WithTemperature(c.cfg.Temperature),
			llms.WithMaxTokens(c.cfg.MaxTokens),
		)
		if err == nil {
			return nil
		}
		genErr := Classify(err)
		if genErr.Kind == models.GeneratorFatal {
			return backoff.Permanent(genErr)
		}
		log.Warn().Err(err).Int("attempt", attempts).Msg("transient generation failure, retrying")
		return genErr
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.cfg.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		var genErr *models.GeneratorError
		if !errors.As(err, &genErr) {
			genErr = Classify(err)
		}
		return &Result{Attempts: attempts, Latency: time.Since(start)}, genErr
	}

	if len(resp.Choices) == 0 {
		return &Result{Attempts: attempts, Latency: time.Since(start)},
			&models.GeneratorError{Kind: models.GeneratorFatal, Err: errors.New("backend returned no choices")}
	}
	choice := resp.Choices[0]

	return &Result{
		Content:  strings.TrimSpace(choice.Content),
		Usage:    usageFrom(choice.GenerationInfo),
		Latency:  time.Since(start),
		Attempts: attempts,
	}, nil
}

// fatalStatus matches the non-retryable HTTP status codes on a word
// boundary, so "timeout after 400ms" or a port number never counts.
var fatalStatus = regexp.MustCompile(`\b(400|401|403)\b`)

// Classify splits a backend error into retryable and fatal kinds.
// Auth, quota and malformed-request failures cannot succeed on retry;
// everything else (rate limits, timeouts, 5xx) is worth another
// bounded attempt.
func Classify(err error) *models.GeneratorError {
	msg := strings.ToLower(err.Error())
	if fatalStatus.MatchString(msg) {
		return &models.GeneratorError{Kind: models.GeneratorFatal, Err: err}
	}
	fatal := []string{
		"unauthorized", "invalid api key", "invalid_api_key",
		"insufficient_quota", "quota exceeded", "invalid request", "malformed",
	}
	for _, marker := range fatal {
		if strings.Contains(msg, marker) {
			return &models.GeneratorError{Kind: models.GeneratorFatal, Err: err}
		}
	}
	return &models.GeneratorError{Kind: models.GeneratorTransient, Err: err}
}

func usageFrom(info map[string]any) models.TokenUsage {
	return models.TokenUsage{
		PromptTokens:     intFrom(info, "PromptTokens"),
		CompletionTokens: intFrom(info, "CompletionTokens"),
		TotalTokens:      intFrom(info, "TotalTokens"),
	}
}

func intFrom(info map[string]any, key string) int {
	if info == nil {
		return 0
	}
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
