package papagaio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Generator is the boundary to the hosted generative model. It's treated as
// an opaque async operation: it either returns reply text or an error, and
// the pipeline never inspects anything beyond that.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// newGenerator builds the configured backend, wrapped with a per-call
// timeout and a process-wide rate limit.
func newGenerator(
	ctx context.Context,
	config *LLMConfig,
	logger *slog.Logger,
) (Generator, error) {
	var backend Generator
	switch config.Provider {
	case LLMProviderGemini:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  config.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating gemini client: %w", err)
		}
		backend = &geminiGenerator{
			client: client,
			model:  config.GeminiModel,
			logger: logger,
		}
	case LLMProviderOpenAI:
		backend = &openAIGenerator{
			client: openai.NewClient(config.OpenAIToken),
			model:  config.OpenAIModel,
			logger: logger,
		}
	default:
		return nil, fmt.Errorf(
			"unsupported llm provider: %s (must be %q or %q)",
			config.Provider, LLMProviderGemini, LLMProviderOpenAI,
		)
	}

	return &pacedGenerator{
		next:    backend,
		limiter: rate.NewLimiter(rate.Limit(config.MaxRequestsPerSecond), 1),
		timeout: config.RequestTimeout,
	}, nil
}

// geminiGenerator calls the Gemini API via google.golang.org/genai.
type geminiGenerator struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	started := time.Now()
	result, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	text := result.Text()
	g.logger.Debug(
		"gemini reply",
		"model", g.model,
		"elapsed", time.Since(started),
		"reply_len", len(text),
	)
	return text, nil
}

// openAIGenerator calls the chat completions API via go-openai.
type openAIGenerator struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

func (g *openAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	started := time.Now()
	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	text := resp.Choices[0].Message.Content
	g.logger.Debug(
		"openai reply",
		"model", g.model,
		"elapsed", time.Since(started),
		"reply_len", len(text),
	)
	return text, nil
}

// pacedGenerator wraps another Generator with a request rate limit and a
// per-call deadline, so one slow or chatty upstream can't pile up work
// without bound.
type pacedGenerator struct {
	next    Generator
	limiter *rate.Limiter
	timeout time.Duration
}

func (p *pacedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return p.next.Generate(ctx, prompt)
}

// normalizeReply substitutes a deterministic persona-flavored fallback when
// a successful model response carried no extractable text, so an empty
// assistant turn is never stored or sent.
func normalizeReply(reply string, fallback string) string {
	if strings.TrimSpace(reply) == "" {
		return fallback
	}
	return reply
}
