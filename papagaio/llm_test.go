package papagaio

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNormalizeReply(t *testing.T) {
	assert.Equal(t, "olá!", normalizeReply("olá!", "fallback"))
	assert.Equal(t, "fallback", normalizeReply("", "fallback"))
	assert.Equal(t, "fallback", normalizeReply("  \n\t ", "fallback"))
	// whitespace around real content is left alone
	assert.Equal(t, " olá ", normalizeReply(" olá ", "fallback"))
}

func TestPacedGenerator_PassThrough(t *testing.T) {
	inner := &fakeGenerator{reply: "resposta"}
	paced := &pacedGenerator{
		next:    inner,
		limiter: rate.NewLimiter(rate.Inf, 1),
		timeout: time.Second,
	}

	reply, err := paced.Generate(context.Background(), "pergunta")
	require.NoError(t, err)
	assert.Equal(t, "resposta", reply)
	require.Len(t, inner.prompts, 1)
	assert.Equal(t, "pergunta", inner.prompts[0])
}

func TestPacedGenerator_CanceledContext(t *testing.T) {
	inner := &fakeGenerator{reply: "resposta"}
	paced := &pacedGenerator{
		next: inner,
		// zero rate: the wait can never be satisfied
		limiter: rate.NewLimiter(0, 0),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := paced.Generate(ctx, "pergunta")
	require.Error(t, err)
	assert.Empty(t, inner.prompts)
}

func TestNewGenerator_UnknownProvider(t *testing.T) {
	cfg := DefaultConfig().LLM
	cfg.Provider = "cohere"

	_, err := newGenerator(context.Background(), cfg, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm provider")
}
