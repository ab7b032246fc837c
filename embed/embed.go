package embed

import (
	"context"
	"strings"

	"github.com/viant/recall/config"
	recallerr "github.com/viant/recall/errors"
)

// Embedder converts text into a fixed-width vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Func adapts a plain function to Embedder.
type Func func(ctx context.Context, text string) ([]float32, error)

// Embed calls f.
func (f Func) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// Close releases embedder resources when the implementation holds any.
func Close(e Embedder) error {
	if c, ok := e.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// New builds the embedder selected by cfg. dim is the index dimension; the
// hash embedder uses it directly and the OpenAI embedder requests it.
func New(ctx context.Context, cfg config.EmbedderConfig, dim int) (Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "fastembed", "":
		return NewFastEmbed(ctx, &FastEmbedOptions{Model: cfg.Model, CacheDir: cfg.CacheDir})
	case "ollama":
		return NewOllama(cfg.Host, cfg.Model)
	case "openai":
		return NewOpenAI(cfg.Host, cfg.APIKey, cfg.Model, dim)
	case "hash":
		return NewHash(dim), nil
	}
	return nil, recallerr.New(recallerr.CodeEmbedProviderUnknown, "unknown embedder provider",
		recallerr.Field("provider", cfg.Provider))
}

func upstream(err error, provider, msg string) error {
	return recallerr.Wrap(err, recallerr.CodeEmbedUpstreamFailure, msg, recallerr.Field("provider", provider))
}

func empty(provider string) error {
	return recallerr.New(recallerr.CodeEmbedUpstreamFailure, "provider returned no embedding",
		recallerr.Field("provider", provider))
}
