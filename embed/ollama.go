package embed

import (
	"context"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/viant/recall/config"
	recallerr "github.com/viant/recall/errors"
)

// Ollama embeds text with a model served by Ollama.
type Ollama struct {
	client *ollama.Client
	model  string
}

// NewOllama connects to config.OllamaHost(host); an empty model selects
// all-minilm (384 dims).
func NewOllama(host, model string) (*Ollama, error) {
	u, err := url.Parse(config.OllamaHost(host))
	if err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeConfigValidateInvalidValue, "invalid ollama host",
			recallerr.Field("host", host))
	}
	if model == "" {
		model = "all-minilm"
	}
	httpClient := &http.Client{Timeout: 60 * time.Second}
	return &Ollama{client: ollama.NewClient(u, httpClient), model: model}, nil
}

func (e *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.client.Embed(ctx, &ollama.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, upstream(err, "ollama", "embed text")
	}
	if res == nil || len(res.Embeddings) == 0 || len(res.Embeddings[0]) == 0 {
		return nil, empty("ollama")
	}
	return res.Embeddings[0], nil
}
