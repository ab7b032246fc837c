package embed

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI embeds text with the OpenAI embeddings API, or any server that
// speaks it.
type OpenAI struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAI builds a client; baseURL may point at a compatible server. An
// empty model selects text-embedding-3-small, shortened to dim.
func NewOpenAI(baseURL, apiKey, model string, dim int) (*OpenAI, error) {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model, dim: dim}, nil
}

func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(e.model),
		Input:      []string{text},
		Dimensions: e.dim,
	})
	if err != nil {
		return nil, upstream(err, "openai", "embed text")
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, empty("openai")
	}
	return resp.Data[0].Embedding, nil
}
