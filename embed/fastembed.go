package embed

import (
	"context"

	fastembed "github.com/anush008/fastembed-go"
)

// FastEmbedOptions configures the local ONNX embedder.
type FastEmbedOptions struct {
	Model     string // defaults to all-MiniLM-L6-v2 (384 dims)
	CacheDir  string // model download directory
	MaxLength int    // token limit, 0 = library default
}

// FastEmbed runs a sentence-transformer model locally.
type FastEmbed struct {
	m *fastembed.FlagEmbedding
}

// NewFastEmbed loads the model, downloading it into CacheDir on first use.
func NewFastEmbed(_ context.Context, opt *FastEmbedOptions) (*FastEmbed, error) {
	init := &fastembed.InitOptions{Model: fastembed.AllMiniLML6V2}
	if opt != nil {
		if opt.Model != "" {
			init.Model = fastembed.EmbeddingModel(opt.Model)
		}
		init.CacheDir = opt.CacheDir
		init.MaxLength = opt.MaxLength
	}
	m, err := fastembed.NewFlagEmbedding(init)
	if err != nil {
		return nil, upstream(err, "fastembed", "load embedding model")
	}
	return &FastEmbed{m: m}, nil
}

// Embed encodes text without a query or passage prefix so captions and
// queries share one embedding space.
func (e *FastEmbed) Embed(_ context.Context, text string) ([]float32, error) {
	out, err := e.m.Embed([]string{text}, 1)
	if err != nil {
		return nil, upstream(err, "fastembed", "embed text")
	}
	if len(out) == 0 || len(out[0]) == 0 {
		return nil, empty("fastembed")
	}
	return out[0], nil
}

// Close releases the ONNX session.
func (e *FastEmbed) Close() error {
	if e.m != nil {
		e.m.Destroy()
		e.m = nil
	}
	return nil
}
