package caption

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/viant/recall/config"
	recallerr "github.com/viant/recall/errors"
)

// DefaultPrompt asks a vision model for a single descriptive sentence.
const DefaultPrompt = "Describe this image in one short sentence."

// Captioner describes an image.
type Captioner interface {
	Caption(ctx context.Context, image []byte, mime string) (string, error)
}

// Func adapts a plain function to Captioner.
type Func func(ctx context.Context, image []byte, mime string) (string, error)

// Caption calls f.
func (f Func) Caption(ctx context.Context, image []byte, mime string) (string, error) {
	return f(ctx, image, mime)
}

// New builds the captioner selected by cfg. Provider "none" yields nil.
func New(cfg config.CaptionerConfig) (Captioner, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "ollama":
		return NewOllama(cfg.Host, cfg.Model, cfg.Prompt)
	case "none", "":
		return nil, nil
	}
	return nil, recallerr.New(recallerr.CodeCaptionProviderUnknown, "unknown captioner provider",
		recallerr.Field("provider", cfg.Provider))
}

// File reads an image from disk and captions it.
func File(ctx context.Context, c Captioner, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", recallerr.Wrap(err, recallerr.CodeMemoryInputInvalid, "read image", recallerr.FieldPath(path))
	}
	return c.Caption(ctx, data, MIMEType(path))
}

// MIMEType guesses an image MIME type from the file extension.
func MIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}

// Ollama captions images with a vision model served by Ollama.
type Ollama struct {
	client *ollama.Client
	model  string
	prompt string
}

// NewOllama connects to config.OllamaHost(host).
func NewOllama(host, model, prompt string) (*Ollama, error) {
	host = config.OllamaHost(host)
	u, err := url.Parse(host)
	if err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeConfigValidateInvalidValue, "invalid ollama host",
			recallerr.Field("host", host))
	}
	if model == "" {
		model = "llava"
	}
	if prompt == "" {
		prompt = DefaultPrompt
	}
	httpClient := &http.Client{Timeout: 120 * time.Second}
	return &Ollama{client: ollama.NewClient(u, httpClient), model: model, prompt: prompt}, nil
}

func (c *Ollama) Caption(ctx context.Context, image []byte, mime string) (string, error) {
	if len(image) == 0 {
		return "", recallerr.New(recallerr.CodeMemoryInputInvalid, "empty image")
	}
	stream := false
	req := &ollama.GenerateRequest{
		Model:  c.model,
		Prompt: c.prompt,
		Images: []ollama.ImageData{image},
		Stream: &stream,
	}
	var text strings.Builder
	if err := c.client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		text.WriteString(gr.Response)
		return nil
	}); err != nil {
		return "", recallerr.Wrap(err, recallerr.CodeCaptionUpstreamFailure, "caption image",
			recallerr.Field("model", c.model), recallerr.Field("mime", mime))
	}
	caption := strings.TrimSpace(text.String())
	if caption == "" {
		return "", recallerr.New(recallerr.CodeCaptionUpstreamFailure, "model returned an empty caption",
			recallerr.Field("model", c.model))
	}
	return caption, nil
}
