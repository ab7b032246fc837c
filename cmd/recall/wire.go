package main

import (
	"context"

	"github.com/viant/recall/caption"
	"github.com/viant/recall/embed"
	recallerr "github.com/viant/recall/errors"
	"github.com/viant/recall/memory"
)

func (a *app) manager() (*memory.Manager, error) {
	return memory.New(memory.ConfigFrom(a.cfg), memory.WithLogger(a.log))
}

func (a *app) embedder(ctx context.Context) (embed.Embedder, error) {
	return embed.New(ctx, a.cfg.Embedder, a.cfg.Index.Dimension)
}

func (a *app) captioner() (caption.Captioner, error) {
	c, err := caption.New(a.cfg.Captioner)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, recallerr.New(recallerr.CodeMemoryInputInvalid,
			"no captioner configured; pass --caption or set captioner.provider")
	}
	return c, nil
}
