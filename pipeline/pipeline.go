package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/viant/recall/embed"
	recallerr "github.com/viant/recall/errors"
	"github.com/viant/recall/memory"
	"github.com/viant/recall/records"
)

// Stage names.
const (
	StageEmbedQuery     = "embed_query"
	StageSearchRelevant = "search_relevant"
	StageFormatResults  = "format_results"
)

// Searcher finds the memories nearest to an embedded query.
type Searcher interface {
	SearchMemory(ctx context.Context, query []float32, k int) ([]records.Memory, error)
}

// Stage is one named step over the shared State.
type Stage struct {
	Name string
	Run  func(ctx context.Context, s State) error
}

// Pipeline runs the retrieval stages.
type Pipeline struct {
	embedder embed.Embedder
	searcher Searcher
	log      *slog.Logger
	stages   []Stage
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// New builds the three-stage retrieval pipeline.
func New(embedder embed.Embedder, searcher Searcher, opts ...Option) *Pipeline {
	p := &Pipeline{embedder: embedder, searcher: searcher, log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.stages = []Stage{
		{Name: StageEmbedQuery, Run: p.embedQuery},
		{Name: StageSearchRelevant, Run: p.searchRelevant},
		{Name: StageFormatResults, Run: formatResults},
	}
	return p
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Run executes every stage in order against s and returns it. The first
// failing stage stops the run.
func (p *Pipeline) Run(ctx context.Context, s State) (State, error) {
	if s == nil {
		s = State{}
	}
	runID := uuid.NewString()
	log := p.log.With("run_id", runID)
	for _, stage := range p.stages {
		started := time.Now()
		if err := stage.Run(ctx, s); err != nil {
			log.Debug("pipeline stage failed", "stage", stage.Name, "error", err)
			return s, err
		}
		log.Debug("pipeline stage done", "stage", stage.Name, "elapsed", time.Since(started))
	}
	return s, nil
}

// Query runs the pipeline for text and returns the formatted results,
// nearest first.
func (p *Pipeline) Query(ctx context.Context, text string) ([]Result, error) {
	s, err := p.Run(ctx, State{KeyQuery: text})
	if err != nil {
		return nil, err
	}
	return lookup[[]Result](s, "query", KeyFormatted)
}

func (p *Pipeline) embedQuery(ctx context.Context, s State) error {
	query, err := lookup[string](s, StageEmbedQuery, KeyQuery)
	if err != nil {
		return err
	}
	v, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return stageFailure(err, StageEmbedQuery)
	}
	if len(v) == 0 {
		return recallerr.New(recallerr.CodePipelineStageFailure, "embedder returned an empty vector",
			recallerr.Field("stage", StageEmbedQuery))
	}
	s[KeyEmbeddedQuery] = v
	return nil
}

func (p *Pipeline) searchRelevant(ctx context.Context, s State) error {
	query, err := lookup[[]float32](s, StageSearchRelevant, KeyEmbeddedQuery)
	if err != nil {
		return err
	}
	found, err := p.searcher.SearchMemory(ctx, query, memory.DefaultK)
	if err != nil {
		return stageFailure(err, StageSearchRelevant)
	}
	s[KeySearchResults] = found
	return nil
}

func formatResults(_ context.Context, s State) error {
	found, err := lookup[[]records.Memory](s, StageFormatResults, KeySearchResults)
	if err != nil {
		return err
	}
	out := make([]Result, len(found))
	for i, m := range found {
		out[i] = Result{Caption: m.Caption, Modality: m.Modality, Timestamp: m.Timestamp, FilePath: m.FilePath}
	}
	s[KeyFormatted] = out
	return nil
}

func stageFailure(err error, stage string) error {
	return recallerr.Wrap(err, recallerr.CodePipelineStageFailure, "pipeline stage failed", recallerr.Field("stage", stage))
}
