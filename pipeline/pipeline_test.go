package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/recall/embed"
	recallerr "github.com/viant/recall/errors"
	"github.com/viant/recall/memory"
	"github.com/viant/recall/records"
	"github.com/viant/recall/vector"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type searcherFunc func(ctx context.Context, query []float32, k int) ([]records.Memory, error)

func (f searcherFunc) SearchMemory(ctx context.Context, query []float32, k int) ([]records.Memory, error) {
	return f(ctx, query, k)
}

func constant(v []float32) embed.Embedder {
	return embed.Func(func(context.Context, string) ([]float32, error) { return v, nil })
}

func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	m, err := memory.New(memory.Config{
		SQLitePath:    filepath.Join(dir, "data", "memories.sqlite3"),
		IndexPath:     filepath.Join(dir, "data", "memories.faiss"),
		Dimension:     vector.DefaultDimension,
		Journal:       true,
		CacheRecords:  true,
		AutoReconcile: true,
	}, memory.WithLogger(quiet))
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Initialize(ctx))

	red := vector.Basis(vector.DefaultDimension, 0)
	blue := vector.Basis(vector.DefaultDimension, 1)
	_, err = m.AddMemory(ctx, "a red ball", "image", "/img/1.png", red)
	require.NoError(t, err)
	_, err = m.AddMemory(ctx, "a blue sky", "image", "/img/2.png", blue)
	require.NoError(t, err)

	p := New(constant(red), m, WithLogger(quiet))
	s, err := p.Run(ctx, State{KeyQuery: "red ball"})
	require.NoError(t, err)

	assert.Equal(t, red, s[KeyEmbeddedQuery])
	found, ok := s[KeySearchResults].([]records.Memory)
	require.True(t, ok)
	require.Len(t, found, 2)

	formatted, ok := s[KeyFormatted].([]Result)
	require.True(t, ok)
	require.Len(t, formatted, 2)
	assert.Equal(t, "a red ball", formatted[0].Caption)
	assert.Equal(t, "image", formatted[0].Modality)
	assert.Equal(t, "/img/1.png", formatted[0].FilePath)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{6}\+00:00$`, formatted[0].Timestamp)
	assert.Equal(t, "a blue sky", formatted[1].Caption)
	assert.Equal(t, "/img/2.png", formatted[1].FilePath)
}

func TestPipeline_StageOrderAndK(t *testing.T) {
	var gotK int
	var gotQuery []float32
	p := New(constant([]float32{0.5, 0.5}), searcherFunc(func(_ context.Context, q []float32, k int) ([]records.Memory, error) {
		gotK, gotQuery = k, q
		return []records.Memory{{ID: 7, Caption: "c", Modality: "text", Timestamp: "t", FilePath: "f"}}, nil
	}), WithLogger(quiet))

	assert.Equal(t, []string{StageEmbedQuery, StageSearchRelevant, StageFormatResults}, p.Stages())

	results, err := p.Query(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, memory.DefaultK, gotK)
	assert.Equal(t, []float32{0.5, 0.5}, gotQuery)
	assert.Equal(t, []Result{{Caption: "c", Modality: "text", Timestamp: "t", FilePath: "f"}}, results)

	data, err := json.Marshal(results[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"caption":"c","modality":"text","timestamp":"t","filepath":"f"}`, string(data))
}

func TestPipeline_EmptyStore(t *testing.T) {
	p := New(constant([]float32{1}), searcherFunc(func(context.Context, []float32, int) ([]records.Memory, error) {
		return []records.Memory{}, nil
	}), WithLogger(quiet))
	results, err := p.Query(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPipeline_MissingKey(t *testing.T) {
	searched := false
	p := New(constant([]float32{1}), searcherFunc(func(context.Context, []float32, int) ([]records.Memory, error) {
		searched = true
		return nil, nil
	}), WithLogger(quiet))

	_, err := p.Run(context.Background(), State{})
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodePipelineStateMissing))
	assert.Equal(t, StageEmbedQuery, recallerr.FieldsOf(err)["stage"])
	assert.False(t, searched)

	_, err = p.Run(context.Background(), State{KeyQuery: 42})
	assert.True(t, recallerr.HasCode(err, recallerr.CodePipelineStateMissing))
}

func TestPipeline_CapabilityFailure(t *testing.T) {
	failing := embed.Func(func(context.Context, string) ([]float32, error) {
		return nil, errors.New("model offline")
	})
	p := New(failing, searcherFunc(func(context.Context, []float32, int) ([]records.Memory, error) {
		t.Fatal("search must not run after a failed stage")
		return nil, nil
	}), WithLogger(quiet))

	s, err := p.Run(context.Background(), State{KeyQuery: "q"})
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodePipelineStageFailure))
	assert.Contains(t, err.Error(), "model offline")
	_, ok := s[KeyEmbeddedQuery]
	assert.False(t, ok)

	p = New(constant([]float32{1}), searcherFunc(func(context.Context, []float32, int) ([]records.Memory, error) {
		return nil, recallerr.New(recallerr.CodeMemoryNotInitialized, "not initialized")
	}), WithLogger(quiet))
	_, err = p.Query(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, recallerr.IsNotInitialized(err))
}
