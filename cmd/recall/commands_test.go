package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recallerr "github.com/viant/recall/errors"
	"github.com/viant/recall/pipeline"
	"github.com/viant/recall/records"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("RECALL_EMBEDDER_PROVIDER", "hash")
	t.Setenv("RECALL_CAPTIONER_PROVIDER", "none")
	t.Setenv("SQLITE_DB_PATH", "")
	t.Setenv("FAISS_DB_PATH", "")
	return filepath.Join(t.TempDir(), "data")
}

func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"init", "add", "search", "reflect", "reconcile", "check", "stats"} {
		assert.Contains(t, names, want)
	}
}

func TestCommands_EndToEnd(t *testing.T) {
	dataDir := setupEnv(t)

	out, err := run(t, dataDir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized")
	assert.FileExists(t, filepath.Join(dataDir, "memories.sqlite3"))
	assert.FileExists(t, filepath.Join(dataDir, "memories.faiss"))

	out, err = run(t, dataDir, "add", "a red ball")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored memory 1")

	image := filepath.Join(t.TempDir(), "sky.png")
	require.NoError(t, os.WriteFile(image, []byte("png"), 0o644))
	out, err = run(t, dataDir, "add", "--image", image, "--caption", "a blue sky")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored memory 2")

	out, err = run(t, dataDir, "reflect", "--tags", "colors,outdoors", "saw", "bright", "colors")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored reflection 1")

	out, err = run(t, dataDir, "search", "red", "ball")
	require.NoError(t, err)
	var results []pipeline.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "a red ball", results[0].Caption)
	assert.Equal(t, "text", results[0].Modality)
	assert.Equal(t, "a blue sky", results[1].Caption)
	assert.Equal(t, "image", results[1].Modality)
	assert.Equal(t, image, results[1].FilePath)

	out, err = run(t, dataDir, "stats")
	require.NoError(t, err)
	var st struct {
		Memories    int  `json:"memories"`
		Reflections int  `json:"reflections"`
		Vectors     int  `json:"vectors"`
		Aligned     bool `json:"aligned"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 2, st.Memories)
	assert.Equal(t, 1, st.Reflections)
	assert.Equal(t, 2, st.Vectors)
	assert.True(t, st.Aligned)

	out, err = run(t, dataDir, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "Aligned: 2 records, 2 vectors")

	out, err = run(t, dataDir, "check", "--k", "2", "red ball")
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
}

func TestCommands_BeforeInit(t *testing.T) {
	dataDir := setupEnv(t)

	_, err := run(t, dataDir, "add", "a red ball")
	require.Error(t, err)
	assert.True(t, recallerr.IsNotInitialized(err))

	_, err = run(t, dataDir, "search", "anything")
	assert.True(t, recallerr.IsNotInitialized(err))
}

func TestCommands_InputErrors(t *testing.T) {
	dataDir := setupEnv(t)
	_, err := run(t, dataDir, "init")
	require.NoError(t, err)

	_, err = run(t, dataDir, "add")
	assert.True(t, recallerr.IsInvalidInput(err))

	image := filepath.Join(t.TempDir(), "cat.jpg")
	require.NoError(t, os.WriteFile(image, []byte("jpg"), 0o644))
	_, err = run(t, dataDir, "add", "--image", image)
	assert.True(t, recallerr.IsInvalidInput(err), "no captioner configured: %v", err)
}

func TestCommands_InvalidConfig(t *testing.T) {
	dataDir := setupEnv(t)
	t.Setenv("RECALL_INDEX_KIND", "hnsw")

	_, err := run(t, dataDir, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index.kind")
}

func TestCommands_ReconcileDropUnjournaled(t *testing.T) {
	dataDir := setupEnv(t)
	t.Setenv("RECALL_STORAGE_JOURNAL", "false")
	_, err := run(t, dataDir, "init")
	require.NoError(t, err)
	_, err = run(t, dataDir, "add", "a red ball")
	require.NoError(t, err)

	ctx := context.Background()
	store, err := records.Open(ctx, filepath.Join(dataDir, "memories.sqlite3"))
	require.NoError(t, err)
	_, err = store.InsertMemory(ctx, "interrupted", "text", "", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = run(t, dataDir, "reconcile")
	require.Error(t, err)
	assert.True(t, recallerr.IsMisaligned(err))

	out, err := run(t, dataDir, "reconcile", "--drop-unjournaled")
	require.NoError(t, err)
	assert.Contains(t, out, "dropped records 1")

	_, err = run(t, dataDir, "add", "a blue sky")
	require.NoError(t, err)
}
