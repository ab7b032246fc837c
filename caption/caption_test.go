package caption

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/recall/config"
	recallerr "github.com/viant/recall/errors"
)

func TestOllama_Caption(t *testing.T) {
	var got struct {
		Model  string   `json:"model"`
		Prompt string   `json:"prompt"`
		Images []string `json:"images"`
		Stream *bool    `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llava","response":" a red ball on grass ","done":true}` + "\n"))
	}))
	defer srv.Close()

	c, err := NewOllama(srv.URL, "", "")
	require.NoError(t, err)
	text, err := c.Caption(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "a red ball on grass", text)

	assert.Equal(t, "llava", got.Model)
	assert.Equal(t, DefaultPrompt, got.Prompt)
	require.Len(t, got.Images, 1)
	decoded, err := base64.StdEncoding.DecodeString(got.Images[0])
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, decoded)
	require.NotNil(t, got.Stream)
	assert.False(t, *got.Stream)
}

func TestOllama_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"llava\" not found"}`))
	}))
	defer srv.Close()

	c, err := NewOllama(srv.URL, "llava", "")
	require.NoError(t, err)

	_, err = c.Caption(context.Background(), []byte("img"), "image/png")
	require.Error(t, err)
	assert.True(t, recallerr.IsUpstreamFailure(err))

	_, err = c.Caption(context.Background(), nil, "image/png")
	assert.True(t, recallerr.IsInvalidInput(err))
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.JPG")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o644))

	var gotMime string
	c := Func(func(_ context.Context, image []byte, mime string) (string, error) {
		gotMime = mime
		return "caption of " + string(image), nil
	})
	text, err := File(context.Background(), c, path)
	require.NoError(t, err)
	assert.Equal(t, "caption of jpeg-bytes", text)
	assert.Equal(t, "image/jpeg", gotMime)

	_, err = File(context.Background(), c, filepath.Join(t.TempDir(), "missing.png"))
	assert.True(t, recallerr.IsInvalidInput(err))
}

func TestNew(t *testing.T) {
	c, err := New(config.CaptionerConfig{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(config.CaptionerConfig{Provider: "ollama", Host: "http://127.0.0.1:1", Model: "llava"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = New(config.CaptionerConfig{Provider: "blip"})
	assert.True(t, recallerr.IsInvalidInput(err))
}
