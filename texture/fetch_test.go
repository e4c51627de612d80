package texture_test

import (
	"context"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MobRulesGames/mapasset/assets"
	"github.com/MobRulesGames/mapasset/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, rc io.ReadCloser) []byte {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestFileFetcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "static"), 0o755))
	payload := encodePNG(4, 4, color.RGBA{G: 255, A: 255})
	require.NoError(t, os.WriteFile(filepath.Join(root, "static", "base.png"), payload, 0o644))

	fetcher := texture.FileFetcher{Root: root}
	ctx := context.Background()

	t.Run("absolute-style locators are rooted", func(t *testing.T) {
		rc, err := fetcher.Fetch(ctx, "/static/base.png")
		require.NoError(t, err)
		assert.Equal(t, payload, readAll(t, rc))
	})

	t.Run("relative locators work too", func(t *testing.T) {
		rc, err := fetcher.Fetch(ctx, "static/base.png")
		require.NoError(t, err)
		assert.Equal(t, payload, readAll(t, rc))
	})

	t.Run("can't climb out of the root", func(t *testing.T) {
		outside := filepath.Join(filepath.Dir(root), "escaped.png")
		require.NoError(t, os.WriteFile(outside, payload, 0o644))
		defer os.Remove(outside)

		_, err := fetcher.Fetch(ctx, "../escaped.png")
		assert.Error(t, err)
	})

	t.Run("missing files are errors", func(t *testing.T) {
		_, err := fetcher.Fetch(ctx, "/static/nope.png")
		assert.Error(t, err)
	})

	t.Run("empty locators are errors", func(t *testing.T) {
		_, err := fetcher.Fetch(ctx, "")
		assert.Error(t, err)
	})

	t.Run("drives a manager", func(t *testing.T) {
		manager := texture.NewManager([]assets.ImageDescriptor{
			{Name: "base", URL: "/static/base.png", GridWidth: 2, GridHeight: 2},
		}, fetcher)
		defer manager.Release()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.True(t, manager.LoadAll(ctx))
		img, ok := manager.GetImage("base")
		require.True(t, ok)
		assert.Equal(t, 4, img.Bounds().Dx())
	})
}

func TestHTTPFetcher(t *testing.T) {
	payload := encodePNG(2, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/static/base.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer server.Close()

	ctx := context.Background()

	t.Run("resolves relative locators against the base url", func(t *testing.T) {
		fetcher := texture.HTTPFetcher{BaseURL: server.URL, Client: server.Client()}
		rc, err := fetcher.Fetch(ctx, "/static/base.png")
		require.NoError(t, err)
		assert.Equal(t, payload, readAll(t, rc))
	})

	t.Run("absolute locators ignore the base url", func(t *testing.T) {
		fetcher := texture.HTTPFetcher{BaseURL: "http://example.invalid/", Client: server.Client()}
		rc, err := fetcher.Fetch(ctx, server.URL+"/static/base.png")
		require.NoError(t, err)
		assert.Equal(t, payload, readAll(t, rc))
	})

	t.Run("non-2xx responses are errors", func(t *testing.T) {
		fetcher := texture.HTTPFetcher{BaseURL: server.URL, Client: server.Client()}
		_, err := fetcher.Fetch(ctx, "/static/missing.png")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("relative locators need a base url", func(t *testing.T) {
		fetcher := texture.HTTPFetcher{}
		_, err := fetcher.Fetch(ctx, "/static/base.png")
		assert.Error(t, err)
	})
}
