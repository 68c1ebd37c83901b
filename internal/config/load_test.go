package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePrompt(t *testing.T) {
	const content = "just text"
	ctx := context.Background()

	t.Run("literal prompt", func(t *testing.T) {
		msg, err := ResolvePrompt(ctx, nil, content)
		require.NoError(t, err)
		require.Equal(t, content, msg)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "foo.txt")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		msg, err := ResolvePrompt(ctx, nil, "file://"+path)
		require.NoError(t, err)
		require.Equal(t, content, msg)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ResolvePrompt(ctx, nil, "file://"+filepath.Join(t.TempDir(), "nope.txt"))
		require.Error(t, err)
	})

	t.Run("markdown file strips yaml frontmatter", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompt.md")
		md := "---\nname: helper\nstyle: calm\n---\nYou are concise and direct.\n"
		require.NoError(t, os.WriteFile(path, []byte(md), 0o644))

		msg, err := ResolvePrompt(ctx, nil, "file://"+path)
		require.NoError(t, err)
		require.Equal(t, "You are concise and direct.\n", msg)
	})

	t.Run("markdown file with invalid frontmatter errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompt.md")
		md := "---\nname: [broken\n---\ncontent"
		require.NoError(t, os.WriteFile(path, []byte(md), 0o644))

		_, err := ResolvePrompt(ctx, nil, "file://"+path)
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid markdown frontmatter")
	})

	t.Run("remote prompt", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("remote prompt"))
		}))
		defer srv.Close()

		msg, err := ResolvePrompt(ctx, srv.Client(), srv.URL)
		require.NoError(t, err)
		require.Equal(t, "remote prompt", msg)
	})

	t.Run("remote prompt error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gone", http.StatusGone)
		}))
		defer srv.Close()

		_, err := ResolvePrompt(ctx, srv.Client(), srv.URL)
		require.Error(t, err)
		require.Contains(t, err.Error(), "HTTP 410")
	})
}
