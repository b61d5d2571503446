package telegram

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitByBytes(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitByBytes("short", 4096))

	parts := splitByBytes(strings.Repeat("a", 10), 4)
	assert.Equal(t, []string{"aaaa", "aaaa", "aa"}, parts)

	// Multi-byte runes are never split.
	parts = splitByBytes(strings.Repeat("ж", 5), 5)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 5)
		assert.True(t, strings.Trim(p, "ж") == "")
	}
	assert.Equal(t, strings.Repeat("ж", 5), strings.Join(parts, ""))
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "abc", truncateByBytes("abc", 10))
	assert.Equal(t, "ab", truncateByBytes("abcdef", 2))
	assert.Equal(t, "жж", truncateByBytes("жжж", 5))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestFetch(t *testing.T) {
	img := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(img)
		default:
			http.Error(w, "file not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	data, mimeType, err := fetch(context.Background(), srv.Client(), srv.URL+"/ok", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, img, data)
	assert.Equal(t, "image/png", mimeType)

	_, _, err = fetch(context.Background(), srv.Client(), srv.URL+"/ok", 8)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, _, err = fetch(context.Background(), srv.Client(), srv.URL+"/missing", 1<<20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Token: "x"})
	assert.Error(t, err)
}
