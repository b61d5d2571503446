package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("pngbytes"))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := New(Options{Timeout: 5 * time.Second})
	ctx := context.Background()

	data, mime, err := Download(ctx, client, srv.URL+"/ok.png", 1024)
	require.NoError(t, err)
	assert.Equal(t, "pngbytes", string(data))
	assert.Equal(t, "image/png", mime)

	_, _, err = Download(ctx, client, srv.URL+"/missing", 1024)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Status)

	_, _, err = Download(ctx, client, srv.URL+"/big", 16)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, _, err = Download(ctx, client, "ftp://example.com/a.png", 1024)
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, _, err = Download(ctx, client, "https://", 1024)
	assert.Error(t, err)
}
