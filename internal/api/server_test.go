package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ui-screenshot-to-prompt/internal/apperr"
	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/pipeline"
	"ui-screenshot-to-prompt/internal/prompt"
)

type fakePipeline struct {
	mu       sync.Mutex
	lastData []byte
	lastOpts pipeline.Options
	err      error
	block    chan struct{}
}

func (f *fakePipeline) Process(ctx context.Context, data []byte, opts pipeline.Options) (pipeline.Result, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.lastData = data
	f.lastOpts = opts
	f.mu.Unlock()
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	return pipeline.Result{
		MainDesignChoices: "layout",
		Analyses:          []string{"header"},
		FinalAnalysis:     "final prompt",
		DetectionMethod:   opts.Method,
		DetectionTerm:     opts.Method.Term(),
		PromptSize:        opts.Size,
		VisionProvider:    "fake",
	}, nil
}

func (f *fakePipeline) Visualize(data []byte, method detect.Method) (pipeline.Visualization, error) {
	return pipeline.Visualization{
		LabeledImage:  []byte{1, 2, 3},
		Regions:       []pipeline.Region{{Index: 1}},
		DetectionTerm: method.Term(),
	}, nil
}

func (f *fakePipeline) VisionProvider() string      { return "fake" }
func (f *fakePipeline) SuperPromptProvider() string { return "" }

func newTestServer(p Pipeline, mod func(*Options)) http.Handler {
	gin.SetMode(gin.TestMode)
	opts := Options{
		Pipeline:       p,
		Defaults:       pipeline.Options{Method: detect.MethodBasic, Size: prompt.SizeConcise, Elevate: true},
		RequestTimeout: 5 * time.Second,
		MaxConcurrent:  2,
	}
	if mod != nil {
		mod(&opts)
	}
	return New(opts).Handler()
}

func multipartBody(t *testing.T, field, filename string, content []byte, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	if field != "" {
		if filename == "" {
			require.NoError(t, w.WriteField(field, string(content)))
		} else {
			part, err := w.CreateFormFile(field, filename)
			require.NoError(t, err)
			_, _ = part.Write(content)
		}
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestProcessImage(t *testing.T) {
	fp := &fakePipeline{}
	h := newTestServer(fp, nil)

	body, ct := multipartBody(t, "image", "shot.png", []byte("imagebytes"), map[string]string{
		"detection_method": "advanced",
		"prompt_size":      "extensive",
		"elevate":          "false",
	})
	req := httptest.NewRequest(http.MethodPost, EndPointProcessImage, body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "final prompt", res.FinalAnalysis)
	assert.Equal(t, "component", res.DetectionTerm)
	assert.Equal(t, []byte("imagebytes"), fp.lastData)
	assert.Equal(t, pipeline.Options{Method: detect.MethodAdvanced, Size: prompt.SizeExtensive, Elevate: false}, fp.lastOpts)
}

func TestProcessImageValidation(t *testing.T) {
	h := newTestServer(&fakePipeline{}, nil)

	cases := []struct {
		name     string
		field    string
		filename string
		values   map[string]string
		want     string
	}{
		{name: "missing image", want: msgNoImage},
		{name: "empty filename", field: "image", filename: "", want: msgNoFile},
		{name: "bad method", field: "image", filename: "a.png", values: map[string]string{"detection_method": "magic"}, want: detect.ErrInvalidMethod.Error()},
		{name: "bad size", field: "image", filename: "a.png", values: map[string]string{"prompt_size": "huge"}, want: prompt.ErrInvalidSize.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartBody(t, tc.field, tc.filename, []byte("x"), tc.values)
			req := httptest.NewRequest(http.MethodPost, EndPointProcessImage, body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, decodeError(t, w))
		})
	}
}

func TestProcessImageErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperr.New(apperr.InvalidArgument, "invalid image"), http.StatusBadRequest},
		{apperr.New(apperr.Unavailable, "vision analysis failed"), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := newTestServer(&fakePipeline{err: tc.err}, nil)
		body, ct := multipartBody(t, "image", "a.png", []byte("x"), nil)
		req := httptest.NewRequest(http.MethodPost, EndPointProcessImage, body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}
}

func TestServerErrorHidesUpstreamDetail(t *testing.T) {
	upstream := errors.New(`gemini: status 500: {"error":{"message":"internal key sk-123"}}`)
	var logs bytes.Buffer
	h := newTestServer(&fakePipeline{err: apperr.Wrap(upstream, apperr.Unavailable, "vision analysis failed")}, func(o *Options) {
		o.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
	})

	body, ct := multipartBody(t, "image", "a.png", []byte("x"), nil)
	req := httptest.NewRequest(http.MethodPost, EndPointProcessImage, body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "vision analysis failed", decodeError(t, w))
	assert.NotContains(t, w.Body.String(), "sk-123")
	assert.Contains(t, logs.String(), "sk-123")
}

func TestProcessImageURL(t *testing.T) {
	img := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shot.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("remote"))
	}))
	defer img.Close()

	fp := &fakePipeline{}
	h := newTestServer(fp, func(o *Options) { o.HTTPClient = img.Client() })

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, EndPointProcessImageURL, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	w := post(`{"image_url":"` + img.URL + `/shot.png","prompt_size":"extensive"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("remote"), fp.lastData)
	assert.Equal(t, prompt.SizeExtensive, fp.lastOpts.Size)
	assert.True(t, fp.lastOpts.Elevate)

	w = post(`{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgNoImageURL, decodeError(t, w))

	w = post(`not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(`{"image_url":"file:///etc/passwd"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgNoImageURL, decodeError(t, w))

	w = post(`{"image_url":"` + img.URL + `/missing.png"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestVisualize(t *testing.T) {
	h := newTestServer(&fakePipeline{}, nil)

	body, ct := multipartBody(t, "image", "a.png", []byte("x"), map[string]string{"detection_method": "advanced"})
	req := httptest.NewRequest(http.MethodPost, EndPointVisualize, body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res visualizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "data:image/png;base64,AQID", res.LabeledImage)
	assert.Equal(t, "component", res.DetectionTerm)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(&fakePipeline{}, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, EndPointHealth, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"vision_provider":"fake"`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, EndPointMetrics, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(&fakePipeline{}, func(o *Options) { o.RateLimitPerMin = 1 })

	send := func() int {
		body, ct := multipartBody(t, "image", "a.png", []byte("x"), nil)
		req := httptest.NewRequest(http.MethodPost, EndPointProcessImage, body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestConcurrencyGateTimesOut(t *testing.T) {
	fp := &fakePipeline{block: make(chan struct{})}
	h := newTestServer(fp, func(o *Options) {
		o.MaxConcurrent = 1
		o.RequestTimeout = 100 * time.Millisecond
	})

	send := func() int {
		body, ct := multipartBody(t, "image", "a.png", []byte("x"), nil)
		req := httptest.NewRequest(http.MethodPost, EndPointProcessImage, body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	first := make(chan int, 1)
	go func() { first <- send() }()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, http.StatusServiceUnavailable, send())
	close(fp.block)
	assert.Equal(t, http.StatusOK, <-first)
}

func TestRequestIDPropagates(t *testing.T) {
	h := newTestServer(&fakePipeline{}, nil)
	req := httptest.NewRequest(http.MethodGet, EndPointHealth, nil)
	req.Header.Set(headerRequestID, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(headerRequestID))
}
