package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ui-screenshot-to-prompt/internal/apperr"
	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/httpclient"
	"ui-screenshot-to-prompt/internal/imaging"
	"ui-screenshot-to-prompt/internal/pipeline"
	"ui-screenshot-to-prompt/internal/prompt"
)

const (
	msgNoImage    = "No image provided"
	msgNoFile     = "No selected file"
	msgNoImageURL = "No image URL provided"
)

type urlRequest struct {
	ImageURL        string `json:"image_url"`
	DetectionMethod string `json:"detection_method"`
	PromptSize      string `json:"prompt_size"`
	Elevate         *bool  `json:"elevate"`
}

type visualizeResponse struct {
	LabeledImage  string            `json:"labeled_image"`
	Regions       []pipeline.Region `json:"regions"`
	DetectionTerm string            `json:"detection_term"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":                "healthy",
		"vision_provider":       s.pipeline.VisionProvider(),
		"super_prompt_provider": s.pipeline.SuperPromptProvider(),
	})
}

func (s *Server) processImage(c *gin.Context) {
	data, err := s.readUpload(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	opts, err := s.parseOptions(c.PostForm("detection_method"), c.PostForm("prompt_size"), optionalBool(c.PostForm("elevate")))
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.run(c, data, opts)
}

func (s *Server) processImageURL(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ImageURL) == "" {
		s.writeError(c, apperr.New(apperr.InvalidArgument, msgNoImageURL))
		return
	}

	opts, err := s.parseOptions(req.DetectionMethod, req.PromptSize, req.Elevate)
	if err != nil {
		s.writeError(c, err)
		return
	}

	data, _, err := httpclient.Download(c.Request.Context(), s.httpClient, req.ImageURL, s.maxDownloadBytes)
	switch {
	case errors.Is(err, httpclient.ErrUnsupportedScheme):
		s.writeError(c, apperr.Wrap(err, apperr.InvalidArgument, msgNoImageURL))
		return
	case errors.Is(err, httpclient.ErrTooLarge):
		s.writeError(c, apperr.Wrap(err, apperr.InvalidArgument, "image exceeds size limit"))
		return
	case err != nil && c.Request.Context().Err() != nil:
		s.writeError(c, apperr.From(c.Request.Context().Err()))
		return
	case err != nil:
		s.writeError(c, apperr.Wrap(err, apperr.Upstream, "failed to download image"))
		return
	}

	s.run(c, data, opts)
}

func (s *Server) visualize(c *gin.Context) {
	data, err := s.readUpload(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	method := s.defaults.Method
	if raw := c.PostForm("detection_method"); raw != "" {
		if method, err = detect.ParseMethod(raw); err != nil {
			s.writeError(c, apperr.New(apperr.InvalidArgument, err.Error()))
			return
		}
	}

	vis, err := s.pipeline.Visualize(data, method)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, visualizeResponse{
		LabeledImage:  imaging.DataURL("image/png", vis.LabeledImage),
		Regions:       vis.Regions,
		DetectionTerm: vis.DetectionTerm,
	})
}

func (s *Server) run(c *gin.Context, data []byte, opts pipeline.Options) {
	res, err := s.pipeline.Process(c.Request.Context(), data, opts)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) readUpload(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Wrap(err, apperr.InvalidArgument, "image exceeds size limit")
		}
		if form := c.Request.MultipartForm; form != nil {
			if _, ok := form.Value["image"]; ok {
				return nil, apperr.New(apperr.InvalidArgument, msgNoFile)
			}
		}
		return nil, apperr.New(apperr.InvalidArgument, msgNoImage)
	}
	if strings.TrimSpace(fileHeader.Filename) == "" {
		return nil, apperr.New(apperr.InvalidArgument, msgNoFile)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.InvalidArgument, "failed to read image")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.InvalidArgument, "failed to read image")
	}
	if len(data) == 0 {
		return nil, apperr.New(apperr.InvalidArgument, msgNoFile)
	}
	return data, nil
}

func (s *Server) parseOptions(method, size string, elevate *bool) (pipeline.Options, error) {
	opts := s.defaults
	if strings.TrimSpace(method) != "" {
		m, err := detect.ParseMethod(method)
		if err != nil {
			return pipeline.Options{}, apperr.New(apperr.InvalidArgument, err.Error())
		}
		opts.Method = m
	}
	if strings.TrimSpace(size) != "" {
		sz, err := prompt.ParseSize(size)
		if err != nil {
			return pipeline.Options{}, apperr.New(apperr.InvalidArgument, err.Error())
		}
		opts.Size = sz
	}
	if elevate != nil {
		opts.Elevate = *elevate
	}
	return opts, nil
}

func (s *Server) writeError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "request_id", c.GetString(ctxRequestID), "code", appErr.Code, "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": appErr.Message})
}

func optionalBool(value string) *bool {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return nil
	}
	b := value == "1" || value == "true" || value == "yes" || value == "on"
	return &b
}
