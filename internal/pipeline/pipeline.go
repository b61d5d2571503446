package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ui-screenshot-to-prompt/internal/apperr"
	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/imaging"
	"ui-screenshot-to-prompt/internal/metrics"
	"ui-screenshot-to-prompt/internal/prompt"
	"ui-screenshot-to-prompt/internal/superprompt"
	"ui-screenshot-to-prompt/internal/vision"
)

const analysisUnavailable = "Analysis unavailable."

type Options struct {
	Method  detect.Method
	Size    prompt.Size
	Elevate bool
}

type Config struct {
	Vision            vision.Model
	SuperPrompt       superprompt.Provider
	Logger            *slog.Logger
	MaxDimension      int
	RegionConcurrency int
	// DuplicateDistance is the largest perceptual hash distance treated as a
	// repeat of an earlier region. Negative disables the check.
	DuplicateDistance int
}

type Processor struct {
	vision      vision.Model
	super       superprompt.Provider
	logger      *slog.Logger
	maxDim      int
	concurrency int
	dupDistance int
}

func New(cfg Config) (*Processor, error) {
	if cfg.Vision == nil {
		return nil, errors.New("vision model is nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	concurrency := cfg.RegionConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{
		vision:      cfg.Vision,
		super:       cfg.SuperPrompt,
		logger:      logger,
		maxDim:      cfg.MaxDimension,
		concurrency: concurrency,
		dupDistance: cfg.DuplicateDistance,
	}, nil
}

func (p *Processor) VisionProvider() string { return p.vision.Name() }

func (p *Processor) SuperPromptProvider() string { return p.super.Name }

type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func boxOf(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

type Region struct {
	Index       int    `json:"index"`
	Bounds      Box    `json:"bounds"`
	Position    string `json:"position"`
	Description string `json:"description,omitempty"`
	DuplicateOf int    `json:"duplicate_of,omitempty"`
	Error       string `json:"error,omitempty"`
}

type Result struct {
	MainDesignChoices   string        `json:"main_design_choices"`
	Analyses            []string      `json:"analyses"`
	FinalAnalysis       string        `json:"final_analysis"`
	Activity            string        `json:"activity_analysis"`
	Regions             []Region      `json:"regions"`
	DetectionMethod     detect.Method `json:"detection_method"`
	DetectionTerm       string        `json:"detection_term"`
	PromptSize          prompt.Size   `json:"prompt_size"`
	SuperPromptProvider string        `json:"super_prompt_provider,omitempty"`
	VisionProvider      string        `json:"vision_provider"`
	ElapsedMS           int64         `json:"elapsed_ms"`
}

type regionJob struct {
	region detect.Region
	crop   []byte
	dupOf  int
}

// Process turns a screenshot into a recreation prompt.
func (p *Processor) Process(ctx context.Context, data []byte, opts Options) (res Result, err error) {
	opts = normalize(opts)
	start := time.Now()
	metrics.PipelinesInFlight.Inc()
	defer func() {
		metrics.PipelinesInFlight.Dec()
		metrics.PipelineRunsTotal.WithLabelValues(string(opts.Method), metrics.Result(err)).Inc()
		metrics.PipelineDurationSeconds.WithLabelValues(string(opts.Method)).Observe(time.Since(start).Seconds())
	}()

	img, err := load(data, p.maxDim)
	if err != nil {
		return Result{}, err
	}
	full, err := imaging.EncodePNG(img)
	if err != nil {
		return Result{}, apperr.Wrap(err, apperr.Internal, "encode image")
	}

	term := opts.Method.Term()
	size := img.Bounds().Size()
	regions := detect.Detect(img, opts.Method)
	metrics.RegionsPerImage.WithLabelValues(string(opts.Method)).Observe(float64(len(regions)))

	jobs, err := p.prepare(img, regions)
	if err != nil {
		return Result{}, err
	}

	logger := p.logger.With("method", opts.Method, "regions", len(regions))
	logger.Info("processing screenshot", "width", size.X, "height", size.Y)

	var (
		g            errgroup.Group
		mu           sync.Mutex
		mainCaption  string
		activity     string
		descriptions = make([]string, len(jobs))
		failures     = make([]error, len(jobs))
		calls        int
		failed       int
		firstErr     error
	)
	g.SetLimit(p.concurrency)

	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	g.Go(func() error {
		out, err := p.vision.Describe(ctx, prompt.MainDesignAnalysis, "image/png", full)
		record(err)
		if err != nil {
			logger.Warn("main design analysis failed", "err", err)
			return nil
		}
		mainCaption = out
		return nil
	})
	g.Go(func() error {
		out, err := p.vision.Describe(ctx, prompt.ActivityAnalysis, "image/png", full)
		record(err)
		if err != nil {
			logger.Warn("activity analysis failed", "err", err)
			return nil
		}
		activity = out
		return nil
	})
	for i, job := range jobs {
		if job.dupOf > 0 {
			continue
		}
		i, job := i, job
		g.Go(func() error {
			text := prompt.RegionPrompt(term, job.region.Index, len(jobs), job.region.Bounds, size)
			out, err := p.vision.Describe(ctx, text, "image/png", job.crop)
			record(err)
			if err != nil {
				logger.Warn("region analysis failed", "index", job.region.Index, "err", err)
				failures[i] = err
				return nil
			}
			descriptions[i] = out
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, apperr.From(err)
	}
	if calls > 0 && failed == calls {
		return Result{}, apperr.Wrap(firstErr, apperr.Unavailable, "vision analysis failed")
	}

	res = Result{
		MainDesignChoices: mainCaption,
		Activity:          activity,
		Analyses:          make([]string, len(jobs)),
		Regions:           make([]Region, len(jobs)),
		DetectionMethod:   opts.Method,
		DetectionTerm:     term,
		PromptSize:        opts.Size,
		VisionProvider:    p.vision.Name(),
	}
	for i, job := range jobs {
		r := Region{
			Index:       job.region.Index,
			Bounds:      boxOf(job.region.Bounds),
			Position:    prompt.Position(job.region.Bounds, size),
			DuplicateOf: job.dupOf,
		}
		switch {
		case job.dupOf > 0:
			r.Description = prompt.DuplicateDescription(term, job.dupOf, r.Position)
		case failures[i] != nil:
			r.Description = analysisUnavailable
			r.Error = failures[i].Error()
		default:
			r.Description = descriptions[i]
		}
		res.Regions[i] = r
		res.Analyses[i] = r.Description
	}

	res.FinalAnalysis = prompt.BuildSuperPrompt(prompt.Input{
		Term:        term,
		MainCaption: mainCaption,
		Regions:     res.Analyses,
		Activity:    activity,
		Size:        opts.Size,
	})

	if opts.Elevate && p.super.Enabled() {
		elevated, err := p.super.Func(ctx, res.FinalAnalysis)
		switch {
		case err != nil:
			logger.Warn("super prompt failed, using assembled prompt", "provider", p.super.Name, "err", err)
		default:
			res.FinalAnalysis = elevated
			res.SuperPromptProvider = p.super.Name
		}
	}

	res.ElapsedMS = time.Since(start).Milliseconds()
	logger.Info("screenshot processed", "elapsed_ms", res.ElapsedMS, "failed_calls", failed, "super_prompt", res.SuperPromptProvider)
	return res, nil
}

func load(data []byte, maxDim int) (image.Image, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.InvalidArgument, "invalid image")
	}
	return imaging.Fit(img, maxDim), nil
}

// prepare crops each region and marks crops whose fingerprint is within
// dupDistance of an earlier unique region.
func (p *Processor) prepare(img image.Image, regions []detect.Region) ([]regionJob, error) {
	jobs := make([]regionJob, len(regions))
	type seen struct {
		index int
		fp    imaging.Fingerprint
	}
	var uniques []seen

	for i, r := range regions {
		crop := imaging.Crop(img, r.Bounds)
		encoded, err := imaging.EncodePNG(crop)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.Internal, fmt.Sprintf("encode region %d", r.Index))
		}
		jobs[i] = regionJob{region: r, crop: encoded}

		if p.dupDistance < 0 || len(regions) < 2 {
			continue
		}
		fp, err := imaging.NewFingerprint(crop)
		if err != nil {
			p.logger.Debug("fingerprint failed", "index", r.Index, "err", err)
			continue
		}
		for _, u := range uniques {
			if d := u.fp.Distance(fp); d >= 0 && d <= p.dupDistance {
				jobs[i].dupOf = u.index
				jobs[i].crop = nil
				metrics.DuplicateRegionsTotal.Inc()
				break
			}
		}
		if jobs[i].dupOf == 0 {
			uniques = append(uniques, seen{index: r.Index, fp: fp})
		}
	}
	return jobs, nil
}

// Visualization is a labeled copy of the screenshot plus its regions.
type Visualization struct {
	LabeledImage  []byte
	Regions       []Region
	DetectionTerm string
}

func (p *Processor) Visualize(data []byte, method detect.Method) (Visualization, error) {
	return Visualize(data, method, p.maxDim)
}

// Visualize runs detection only and draws the numbered regions. It needs no
// vision model.
func Visualize(data []byte, method detect.Method, maxDim int) (Visualization, error) {
	if method == "" {
		method = detect.MethodBasic
	}
	img, err := load(data, maxDim)
	if err != nil {
		return Visualization{}, err
	}
	size := img.Bounds().Size()
	regions := detect.Detect(img, method)

	boxes := make([]image.Rectangle, len(regions))
	out := make([]Region, len(regions))
	for i, r := range regions {
		boxes[i] = r.Bounds
		out[i] = Region{Index: r.Index, Bounds: boxOf(r.Bounds), Position: prompt.Position(r.Bounds, size)}
	}

	labeled, err := imaging.Overlay(img, boxes, method.Term())
	if err != nil {
		return Visualization{}, apperr.Wrap(err, apperr.Internal, "draw overlay")
	}
	return Visualization{LabeledImage: labeled, Regions: out, DetectionTerm: method.Term()}, nil
}

func normalize(opts Options) Options {
	if opts.Method == "" {
		opts.Method = detect.MethodBasic
	}
	if opts.Size == "" {
		opts.Size = prompt.SizeConcise
	}
	return opts
}
