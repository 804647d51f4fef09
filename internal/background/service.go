// Package background generates timer background images from text prompts
// through a hosted inference API, with an optional Redis cache in front.
package background

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adibhanna/focusflow/internal/metrics"
)

// Generator turns a model input into an image URL.
type Generator interface {
	Generate(ctx context.Context, input Input) (string, error)
}

// Request is a caller's generation request. Zero optional fields take the
// service defaults.
type Request struct {
	Prompt          string `json:"prompt"`
	AspectRatio     string `json:"aspectRatio,omitempty"`
	OutputFormat    string `json:"outputFormat,omitempty"`
	OutputQuality   int    `json:"outputQuality,omitempty"`
	SafetyTolerance int    `json:"safetyTolerance,omitempty"`
}

func (r Request) Validate() error {
	if err := ValidatePrompt(r.Prompt); err != nil {
		return err
	}
	if r.OutputQuality != 0 && (r.OutputQuality < 1 || r.OutputQuality > 100) {
		return &ValidationError{Field: "outputQuality", Message: "output quality must be a number between 1 and 100"}
	}
	if r.SafetyTolerance != 0 && (r.SafetyTolerance < 1 || r.SafetyTolerance > 6) {
		return &ValidationError{Field: "safetyTolerance", Message: "safety tolerance must be a number between 1 and 6"}
	}
	return nil
}

type Defaults struct {
	AspectRatio     string
	OutputFormat    string
	OutputQuality   int
	SafetyTolerance int
}

func DefaultDefaults() Defaults {
	return Defaults{
		AspectRatio:     "16:9",
		OutputFormat:    "webp",
		OutputQuality:   80,
		SafetyTolerance: 6,
	}
}

type Result struct {
	ImageURL string
	Cached   bool
}

type Service struct {
	gen      Generator
	cache    *Cache
	metrics  *metrics.Metrics
	defaults Defaults
}

// NewService wires a generator with an optional cache and metrics.
func NewService(gen Generator, cache *Cache, m *metrics.Metrics, defaults Defaults) *Service {
	return &Service{
		gen:      gen,
		cache:    cache,
		metrics:  m,
		defaults: defaults,
	}
}

func (s *Service) withDefaults(req Request) Request {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.AspectRatio == "" {
		req.AspectRatio = s.defaults.AspectRatio
	}
	if req.OutputFormat == "" {
		req.OutputFormat = s.defaults.OutputFormat
	}
	if req.OutputQuality == 0 {
		req.OutputQuality = s.defaults.OutputQuality
	}
	if req.SafetyTolerance == 0 {
		req.SafetyTolerance = s.defaults.SafetyTolerance
	}
	return req
}

// Generate validates req, serves it from the cache when possible and otherwise
// calls the generator. Cache failures are logged and never fail the request.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		s.metrics.Outcome(metrics.OutcomeInvalid)
		return Result{}, err
	}
	req = s.withDefaults(req)
	log := logrus.WithField("prompt_hash", HashPrompt(req.Prompt)[:12])

	if url, ok, err := s.cache.Get(ctx, req); err != nil {
		log.WithError(err).Warn("background cache lookup failed")
	} else if ok {
		log.Info("background served from cache")
		s.metrics.Outcome(metrics.OutcomeCached)
		return Result{ImageURL: url, Cached: true}, nil
	}

	started := time.Now()
	url, err := s.gen.Generate(ctx, Input{
		Prompt:           decoratePrompt(req.Prompt),
		AspectRatio:      req.AspectRatio,
		OutputFormat:     req.OutputFormat,
		OutputQuality:    req.OutputQuality,
		SafetyTolerance:  req.SafetyTolerance,
		PromptUpsampling: true,
	})
	s.metrics.ObserveGeneration(time.Since(started).Seconds())
	if err != nil {
		log.WithError(err).Error("background generation failed")
		s.metrics.Outcome(metrics.OutcomeError)
		return Result{}, err
	}

	if err := s.cache.Set(ctx, req, url); err != nil {
		log.WithError(err).Warn("background cache store failed")
	}

	log.WithField("duration", time.Since(started)).Info("background generated")
	s.metrics.Outcome(metrics.OutcomeOK)
	return Result{ImageURL: url}, nil
}
