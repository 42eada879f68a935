// Package pipeline runs one summarization invocation from raw input to
// summary text.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"urlsum/internal/extractor"
	"urlsum/internal/metrics"
	"urlsum/internal/prompt"
	"urlsum/internal/source"
	"urlsum/internal/summarizer"
	"urlsum/internal/validator"

	"github.com/google/uuid"
)

type Stage string

const (
	StageValidating  Stage = "validating"
	StageRouting     Stage = "routing"
	StageExtracting  Stage = "extracting"
	StageComposing   Stage = "composing"
	StageSummarizing Stage = "summarizing"
	StagePresenting  Stage = "presenting"

	outcomeSuccess = "success"
	noSource       = "none"
)

type Pipeline struct {
	router        *source.Router
	extractors    *extractor.Registry
	composer      *prompt.Composer
	newSummarizer summarizer.Factory
	metrics       *metrics.Metrics
	log           *slog.Logger
}

func New(
	router *source.Router,
	extractors *extractor.Registry,
	composer *prompt.Composer,
	newSummarizer summarizer.Factory,
	m *metrics.Metrics,
	log *slog.Logger,
) *Pipeline {
	return &Pipeline{
		router:        router,
		extractors:    extractors,
		composer:      composer,
		newSummarizer: newSummarizer,
		metrics:       m,
		log:           log,
	}
}

// Run executes one invocation synchronously. The returned error is always a
// *Error; input problems are reported before any network access.
func (p *Pipeline) Run(ctx context.Context, credential string, rawURL string) (string, error) {
	invocationID := uuid.NewString()
	log := p.log.With("invocationID", invocationID)
	start := time.Now()

	p.enter(ctx, log, StageValidating)

	switch validator.Validate(credential, rawURL) {
	case validator.MissingFields:
		return "", p.fail(ctx, log, noSource, start, &Error{Kind: KindMissingFields})
	case validator.MalformedURL:
		return "", p.fail(ctx, log, noSource, start, &Error{Kind: KindMalformedURL})
	case validator.Valid:
	}

	p.enter(ctx, log, StageRouting)
	kind := p.router.Classify(rawURL)
	log = log.With("source", kind.String())

	p.enter(ctx, log, StageExtracting)

	ext, err := p.extractors.For(kind)
	if err != nil {
		return "", p.fail(ctx, log, kind.String(), start, &Error{Kind: KindExtraction, Err: err})
	}

	fragments, err := ext.Extract(ctx, rawURL)
	if err == nil && len(fragments) == 0 {
		err = errors.New("content is empty")
	}
	if err != nil {
		return "", p.fail(ctx, log, kind.String(), start, &Error{Kind: KindExtraction, Err: err})
	}

	p.enter(ctx, log, StageComposing)
	composed := p.composer.Compose(fragments)

	log.DebugContext(ctx, "Prompt is composed",
		"fragmentsCount", len(fragments),
		"promptLen", len(composed))

	p.enter(ctx, log, StageSummarizing)

	summary, err := p.summarize(ctx, credential, composed)
	if err != nil {
		return "", p.fail(ctx, log, kind.String(), start, &Error{Kind: KindSummarization, Err: err})
	}

	p.enter(ctx, log, StagePresenting)
	p.metrics.Observe(kind.String(), outcomeSuccess, time.Since(start))

	log.InfoContext(ctx, "Summary is ready",
		"summaryLen", len(summary),
		"elapsedSeconds", time.Since(start).Seconds())

	return summary, nil
}

// summarize builds a client for this invocation only.
func (p *Pipeline) summarize(ctx context.Context, credential string, composed string) (string, error) {
	s, err := p.newSummarizer(ctx, strings.TrimSpace(credential))
	if err != nil {
		return "", fmt.Errorf("create summarizer: %w", err)
	}

	return s.Summarize(ctx, composed)
}

func (p *Pipeline) enter(ctx context.Context, log *slog.Logger, stage Stage) {
	log.DebugContext(ctx, "Invocation stage is entered",
		"stage", stage)
}

func (p *Pipeline) fail(
	ctx context.Context,
	log *slog.Logger,
	sourceKind string,
	start time.Time,
	err *Error,
) *Error {
	p.enter(ctx, log, StagePresenting)

	p.metrics.Observe(sourceKind, err.Kind.String(), time.Since(start))

	switch err.Kind {
	case KindMissingFields, KindMalformedURL:
		log.InfoContext(ctx, "Invocation is rejected",
			"kind", err.Kind.String())
	default:
		log.ErrorContext(ctx, "Failed to summarize URL",
			"error", err.Err,
			"kind", err.Kind.String(),
			"statusCode", summarizer.StatusCode(err.Err),
			"elapsedSeconds", time.Since(start).Seconds())
	}

	return err
}
