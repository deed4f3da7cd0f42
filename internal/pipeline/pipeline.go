package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/articlr/articlr/internal/metrics"
)

// Acquirer fetches content for each candidate URL independently.
type Acquirer interface {
	Acquire(ctx context.Context, urls []string) []AcquisitionResult
}

// OutlineGenerator produces a structured outline from the keyword and sources.
type OutlineGenerator interface {
	GenerateOutline(ctx context.Context, keyword string, sources []Source) (Outline, error)
}

// ArticleGenerator produces the full article from an approved outline.
type ArticleGenerator interface {
	GenerateArticle(ctx context.Context, keyword string, outline Outline) (Article, error)
}

// Deps wires the collaborators consumed by the orchestrator.
type Deps struct {
	Acquirer Acquirer
	Outliner OutlineGenerator
	Articler ArticleGenerator
	Logger   *zap.Logger
}

// Pipeline sequences acquisition, outline generation, and article generation.
type Pipeline struct {
	acquirer Acquirer
	outliner OutlineGenerator
	articler ArticleGenerator
	logger   *zap.Logger
}

// New constructs the orchestrator.
func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		acquirer: deps.Acquirer,
		outliner: deps.Outliner,
		articler: deps.Articler,
		logger:   logger,
	}
}

// Run executes Validate → Acquire → Outline → Article → Respond. Terminal
// failures carry whatever artifacts earlier phases produced.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Response, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		metrics.ObservePipeline("invalid_input")
		return nil, &ValidationError{Message: msgMissingKeyword}
	}
	urls := req.CandidateURLs()
	if len(urls) == 0 {
		metrics.ObservePipeline("invalid_input")
		return nil, &ValidationError{Message: msgMissingURLs}
	}

	p.logger.Info("pipeline started",
		zap.String("keyword", keyword),
		zap.Int("url_count", len(urls)),
	)

	sources, warnings := p.acquire(ctx, urls)
	if len(sources) == 0 {
		p.logger.Error("acquisition failed for all URLs", zap.Int("url_count", len(urls)))
		metrics.ObservePipeline("no_sources")
		return nil, &NoSourcesError{Warnings: warnings}
	}
	p.logger.Info("sources acquired",
		zap.Int("succeeded", len(sources)),
		zap.Int("failed", len(warnings)),
	)

	outline, err := p.outliner.GenerateOutline(ctx, keyword, sources)
	if err != nil {
		p.logger.Error("outline generation failed", zap.Error(err))
		metrics.ObservePipeline("outline_failed")
		return nil, &OutlineError{Warnings: warnings, Cause: err}
	}

	article, err := p.articler.GenerateArticle(ctx, keyword, outline)
	if err != nil {
		p.logger.Error("article generation failed", zap.Error(err))
		metrics.ObservePipeline("article_failed")
		return nil, &ArticleError{Outline: outline, Warnings: warnings, Cause: err}
	}

	metrics.ObservePipeline("succeeded")
	return &Response{
		Title:        article.H1,
		Introduction: article.Introduction,
		Summary:      article.Summary,
		Outline:      outline,
		Article:      article,
		Headings:     FlattenHeadings(article),
		Warnings:     warnings,
	}, nil
}

func (p *Pipeline) acquire(ctx context.Context, urls []string) ([]Source, []Warning) {
	results := p.acquirer.Acquire(ctx, urls)

	var sources []Source
	warnings := make([]Warning, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			warnings = append(warnings, Warning{URL: res.URL, Message: res.Err.Error()})
			continue
		}
		sources = append(sources, Source{URL: res.URL, Text: res.Text})
	}
	return sources, warnings
}
