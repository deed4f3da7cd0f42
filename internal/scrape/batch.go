package scrape

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/articlr/articlr/internal/pipeline"
)

// ContentFetcher is the per-URL retrieval contract consumed by the batch.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Batch runs the fetcher over all candidate URLs concurrently. Each URL is
// independent: one failure or slow fetch never cancels or blocks the others.
type Batch struct {
	fetcher ContentFetcher
	logger  *zap.Logger
}

// NewBatch constructs the batch acquirer.
func NewBatch(fetcher ContentFetcher, logger *zap.Logger) *Batch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batch{fetcher: fetcher, logger: logger}
}

// Acquire fans out one fetch per URL and collects every result. Results are
// indexed by input position, so each outcome stays attributable to its URL.
func (b *Batch) Acquire(ctx context.Context, urls []string) []pipeline.AcquisitionResult {
	results := make([]pipeline.AcquisitionResult, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			text, err := b.fetcher.Fetch(ctx, url)
			if err != nil {
				b.logger.Warn("acquisition failed", zap.String("url", url), zap.Error(err))
				results[i] = pipeline.AcquisitionResult{URL: url, Err: err}
				return
			}
			results[i] = pipeline.AcquisitionResult{URL: url, Text: text}
		}(i, url)
	}
	wg.Wait()

	return results
}
