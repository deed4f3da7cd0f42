package scrape

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Strategy retrieves the readable text of a page, or fails.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, url string) (string, error)
}

// Fetcher tries an ordered list of strategies per URL, returning the first
// success. When every strategy fails, the LAST strategy's error is reported:
// the direct-HTTP fallback's message is the more diagnostic one for
// bot-blocking scenarios.
type Fetcher struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewFetcher builds a Fetcher over the given strategies, tried in order.
func NewFetcher(logger *zap.Logger, strategies ...Strategy) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{strategies: strategies, logger: logger}
}

// Fetch retrieves content for one URL, falling through the strategy list.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if len(f.strategies) == 0 {
		return "", errors.New("no fetch strategies configured")
	}

	var lastErr error
	for _, strategy := range f.strategies {
		text, err := strategy.Attempt(ctx, url)
		if err == nil {
			f.logger.Info("scrape succeeded",
				zap.String("url", url),
				zap.String("strategy", strategy.Name()),
				zap.Int("chars", len(text)),
			)
			return text, nil
		}
		f.logger.Warn("scrape strategy failed",
			zap.String("url", url),
			zap.String("strategy", strategy.Name()),
			zap.Error(err),
		)
		lastErr = err
	}
	return "", lastErr
}
