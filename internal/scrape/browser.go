package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/articlr/articlr/internal/metrics"
)

// errNoBodyText reports that a page yielded no readable text. The message is
// user-facing and ends up in per-URL warnings.
var errNoBodyText = errors.New("本文を取得できませんでした。")

// BrowserConfig controls the headless-browser strategy.
type BrowserConfig struct {
	UserAgent         string
	NavigationTimeout time.Duration
	BodyWaitTimeout   time.Duration
	MaxTextChars      int
}

// BrowserStrategy renders pages with headless Chrome via chromedp and
// extracts the visible body text. Each Attempt launches an isolated browser
// that is torn down on every exit path, so a stuck session cannot leak into
// other fetches.
type BrowserStrategy struct {
	cfg    BrowserConfig
	logger *zap.Logger
}

// NewBrowserStrategy builds the strategy with defaults filled in.
func NewBrowserStrategy(cfg BrowserConfig, logger *zap.Logger) *BrowserStrategy {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if cfg.BodyWaitTimeout <= 0 {
		cfg.BodyWaitTimeout = 10 * time.Second
	}
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = 8000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrowserStrategy{cfg: cfg, logger: logger}
}

// Name identifies the strategy in logs and metrics.
func (s *BrowserStrategy) Name() string { return "browser" }

// Attempt navigates to the URL with a bounded budget and returns the rendered
// body text, whitespace-collapsed and truncated.
func (s *BrowserStrategy) Attempt(ctx context.Context, rawURL string) (string, error) {
	start := time.Now()
	text, err := s.render(ctx, rawURL)
	if err != nil {
		metrics.ObserveScrape(rawURL, s.Name(), "error", time.Since(start))
		return "", err
	}

	text = collapseWhitespace(text)
	if text == "" {
		metrics.ObserveScrape(rawURL, s.Name(), "empty", time.Since(start))
		return "", errNoBodyText
	}

	metrics.ObserveScrape(rawURL, s.Name(), "success", time.Since(start))
	s.logger.Debug("browser scrape succeeded",
		zap.String("url", rawURL),
		zap.Int("chars", len(text)),
	)
	return truncateRunes(text, s.cfg.MaxTextChars), nil
}

func (s *BrowserStrategy) render(ctx context.Context, rawURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, s.cfg.NavigationTimeout)
	defer cancel()

	var text string
	actions := []chromedp.Action{
		s.networkSetupAction(),
		chromedp.Navigate(rawURL),
		s.waitBodyAction(),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return text, nil
}

func (s *BrowserStrategy) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// waitBodyAction waits for the body element under its own budget, tighter
// than the overall navigation timeout.
func (s *BrowserStrategy) waitBodyAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		waitCtx, cancel := context.WithTimeout(ctx, s.cfg.BodyWaitTimeout)
		defer cancel()
		if err := chromedp.WaitReady("body", chromedp.ByQuery).Do(waitCtx); err != nil {
			return fmt.Errorf("wait for body: %w", err)
		}
		return nil
	})
}
