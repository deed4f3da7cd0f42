package scrape

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/articlr/articlr/internal/metrics"
)

// transientStatusCodes are the response codes worth retrying: rate limits,
// upstream hiccups, and the 403s bot-blockers return intermittently.
var transientStatusCodes = map[int]bool{
	http.StatusForbidden:           true,
	http.StatusRequestTimeout:      true,
	http.StatusTooEarly:            true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// DirectConfig controls the direct HTTP strategy.
type DirectConfig struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	MaxTextChars int
}

// DirectStrategy fetches pages with a plain HTTP GET through Colly, using
// desktop-browser headers to reduce bot-blocking false negatives. The raw
// bytes are decoded through the encoding resolver before text extraction.
type DirectStrategy struct {
	cfg    DirectConfig
	logger *zap.Logger
	base   *colly.Collector
}

// NewDirectStrategy builds the strategy with defaults filled in.
func NewDirectStrategy(cfg DirectConfig, logger *zap.Logger) *DirectStrategy {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = 8000
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector(colly.Async(false), colly.IgnoreRobotsTxt())
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          32,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		base.UserAgent = cfg.UserAgent
	}

	return &DirectStrategy{cfg: cfg, logger: logger, base: base}
}

// Name identifies the strategy in logs and metrics.
func (s *DirectStrategy) Name() string { return "direct" }

// Attempt issues the GET with up to MaxRetries additional attempts restricted
// to transient status codes and transient network errors.
func (s *DirectStrategy) Attempt(ctx context.Context, rawURL string) (string, error) {
	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, backoffDelay(attempt)); err != nil {
				break
			}
			s.logger.Debug("retrying direct fetch",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
			)
		}

		text, retryable, err := s.fetchOnce(ctx, rawURL)
		if err == nil {
			metrics.ObserveScrape(rawURL, s.Name(), "success", time.Since(start))
			return text, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	metrics.ObserveScrape(rawURL, s.Name(), "error", time.Since(start))
	return "", lastErr
}

type directOutcome struct {
	body    []byte
	headers http.Header
	status  int
	err     error
}

func (s *DirectStrategy) fetchOnce(ctx context.Context, rawURL string) (string, bool, error) {
	outcome, err := s.runCollector(ctx, rawURL)
	if err != nil {
		return "", s.isRetryable(outcome, err), err
	}

	html := DecodeHTML(outcome.body, outcome.headers)
	text, err := extractBodyText(html)
	if err != nil {
		return "", false, err
	}
	if text == "" {
		return "", false, errNoBodyText
	}
	return truncateRunes(text, s.cfg.MaxTextChars), false, nil
}

func (s *DirectStrategy) runCollector(ctx context.Context, rawURL string) (directOutcome, error) {
	collector := s.base.Clone()
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(s.cfg.Timeout)

	resultCh := make(chan directOutcome, 1)
	send := func(o directOutcome) {
		select {
		case resultCh <- o:
		default:
		}
	}

	collector.OnRequest(func(r *colly.Request) {
		setBrowserHeaders(r)
	})
	collector.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		send(directOutcome{
			body:    append([]byte(nil), r.Body...),
			headers: headers,
			status:  r.StatusCode,
		})
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		if err == nil {
			err = errors.New("unknown fetch error")
		}
		send(directOutcome{status: status, err: err})
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return directOutcome{}, fmt.Errorf("direct fetch canceled: %w", ctx.Err())
	case visitErr := <-done:
		select {
		case outcome := <-resultCh:
			if outcome.err != nil {
				return outcome, fmt.Errorf("fetch %s: %w", rawURL, outcome.err)
			}
			return outcome, nil
		default:
			if visitErr != nil {
				return directOutcome{}, fmt.Errorf("fetch %s: %w", rawURL, visitErr)
			}
			return directOutcome{}, fmt.Errorf("fetch %s: no response received", rawURL)
		}
	}
}

func (s *DirectStrategy) isRetryable(outcome directOutcome, err error) bool {
	if transientStatusCodes[outcome.status] {
		return true
	}
	return isTransientNetError(err)
}

func isTransientNetError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}
	return false
}

// backoffDelay returns a jittered exponential delay for the given attempt.
func backoffDelay(attempt int) time.Duration {
	delay := 250 * time.Millisecond << (attempt - 1)
	if delay > 2*time.Second {
		delay = 2 * time.Second
	}
	half := delay / 2
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func extractBodyText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return collapseWhitespace(doc.Find("body").Text()), nil
}

func setBrowserHeaders(r *colly.Request) {
	r.Headers.Set("Accept",
		"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	r.Headers.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")
	r.Headers.Set("Upgrade-Insecure-Requests", "1")
	r.Headers.Set("Sec-Fetch-Dest", "document")
	r.Headers.Set("Sec-Fetch-Mode", "navigate")
	r.Headers.Set("Sec-Fetch-Site", "none")
	r.Headers.Set("Sec-Fetch-User", "?1")
}
