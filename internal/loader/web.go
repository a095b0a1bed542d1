package loader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"

	"github.com/ooocheckitout/llm-knowledge-base/internal/knowledge"
)

// WebLoader fetches pages with a headless browser and extracts the readable
// article text. Client-side rendered pages need the browser; readability
// strips chrome like headers and footers.
type WebLoader struct {
	Timeout time.Duration
	logger  *log.Logger
}

func NewWebLoader(timeout time.Duration, logger *log.Logger) *WebLoader {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &WebLoader{Timeout: timeout, logger: logger}
}

// Load fetches every URL in text (one per line) and returns one document per
// page. YouTube URLs additionally get a transcript document when captions
// are available; transcript failures are logged and skipped.
func (l *WebLoader) Load(ctx context.Context, text string) ([]knowledge.Document, error) {
	var docs []knowledge.Document
	for _, line := range strings.Split(text, "\n") {
		raw := strings.TrimSpace(line)
		if raw == "" {
			continue
		}
		doc, err := l.loadPage(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", raw, err)
		}
		docs = append(docs, doc)

		if videoID := youtubeVideoID(raw); videoID != "" {
			transcript, err := loadTranscript(ctx, videoID)
			if err != nil {
				l.logger.Printf("no transcript for %s: %v", raw, err)
				continue
			}
			docs = append(docs, knowledge.NewDocument(transcript, map[string]string{
				knowledge.MetaSource:     raw,
				knowledge.MetaSourceType: knowledge.SourceTypeURL,
			}))
		}
	}
	if len(docs) == 0 {
		return nil, errors.New("no urls to load")
	}
	return docs, nil
}

func (l *WebLoader) loadPage(ctx context.Context, pageURL string) (knowledge.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	html, err := fetchHTML(ctx, pageURL)
	if err != nil {
		return knowledge.Document{}, fmt.Errorf("headless fetch failed: %w", err)
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return knowledge.Document{}, fmt.Errorf("readability extraction failed: %w", err)
	}

	return knowledge.NewDocument(strings.TrimSpace(article.TextContent), map[string]string{
		knowledge.MetaSource:     pageURL,
		knowledge.MetaSourceType: knowledge.SourceTypeURL,
	}), nil
}

func fetchHTML(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

// IsURLOnly reports whether text consists solely of URLs, one per line.
// Such messages are ingested as pages instead of raw text.
func IsURLOnly(text string) bool {
	seen := false
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		u, err := url.Parse(line)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return false
		}
		seen = true
	}
	return seen
}
