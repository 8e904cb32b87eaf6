package crawler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/langshake/shake-proof/internal/extract"
	"github.com/langshake/shake-proof/internal/metrics"
	"github.com/langshake/shake-proof/internal/model"
)

// errNoSubject marks a slot whose module produced no page to compare against.
var errNoSubject = errors.New("no canonical subject url for this slot")

// TraditionalCrawler runs the reference phase: structured data is extracted
// from the pages themselves.
type TraditionalCrawler struct {
	extractor extract.Extractor
	collector *metrics.Collector
	cfg       crawlerConfig
}

// NewTraditionalCrawler creates a crawler bound to one collector.
func NewTraditionalCrawler(extractor extract.Extractor, collector *metrics.Collector, opts ...Option) *TraditionalCrawler {
	return &TraditionalCrawler{
		extractor: extractor,
		collector: collector,
		cfg:       newCrawlerConfig(opts),
	}
}

// Crawl extracts every URL under the concurrency limit. The result is
// index-aligned with urls; an empty URL yields a PageExtractionError slot
// and a phase error without any request. One failing page never affects another.
func (c *TraditionalCrawler) Crawl(ctx context.Context, urls []string) []model.PageExtraction {
	bp := NewBatchProcessor(
		WithConcurrency(c.cfg.concurrency),
		WithInFlightObserver(c.collector.UpdateConcurrency),
		WithBatchLogger(c.cfg.logger),
	)

	c.cfg.reporter.PhaseStarted(model.PhaseTraditional, len(urls))

	return Process(ctx, bp, len(urls), func(ctx context.Context, i int) model.PageExtraction {
		page := c.crawlOne(ctx, i, urls[i])
		var itemErr error
		if page.Error != nil {
			itemErr = page.Error
		}
		c.cfg.reporter.ItemDone(model.PhaseTraditional, i, page.URL, itemErr)
		return page
	})
}

func (c *TraditionalCrawler) crawlOne(ctx context.Context, index int, pageURL string) model.PageExtraction {
	page := model.PageExtraction{Index: index, URL: pageURL}
	if pageURL == "" {
		page.Error = model.NewBenchError(model.PageExtractionError, "", "", errNoSubject)
		c.collector.RecordError("", page.Error)
		return page
	}

	start := time.Now()
	ext, err := c.extractor.Extract(ctx, pageURL)
	c.collector.RecordRequest(metrics.RequestRecord{
		URL:        pageURL,
		Method:     http.MethodGet,
		Start:      start,
		End:        time.Now(),
		BytesIn:    ext.Bytes,
		BytesOut:   ext.RequestBytes,
		StatusCode: ext.StatusCode,
	})

	page.Bytes = ext.Bytes
	page.StatusCode = ext.StatusCode
	if err != nil {
		page.Error = classifyFetchError(err, model.PageExtractionError, pageURL)
		c.collector.RecordError(pageURL, page.Error)
		return page
	}

	page.Records = ext.Records
	if c.cfg.artifacts != nil {
		n, err := c.cfg.artifacts.Write(model.PhaseTraditional, index, page.Records)
		if err != nil {
			c.cfg.logger.Warn("failed to write artifact", "url", pageURL, "error", err)
		}
		c.collector.RecordDiskUsage(n)
	}
	return page
}
