package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/langshake/shake-proof/internal/model"
)

// Extraction is the structured data obtained from one page.
type Extraction struct {
	Records []model.Record

	// Bytes is the size of the page payload the records were taken from.
	Bytes int64

	// RequestBytes estimates the request size; zero when unknown.
	RequestBytes int64

	// StatusCode is zero when the page source cannot observe it.
	StatusCode int
}

// Extractor obtains the structured records describing a page.
type Extractor interface {
	Extract(ctx context.Context, url string) (Extraction, error)
}

// Page is raw HTML as returned by a PageSource.
type Page struct {
	URL          string
	HTML         string
	StatusCode   int
	Bytes        int64
	RequestBytes int64
}

// PageSource turns a URL into HTML, either statically or by rendering.
type PageSource interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// HTMLExtractor reads JSON-LD blocks and microdata items from the HTML a
// PageSource returns.
type HTMLExtractor struct {
	source    PageSource
	microdata bool
	logger    *slog.Logger
}

// Option configures an HTMLExtractor.
type Option func(*HTMLExtractor)

// WithMicrodata toggles microdata extraction. It is on by default.
func WithMicrodata(enabled bool) Option {
	return func(e *HTMLExtractor) {
		e.microdata = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *HTMLExtractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewHTMLExtractor creates an extractor reading pages from source.
func NewHTMLExtractor(source PageSource, opts ...Option) *HTMLExtractor {
	e := &HTMLExtractor{source: source, microdata: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract implements Extractor. On failure the returned Extraction still
// carries whatever status and byte counts the source observed.
func (e *HTMLExtractor) Extract(ctx context.Context, url string) (Extraction, error) {
	page, err := e.source.Fetch(ctx, url)
	ext := Extraction{
		Bytes:        page.Bytes,
		RequestBytes: page.RequestBytes,
		StatusCode:   page.StatusCode,
	}
	if err != nil {
		return ext, err
	}

	records, err := e.records(page.HTML)
	if err != nil {
		return ext, fmt.Errorf("parse %s: %w", url, err)
	}
	ext.Records = records

	e.logger.Debug("extracted structured data", "url", url, "records", len(records))
	return ext, nil
}

func (e *HTMLExtractor) records(rawHTML string) ([]model.Record, error) {
	doc, err := parseDocument(rawHTML)
	if err != nil {
		return nil, err
	}

	records := jsonLD(doc, e.logger)
	if e.microdata {
		records = append(records, microdata(doc)...)
	}
	if records == nil {
		records = []model.Record{}
	}
	return records, nil
}
