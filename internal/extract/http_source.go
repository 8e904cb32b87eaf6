package extract

import (
	"context"

	"github.com/langshake/shake-proof/internal/fetch"
)

// HTTPSource reads pages with a plain GET, without executing scripts.
type HTTPSource struct {
	client *fetch.Client
}

// NewHTTPSource uses client, and so its retry policy, for every page.
func NewHTTPSource(client *fetch.Client) *HTTPSource {
	return &HTTPSource{client: client}
}

// Fetch implements PageSource.
func (s *HTTPSource) Fetch(ctx context.Context, url string) (Page, error) {
	resp, err := s.client.Get(ctx, url)
	if resp == nil {
		return Page{URL: url}, err
	}

	page := Page{
		URL:          url,
		StatusCode:   resp.StatusCode,
		Bytes:        resp.BytesIn,
		RequestBytes: resp.BytesOut,
	}
	if err != nil {
		return page, err
	}
	page.HTML = string(resp.Body)
	return page, nil
}
