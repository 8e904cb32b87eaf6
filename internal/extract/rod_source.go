package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// Defaults for RodConfig.
const (
	DefaultRodMaxPages = 5
	DefaultRodTimeout  = 30 * time.Second
)

// RodConfig configures the headless browser behind RodSource.
type RodConfig struct {
	// BrowserBin overrides the Chromium binary; empty lets rod download one.
	BrowserBin string

	// ControlURL connects to an already running browser instead of launching.
	ControlURL string

	// MaxPages bounds the page pool.
	MaxPages int

	// Stealth injects go-rod/stealth before every navigation.
	Stealth bool

	// Timeout bounds one page render.
	Timeout time.Duration

	// Headers are sent with every navigation in addition to the no-cache
	// headers.
	Headers map[string]string

	Logger *slog.Logger
}

// RodSource renders pages in headless Chromium so that script-injected
// structured data is visible.
type RodSource struct {
	browser  *rod.Browser
	pool     rod.Pool[rod.Page]
	cfg      RodConfig
	launched *launcher.Launcher
	logger   *slog.Logger
}

// NewRodSource launches or connects to a browser.
func NewRodSource(cfg RodConfig) (*RodSource, error) {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultRodMaxPages
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRodTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &RodSource{cfg: cfg, logger: logger}

	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(true).NoSandbox(true)
		if cfg.BrowserBin != "" {
			l = l.Bin(cfg.BrowserBin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		s.launched = l
		logger.Debug("browser launched", "controlURL", controlURL)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		if s.launched != nil {
			s.launched.Kill()
		}
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	s.browser = browser
	s.pool = rod.NewPagePool(cfg.MaxPages)
	return s, nil
}

// Fetch implements PageSource. The status code is read from the navigation
// timing entry and is zero when the browser does not expose it.
func (s *RodSource) Fetch(ctx context.Context, url string) (Page, error) {
	result := Page{URL: url}

	page, err := s.pool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return result, fmt.Errorf("acquire page: %w", err)
	}
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			s.logger.Debug("failed to reset page", "error", navErr)
		}
		s.pool.Put(page)
	}()

	if s.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			s.logger.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	headers := map[string]string{"Cache-Control": "no-cache", "Pragma": "no-cache"}
	for k, v := range s.cfg.Headers {
		headers[k] = v
	}
	if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}).Call(page); err != nil {
		s.logger.Debug("failed to set extra headers", "error", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	p := page.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return result, fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		s.logger.Debug("DOM did not settle, using current DOM", "url", url, "error", err)
	}

	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch (e) {}
		return 0;
	}`); err == nil {
		result.StatusCode = res.Value.Int()
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return result, fmt.Errorf("read rendered html of %s: %w", url, err)
	}
	result.HTML = rawHTML
	result.Bytes = int64(len(rawHTML))

	if result.StatusCode >= 400 {
		return result, fmt.Errorf("render %s: status %d", url, result.StatusCode)
	}
	return result, nil
}

// Close drains the page pool and shuts the browser down.
func (s *RodSource) Close() error {
	s.pool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	err := s.browser.Close()
	if s.launched != nil {
		s.launched.Kill()
	}
	return err
}

func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
