package config

import (
	"maps"
	"net/url"
	"strings"
)

// DomainConfig holds the settings of one benchmarked domain.
type DomainConfig struct {
	// Manifest overrides the manifest file name.
	Manifest string `yaml:"manifest,omitempty"`

	// Headers are extra HTTP headers sent to this domain, such as an
	// Authorization header for a staging site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Concurrency overrides the in-flight limit when positive.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Render selects headless rendering when set.
	Render *bool `yaml:"render,omitempty"`
}

// File represents the structure of the .shakeproof configuration file.
type File struct {
	// Defaults applies to every domain unless overridden.
	Defaults DomainConfig `yaml:"defaults,omitempty"`

	// Domains maps a host ("example.com") or a domain root
	// ("https://example.com") to its settings.
	Domains map[string]DomainConfig `yaml:"domains,omitempty"`
}

// GetDomainConfig merges the defaults with the entry for domain. An entry
// keyed by the exact domain root wins over one keyed by host.
func (f *File) GetDomainConfig(domain string) DomainConfig {
	result := f.Defaults
	if len(f.Defaults.Headers) > 0 {
		result.Headers = maps.Clone(f.Defaults.Headers)
	}

	dc, ok := f.Domains[strings.TrimRight(domain, "/")]
	if !ok {
		dc, ok = f.Domains[hostOf(domain)]
	}
	if !ok {
		return result
	}

	if dc.Manifest != "" {
		result.Manifest = dc.Manifest
	}
	if dc.Concurrency > 0 {
		result.Concurrency = dc.Concurrency
	}
	if dc.Render != nil {
		result.Render = dc.Render
	}
	if len(dc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(dc.Headers))
		}
		maps.Copy(result.Headers, dc.Headers)
	}
	return result
}

func hostOf(domain string) string {
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	u, err := url.Parse(domain)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
