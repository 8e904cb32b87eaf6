// Package config provides the benchmark configuration, its defaults and the
// optional .shakeproof YAML file with per-domain overrides.
package config
