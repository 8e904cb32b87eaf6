// Package main provides the entry point for the shakeproof CLI.
//
// shakeproof benchmarks LangShake domains: it crawls the declared
// machine-readable modules, crawls the same pages the traditional way and
// compares the two.
//
// Usage:
//
//	shakeproof bench <domain>...
//	shakeproof history <domain>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
