// Package crawler runs the two fetch phases of a domain benchmark.
//
// # Phases
//
// LangshakeCrawler fetches the manifest under /.well-known/, then validates
// every module it lists with a ModuleValidator: the module is fetched, split
// into records and checksum, re-hashed, and its canonical subject URL is
// derived from the records.
//
// TraditionalCrawler takes the subject URLs from the first phase and hands
// each one to an extract.Extractor, which obtains the structured data from
// the page itself.
//
// # Concurrency
//
// Both phases fan out through BatchProcessor, which uses errgroup.SetLimit.
// Tasks never return errors to the group, so a failing slot never cancels its
// siblings, and results are written to the slot of their original index. The
// only state shared between tasks is the phase's metrics.Collector.
//
// # Usage
//
//	lc := crawler.NewLangshakeCrawler(client, collector, "llm.json")
//	res, err := lc.FetchManifest(ctx, "https://example.com")
//	if err != nil {
//		return err // fatal: manifest stage
//	}
//	lc.CrawlModules(ctx, res)
package crawler
