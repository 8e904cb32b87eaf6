// Package metrics collects resource usage for one benchmark phase.
//
// A Collector is created per phase (LangShake or Traditional), started before
// the first request and finalized after the last. It is shared by every
// concurrent fetch of the phase, so all counters sit behind a mutex.
//
//	c := metrics.New("langshake")
//	_ = c.Start()
//	c.RecordRequest(metrics.RequestRecord{URL: u, Method: "GET", Start: t0, End: t1})
//	c.Finalize()
//	snap := c.Snapshot()
package metrics
